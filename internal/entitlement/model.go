// Package entitlement decides which hospitals a principal may query.
//
// Decisions depend only on the principal's role and entity associations.
// Anything the model does not recognise is denied.
package entitlement

import (
	"sort"

	"github.com/savegress/hospitalfin/pkg/models"
)

// Model answers entitlement questions against a fixed set of known hospitals
type Model struct {
	known []string
}

// NewModel creates a model; admins are entitled to exactly knownEntityIDs
func NewModel(knownEntityIDs []string) *Model {
	return &Model{known: normalize(knownEntityIDs)}
}

// AccessibleEntities returns the sorted, de-duplicated hospital ids p may address.
// Unknown roles and principals without associations get an empty set.
func (m *Model) AccessibleEntities(p *models.Principal) []string {
	if p == nil {
		return []string{}
	}

	switch p.Role {
	case models.RoleAdmin:
		return append([]string{}, m.known...)
	case models.RoleHospitalOwner:
		return normalize(p.EntityIDs)
	case models.RoleBranchOwner:
		if p.EntityID == "" {
			return []string{}
		}
		return []string{p.EntityID}
	default:
		return []string{}
	}
}

// CanAccess reports whether p may query entityID
func (m *Model) CanAccess(p *models.Principal, entityID string) bool {
	if p == nil || entityID == "" {
		return false
	}

	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleHospitalOwner:
		for _, id := range p.EntityIDs {
			if id == entityID {
				return true
			}
		}
		return false
	case models.RoleBranchOwner:
		return p.EntityID != "" && p.EntityID == entityID
	default:
		return false
	}
}

func normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
