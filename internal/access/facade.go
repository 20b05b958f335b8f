// Package access is the only way to retrieve generated financial records.
// Entitlement is checked before the catalog is consulted, so callers cannot
// reach data by skipping their own filtering.
package access

import (
	"context"

	"github.com/savegress/hospitalfin/internal/audit"
	"github.com/savegress/hospitalfin/internal/catalog"
	"github.com/savegress/hospitalfin/internal/entitlement"
	"github.com/savegress/hospitalfin/pkg/models"
)

// Errors
var (
	ErrDenied   = &Error{Code: "ACCESS_DENIED", Message: "Not authorized to view this hospital"}
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "No financial data for this hospital and year"}
)

// Error represents a data access error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Facade composes entitlement, catalog and audit
type Facade struct {
	model   *entitlement.Model
	catalog *catalog.Catalog
	audit   *audit.Logger
}

// NewFacade creates a new facade
func NewFacade(model *entitlement.Model, cat *catalog.Catalog, auditLog *audit.Logger) *Facade {
	return &Facade{
		model:   model,
		catalog: cat,
		audit:   auditLog,
	}
}

// Fetch returns the record for entityID in period.
// It returns ErrDenied when p may not see entityID, whether or not data exists,
// and ErrNotFound when p may see entityID but the pair was never generated.
func (f *Facade) Fetch(ctx context.Context, p *models.Principal, entityID string, period models.Period) (*models.FinancialRecord, error) {
	if !f.model.CanAccess(p, entityID) {
		f.record(ctx, p, entityID, period, "fetch", audit.OutcomeDenied)
		return nil, ErrDenied
	}

	rec, ok := f.catalog.Lookup(entityID, period)
	if !ok {
		f.record(ctx, p, entityID, period, "fetch", audit.OutcomeNotFound)
		return nil, ErrNotFound
	}

	f.record(ctx, p, entityID, period, "fetch", audit.OutcomeGranted)
	return rec, nil
}

// Hospitals returns the hospitals p may select, in catalog order.
// It is a convenience for populating pickers; Fetch still enforces access.
func (f *Facade) Hospitals(p *models.Principal) []models.Entity {
	allowed := make(map[string]bool)
	for _, id := range f.model.AccessibleEntities(p) {
		allowed[id] = true
	}

	out := []models.Entity{}
	for _, e := range f.catalog.Entities() {
		if allowed[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// Periods returns the years available in the catalog
func (f *Facade) Periods() []models.Period {
	return f.catalog.Periods()
}

func (f *Facade) record(ctx context.Context, p *models.Principal, entityID string, period models.Period, action string, outcome audit.Outcome) {
	if f.audit == nil {
		return
	}
	event := audit.Event{
		EntityID: entityID,
		Period:   period,
		Action:   action,
		Outcome:  outcome,
	}
	if p != nil {
		event.PrincipalID = p.ID
		event.Role = p.Role
	}
	f.audit.Record(ctx, event)
}
