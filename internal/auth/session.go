package auth

import (
	"sync/atomic"

	"github.com/savegress/hospitalfin/pkg/models"
)

// Session holds the currently signed-in principal.
// The principal is swapped as a whole so readers never see a half-updated identity.
type Session struct {
	dir     *Directory
	current atomic.Pointer[models.Principal]
}

// NewSession creates a signed-out session backed by dir
func NewSession(dir *Directory) *Session {
	return &Session{dir: dir}
}

// SignIn authenticates and makes the principal current.
// A failed attempt leaves the previous principal in place.
func (s *Session) SignIn(email, password string) (*models.Principal, error) {
	p, err := s.dir.SignIn(email, password)
	if err != nil {
		return nil, err
	}
	s.current.Store(p)
	return p, nil
}

// SignOut clears the current principal
func (s *Session) SignOut() {
	s.current.Store(nil)
}

// Current returns the signed-in principal, or nil
func (s *Session) Current() *models.Principal {
	return s.current.Load()
}
