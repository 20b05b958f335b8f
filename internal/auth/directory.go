// Package auth establishes who the current principal is.
// It authenticates against an in-memory directory and never makes entitlement decisions.
package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrDuplicateEmail     = &Error{Code: "DUPLICATE_EMAIL", Message: "Email already registered"}
	ErrWeakPassword       = &Error{Code: "WEAK_PASSWORD", Message: "Password is too short"}
	ErrMissingFields      = &Error{Code: "MISSING_FIELDS", Message: "Email, password and name are required"}
	ErrInvalidRole        = &Error{Code: "INVALID_ROLE", Message: "Unknown role"}
	ErrInvalidToken       = &Error{Code: "INVALID_TOKEN", Message: "Invalid or expired token"}
)

// Error represents an authentication error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type user struct {
	principal    models.Principal
	passwordHash []byte
	createdAt    time.Time
}

// SignUpRequest describes a new account
type SignUpRequest struct {
	Name      string
	Email     string
	Password  string
	Role      models.Role
	EntityID  string
	EntityIDs []string
}

// Directory is an in-memory user store keyed by email
type Directory struct {
	config *config.AuthConfig
	users  map[string]*user
	mu     sync.RWMutex
}

// NewDirectory creates a directory and seeds it with the configured demo users
func NewDirectory(cfg *config.AuthConfig) (*Directory, error) {
	d := &Directory{
		config: cfg,
		users:  make(map[string]*user),
	}

	for _, demo := range cfg.DemoUsers {
		_, err := d.SignUp(SignUpRequest{
			Name:      demo.Name,
			Email:     demo.Email,
			Password:  demo.Password,
			Role:      models.Role(demo.Role),
			EntityID:  demo.EntityID,
			EntityIDs: demo.EntityIDs,
		})
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", demo.Email, err)
		}
	}
	return d, nil
}

// SignUp registers a new account and returns its principal
func (d *Directory) SignUp(req SignUpRequest) (*models.Principal, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return nil, ErrMissingFields
	}
	if len(req.Password) < d.config.MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	cost := d.config.BCryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[email]; exists {
		return nil, ErrDuplicateEmail
	}

	u := &user{
		principal: models.Principal{
			ID:        uuid.New().String(),
			Name:      strings.TrimSpace(req.Name),
			Email:     email,
			Role:      req.Role,
			EntityID:  req.EntityID,
			EntityIDs: append([]string(nil), req.EntityIDs...),
		},
		passwordHash: hash,
		createdAt:    time.Now(),
	}
	d.users[email] = u

	p := u.principal
	return &p, nil
}

// SignIn verifies credentials and returns a copy of the principal
func (d *Directory) SignIn(email, password string) (*models.Principal, error) {
	d.mu.RLock()
	u, ok := d.users[normalizeEmail(email)]
	d.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	p := u.principal
	p.EntityIDs = append([]string(nil), u.principal.EntityIDs...)
	return &p, nil
}

// Count returns the number of registered users
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
