package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		BCryptCost:        bcrypt.MinCost,
		MinPasswordLength: 8,
		DemoUsers:         config.DefaultDemoUsers(),
	}
}

func newDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := NewDirectory(testAuthConfig())
	if err != nil {
		t.Fatalf("NewDirectory failed: %v", err)
	}
	return d
}

func TestNewDirectory_SeedsDemoUsers(t *testing.T) {
	d := newDirectory(t)

	if d.Count() != 3 {
		t.Fatalf("expected 3 demo users, got %d", d.Count())
	}

	p, err := d.SignIn("owner@hospitalfin.local", "owner-password")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if p.Role != models.RoleHospitalOwner || len(p.EntityIDs) != 3 {
		t.Errorf("unexpected owner principal: %+v", p)
	}
}

func TestNewDirectory_InvalidSeed(t *testing.T) {
	cfg := testAuthConfig()
	cfg.DemoUsers = append(cfg.DemoUsers, config.DemoUser{Name: "Bad", Email: "bad@x.local", Password: "long-enough", Role: "root"})

	if _, err := NewDirectory(cfg); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestDirectory_SignUp(t *testing.T) {
	d := newDirectory(t)

	tests := []struct {
		name    string
		req     SignUpRequest
		wantErr error
	}{
		{"valid branch owner", SignUpRequest{Name: "Ana", Email: "ana@x.local", Password: "password1", Role: models.RoleBranchOwner, EntityID: "peds-1"}, nil},
		{"duplicate email", SignUpRequest{Name: "Dup", Email: "ADMIN@hospitalfin.local ", Password: "password1", Role: models.RoleAdmin}, ErrDuplicateEmail},
		{"short password", SignUpRequest{Name: "Bo", Email: "bo@x.local", Password: "short", Role: models.RoleAdmin}, ErrWeakPassword},
		{"missing name", SignUpRequest{Email: "cy@x.local", Password: "password1", Role: models.RoleAdmin}, ErrMissingFields},
		{"missing email", SignUpRequest{Name: "Cy", Password: "password1", Role: models.RoleAdmin}, ErrMissingFields},
		{"unknown role", SignUpRequest{Name: "Di", Email: "di@x.local", Password: "password1", Role: "auditor"}, ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := d.SignUp(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SignUp() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && p.ID == "" {
				t.Error("expected generated ID")
			}
		})
	}
}

func TestDirectory_SignIn(t *testing.T) {
	d := newDirectory(t)

	if _, err := d.SignIn("admin@hospitalfin.local", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := d.SignIn("nobody@hospitalfin.local", "admin-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	p, err := d.SignIn("  Admin@HospitalFin.local", "admin-password")
	if err != nil {
		t.Fatalf("SignIn with mixed-case email failed: %v", err)
	}
	if p.Role != models.RoleAdmin {
		t.Errorf("expected admin, got %s", p.Role)
	}
}

func TestDirectory_SignInReturnsCopy(t *testing.T) {
	d := newDirectory(t)

	p, _ := d.SignIn("owner@hospitalfin.local", "owner-password")
	p.Role = models.RoleAdmin
	p.EntityIDs[0] = "trauma-1"

	again, _ := d.SignIn("owner@hospitalfin.local", "owner-password")
	if again.Role != models.RoleHospitalOwner || again.EntityIDs[0] == "trauma-1" {
		t.Error("mutating a returned principal must not change the directory")
	}
}

func TestSession(t *testing.T) {
	s := NewSession(newDirectory(t))

	if s.Current() != nil {
		t.Fatal("new session should be signed out")
	}

	if _, err := s.SignIn("branch@hospitalfin.local", "branch-password"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if p := s.Current(); p == nil || p.EntityID != "cardio-1" {
		t.Fatalf("unexpected current principal: %+v", p)
	}

	// Failed sign-in keeps the previous principal
	if _, err := s.SignIn("admin@hospitalfin.local", "nope-nope"); err == nil {
		t.Fatal("expected sign-in failure")
	}
	if p := s.Current(); p == nil || p.Role != models.RoleBranchOwner {
		t.Errorf("failed sign-in replaced principal: %+v", p)
	}

	s.SignOut()
	if s.Current() != nil {
		t.Error("expected nil principal after sign out")
	}
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := NewSession(newDirectory(t))
	s.SignIn("admin@hospitalfin.local", "admin-password")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.SignOut()
				return
			}
			if p := s.Current(); p != nil && p.Role != models.RoleAdmin {
				t.Errorf("observed inconsistent principal: %+v", p)
			}
		}(i)
	}
	wg.Wait()
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer(testAuthConfig())
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	p := &models.Principal{
		ID:        "u-1",
		Name:      "Owner",
		Email:     "owner@hospitalfin.local",
		Role:      models.RoleHospitalOwner,
		EntityIDs: []string{"general-1", "peds-1"},
	}
	token, err := issuer.Issue(p)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.ID != p.ID || got.Role != p.Role || got.Email != p.Email {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.EntityIDs) != 2 || got.EntityIDs[0] != "general-1" || got.EntityIDs[1] != "peds-1" {
		t.Errorf("entity associations lost: %v", got.EntityIDs)
	}
}

func TestIssuer_Rejects(t *testing.T) {
	cfg := testAuthConfig()
	issuer, _ := NewIssuer(cfg)
	p := &models.Principal{ID: "u-1", Role: models.RoleBranchOwner, EntityID: "cardio-1"}
	token, _ := issuer.Issue(p)

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		if err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		escalated := strings.Replace(string(payload), `"branch_owner"`, `"admin"`, 1)
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(escalated))
		if _, err := issuer.Parse(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := *cfg
		other.JWTSecret = "another-secret"
		otherIssuer, _ := NewIssuer(&other)
		if _, err := otherIssuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		late, _ := NewIssuer(cfg)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := late.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Role:             models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u-evil", Issuer: issuerName, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("failed to build unsigned token: %v", err)
		}
		if _, err := issuer.Parse(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.JWTSecret = ""
	if _, err := NewIssuer(cfg); err == nil {
		t.Error("expected error for empty secret")
	}
}
