package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/savegress/hospitalfin/internal/config"
	"github.com/savegress/hospitalfin/pkg/models"
)

const issuerName = "hospitalfin"

// Claims carries a principal inside a session token
type Claims struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	EntityID  string      `json:"entity_id,omitempty"`
	EntityIDs []string    `json:"entity_ids,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HMAC session tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer from auth configuration
func NewIssuer(cfg *config.AuthConfig) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Issuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for p
func (i *Issuer) Issue(p *models.Principal) (string, error) {
	if p == nil {
		return "", errors.New("no principal to issue a token for")
	}
	now := i.now()
	claims := Claims{
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		EntityID:  p.EntityID,
		EntityIDs: p.EntityIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenString and returns the principal it carries
func (i *Issuer) Parse(tokenString string) (*models.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &models.Principal{
		ID:        claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
		EntityID:  claims.EntityID,
		EntityIDs: claims.EntityIDs,
	}, nil
}
