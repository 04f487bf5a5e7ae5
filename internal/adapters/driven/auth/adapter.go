package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// Issuer is stamped into every token and required when parsing
const Issuer = "unfold-core"

// dashboardClaims is the JWT body. Role and agency are informational only:
// the auth service re-reads both from the user record on every request.
type dashboardClaims struct {
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	AgencyID  string      `json:"agency_id,omitempty"`
	SessionID string      `json:"sid"`
	jwt.RegisteredClaims
}

// Adapter hashes passwords with bcrypt and signs HS256 JWTs
type Adapter struct {
	jwtSecret  []byte
	bcryptCost int
}

// NewAdapter creates an auth adapter with the default bcrypt cost
func NewAdapter(jwtSecret string) *Adapter {
	return NewAdapterWithCost(jwtSecret, bcrypt.DefaultCost)
}

// NewAdapterWithCost creates an auth adapter with a custom bcrypt cost.
// Tests use bcrypt.MinCost to stay fast.
func NewAdapterWithCost(jwtSecret string, bcryptCost int) *Adapter {
	return &Adapter{
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// HashPassword generates a bcrypt hash from a plaintext password
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs domain claims. The user ID travels as the subject.
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	body := dashboardClaims{
		Email:     claims.Email,
		Role:      claims.Role,
		AgencyID:  claims.AgencyID,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(a.jwtSecret)
}

// ParseToken verifies signature, issuer and expiry, then returns the claims.
// Expired tokens yield ErrTokenExpired; anything else unusable is ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dashboardClaims{},
		func(*jwt.Token) (interface{}, error) { return a.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	body, ok := token.Claims.(*dashboardClaims)
	if !ok || !token.Valid || body.Subject == "" || body.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims := &domain.TokenClaims{
		UserID:    body.Subject,
		Email:     body.Email,
		Role:      body.Role,
		AgencyID:  body.AgencyID,
		SessionID: body.SessionID,
		ExpiresAt: body.ExpiresAt.Unix(),
	}
	if body.IssuedAt != nil {
		claims.IssuedAt = body.IssuedAt.Unix()
	}
	return claims, nil
}
