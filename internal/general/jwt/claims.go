package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped on every page-session token.
const Issuer = "civic-aid"

// KindPageSession marks tokens that identify a browser. Each page load of that
// browser opens its own page session.
const KindPageSession = "page_session"

// Claims defines the session token payload. Subject is the browser ID.
type Claims struct {
	Kind string `json:"kind"`
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewSessionClaims constructs claims for a browser.
func NewSessionClaims(browserID string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Kind: KindPageSession,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   browserID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
