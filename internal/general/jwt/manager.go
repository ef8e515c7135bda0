package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// CookieName carries the browser session token.
const CookieName = "civic_session"

var (
	ErrNoSessionCookie    = errors.New("session cookie missing")
	ErrInvalidSigningAlgo = errors.New("unexpected signing method")
	ErrWrongKind          = errors.New("token is not a page-session token")
	ErrEmptySessionID     = errors.New("browser id is required")
)

// Manager handles page-session token creation and validation.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager.
func NewManager(secret string, ttl time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("jwt: empty secret key")
	}

	return &Manager{secret: []byte(s), ttl: ttl}
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// IssueSessionToken returns a signed token identifying browserID.
func (m *Manager) IssueSessionToken(browserID string) (string, *Claims, error) {
	if strings.TrimSpace(browserID) == "" {
		return "", nil, ErrEmptySessionID
	}

	// sign claims with HS256
	claims := NewSessionClaims(browserID, m.ttl)
	tkn := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tkn.SignedString(m.secret)

	return signed, claims, err
}

// ParseAndValidate verifies signature, expiry, issuer and kind.
func (m *Manager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(Issuer),
		jwtlib.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, ErrInvalidSigningAlgo
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != KindPageSession {
		return nil, ErrWrongKind
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrEmptySessionID
	}

	return claims, nil
}

// FromCookie reads the raw session token from the request.
func FromCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return "", ErrNoSessionCookie
	}
	return c.Value, nil
}

// SetCookie writes the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, claims *Claims, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Context wiring (used by middleware)
type ctxKey string

const claimsCtxKey ctxKey = "sessionClaims"

// InjectClaims adds session claims to the context.
func InjectClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// FromContext extracts session claims from the context.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}
