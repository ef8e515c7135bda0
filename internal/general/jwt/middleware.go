package jwt

import (
	"net/http"
)

// CookieMiddlewareFunc injects valid browser claims into the request context.
// Requests without a valid cookie pass through without claims; GET / then issues a
// new cookie and every other page route answers 401.
func CookieMiddlewareFunc(mgr *Manager) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// extract token from the session cookie
			raw, err := FromCookie(r)
			if err != nil {
				next(w, r)
				return
			}

			// parse and validate token; a stale cookie counts as none
			claims, err := mgr.ParseAndValidate(raw)
			if err != nil {
				next(w, r)
				return
			}

			// inject claims into context and proceed to next handler
			ctx := InjectClaims(r.Context(), claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireClaims extracts browser claims from the request context, or nil.
func RequireClaims(r *http.Request) *Claims {
	c, _ := FromContext(r.Context())
	return c
}
