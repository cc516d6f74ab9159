package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/staywo/authgate/internal/server/auth"
	"github.com/staywo/authgate/internal/server/models"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFromContext returns the session claims stored by the authenticate
// middleware, or nil on an unauthenticated request.
func ClaimsFromContext(ctx context.Context) *auth.SessionClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.SessionClaims)
	return claims
}

// authenticate requires a valid bearer session token and stores its claims
// in the request context.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := auth.ParseSessionToken(strings.TrimPrefix(h, "Bearer "), s.jwtSecret)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole allows the request through only when the authenticated role
// is one of the given ones. Must run after authenticate.
func requireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	set := map[models.Role]struct{}{}
	for _, a := range allowed {
		set[a] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if _, ok := set[claims.Role]; !ok {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
