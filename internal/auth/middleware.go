package auth

import (
	"context"
	"net/http"
	"strings"

	"tiendacore/internal/httpx"
)

// Identity is the decoded token subject attached to the request context.
// Downstream handlers trust it; the middleware is the only writer.
type Identity struct {
	ID   string
	Role Role
}

type contextKey string

const identityContextKey contextKey = "tiendacore_identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// JWTMiddleware authenticates the request: a missing or invalid bearer token
// short-circuits with 401 before any handler runs.
func JWTMiddleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				httpx.Error(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
			claims, err := svc.ParseToken(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{ID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole authorizes an already-authenticated request. Order matters:
// an absent identity is 401, a present identity with the wrong role is 403.
func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			httpx.Error(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	}
}
