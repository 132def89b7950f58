package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gatekit/gatekit/internal/model"
	"github.com/gatekit/gatekit/internal/service"
)

type contextKeyAuth string

// principalKey is the context key for the authenticated principal.
const principalKey contextKeyAuth = "auth_principal"

// RequireAuth returns an HTTP middleware that validates the Authorization
// bearer token on each request. On success the verified principal
// ({userId, role}) is attached to the request context; on any failure a 401
// JSON error is returned before the handler runs.
//
// The token is the only session artifact. Deactivating an account does not
// invalidate tokens issued before the deactivation.
func RequireAuth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			principal, err := authSvc.VerifyToken(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns an HTTP middleware that enforces an exact role match.
// It must run after RequireAuth: a missing principal yields 401, a role
// mismatch 403.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if principal.Role != role {
				writeAuthError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil for unauthenticated requests.
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(principalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a context carrying the given principal. Exposed for
// handler tests that bypass the middleware chain.
func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler package
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"` + message + `"}}`))
}
