package middleware

import (
	"context"
	"net/http"

	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/auth"
	"github.com/openbookings/server/internal/domain/users"
)

const claimsKey contextKey = "auth_claims"

// ClaimsFromContext returns the verified token claims for the request,
// if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// WithClaims injects claims into the context. Exported for handler
// tests.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// RequireAuth verifies the bearer token and stores its claims in the
// request context. Requests without a valid access token get 401.
func RequireAuth(tokens *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", err, env)
				return
			}

			claims, err := tokens.Validate(tokenString, auth.TokenTypeAccess)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", err, env)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows only authenticated admins through. Must run after
// RequireAuth.
func RequireAdmin(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", auth.ErrMissingToken, env)
				return
			}
			if claims.Role != users.RoleAdmin {
				problem.Write(w, r, http.StatusForbidden, "forbidden", "Admin access required", nil, env,
					problem.WithDetail("This operation requires the admin role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
