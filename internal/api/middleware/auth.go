package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

const claimsKey contextKey = "claims"

// RoleSource reports a user's current role. Tokens carry the role they
// were minted with, which goes stale when an admin blocks or promotes the
// account mid-lifetime, so Authenticate asks for the current one.
type RoleSource interface {
	Role(ctx context.Context, userID string) (string, error)
}

// Authenticate validates the bearer token, resolves the account's current
// role, and stores the claims in the request context. Blocked accounts are
// rejected even when their token predates the block; deleted accounts fail
// with 401.
func Authenticate(jwt *auth.JWTManager, roles RoleSource, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, "about:blank", "Unauthorized", err, env)
				return
			}

			claims, err := jwt.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, "about:blank", "Unauthorized", err, env)
				return
			}

			role, err := roles.Role(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					problem.Write(w, r, http.StatusUnauthorized, "about:blank", "Unauthorized", err, env)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, "about:blank", "Internal Server Error", err, env)
				return
			}
			if role == users.RoleBlocked {
				problem.Write(w, r, http.StatusForbidden, "about:blank", "Forbidden", nil, env,
					problem.WithDetail("account is blocked"))
				return
			}
			claims.Role = role

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole gates a subtree to one role. Mount after Authenticate.
func RequireRole(role string, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil || claims.Role != role {
				problem.Write(w, r, http.StatusForbidden, "about:blank", "Forbidden", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithClaims stores authenticated claims on the context.
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil outside
// an authenticated route.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}
