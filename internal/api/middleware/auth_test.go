package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

func newTestJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret", time.Hour, "eventhub-test")
}

type stubRoleSource struct {
	roleFn func(ctx context.Context, userID string) (string, error)
}

func (s stubRoleSource) Role(ctx context.Context, userID string) (string, error) {
	if s.roleFn != nil {
		return s.roleFn(ctx, userID)
	}
	return users.RoleUser, nil
}

func claimsEcho(t *testing.T, captured **auth.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateStoresClaims(t *testing.T) {
	manager := newTestJWT()
	token, err := manager.Generate("u1", "user", "alice")
	require.NoError(t, err)

	var captured *auth.Claims
	handler := Authenticate(manager, stubRoleSource{}, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, captured)
	require.Equal(t, "u1", captured.Subject)
	require.Equal(t, "alice", captured.Username)
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	var captured *auth.Claims
	handler := Authenticate(newTestJWT(), stubRoleSource{}, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	require.Nil(t, captured)
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	var captured *auth.Claims
	handler := Authenticate(newTestJWT(), stubRoleSource{}, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Nil(t, captured)
}

func TestAuthenticateRejectsAccountBlockedAfterTokenMinted(t *testing.T) {
	manager := newTestJWT()
	// The token still says "user"; the account was blocked afterwards.
	token, err := manager.Generate("u1", "user", "alice")
	require.NoError(t, err)

	roles := stubRoleSource{roleFn: func(_ context.Context, userID string) (string, error) {
		require.Equal(t, "u1", userID)
		return users.RoleBlocked, nil
	}}

	var captured *auth.Claims
	handler := Authenticate(manager, roles, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Nil(t, captured)
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	manager := newTestJWT()
	token, err := manager.Generate("u1", "user", "alice")
	require.NoError(t, err)

	roles := stubRoleSource{roleFn: func(context.Context, string) (string, error) {
		return "", users.ErrNotFound
	}}

	var captured *auth.Claims
	handler := Authenticate(manager, roles, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Nil(t, captured)
}

func TestAuthenticateRoleLookupFailure(t *testing.T) {
	manager := newTestJWT()
	token, err := manager.Generate("u1", "user", "alice")
	require.NoError(t, err)

	roles := stubRoleSource{roleFn: func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}}

	var captured *auth.Claims
	handler := Authenticate(manager, roles, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.Nil(t, captured)
}

func TestAuthenticateRefreshesStaleRole(t *testing.T) {
	manager := newTestJWT()
	// Minted before the account was promoted to admin.
	token, err := manager.Generate("u1", "user", "alice")
	require.NoError(t, err)

	roles := stubRoleSource{roleFn: func(context.Context, string) (string, error) {
		return users.RoleAdmin, nil
	}}

	var captured *auth.Claims
	handler := Authenticate(manager, roles, "test")(claimsEcho(t, &captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, captured)
	require.Equal(t, users.RoleAdmin, captured.Role)
}

func TestRequireRoleRejectsNonAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole("admin", "test")(next)

	claims := &auth.Claims{Role: "user"}
	claims.Subject = "u1"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole("admin", "test")(next)

	claims := &auth.Claims{Role: "admin"}
	claims.Subject = "a1"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req = req.WithContext(ContextWithClaims(req.Context(), claims))
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	handler := RequireRole("admin", "test")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}
