package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersSet(t *testing.T) {
	handler := SecurityHeaders(false)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "strict-origin-when-cross-origin", res.Header().Get("Referrer-Policy"))
	require.Equal(t, "default-src 'self'", res.Header().Get("Content-Security-Policy"))
	require.Empty(t, res.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersHSTSOnTLS(t *testing.T) {
	handler := SecurityHeaders(true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.TLS = &tls.ConnectionState{}
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Contains(t, res.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestSecurityHeadersNoHSTSOnPlainHTTP(t *testing.T) {
	handler := SecurityHeaders(true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Empty(t, res.Header().Get("Strict-Transport-Security"))
}
