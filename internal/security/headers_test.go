package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/grievance/internal/logging"
)

func serve(t *testing.T, cfg *SecurityConfig, r *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := Middleware(cfg, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = templ.GetNonce(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, seen
}

func TestMiddlewareSetsHeaders(t *testing.T) {
	rec, nonce := serve(t, DefaultSecurityConfig(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, nonce)
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' "+ConfettiOrigin+" 'nonce-"+nonce+"'")
	assert.Contains(t, csp, "style-src 'self' 'unsafe-inline'")
	assert.Contains(t, csp, "worker-src 'self' blob:")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.Contains(t, csp, "report-uri "+ReportPath)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS is only sent over TLS")
}

func TestNonceIsFreshPerRequest(t *testing.T) {
	_, first := serve(t, DefaultSecurityConfig(), httptest.NewRequest(http.MethodGet, "/", nil))
	_, second := serve(t, DefaultSecurityConfig(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, first, second)
}

func TestHSTSOverTLS(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}

	rec, _ := serve(t, ProductionSecurityConfig(), r)
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", rec.Header().Get("Strict-Transport-Security"))

	rec, _ = serve(t, DevelopmentSecurityConfig(), r)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestForEnvironment(t *testing.T) {
	prod := ForEnvironment("production")
	assert.True(t, prod.CSP.UpgradeInsecureRequests)
	assert.NotContains(t, prod.CSP.ConnectSrc, "ws:")

	assert.Nil(t, ForEnvironment("development").HSTS)
	assert.NotNil(t, ForEnvironment("staging").HSTS)
}

func TestBuildCSPHeaderDropsUnsafeScriptsWithNonce(t *testing.T) {
	csp := &CSPConfig{ScriptSrc: []string{"'self'", "'unsafe-inline'", "'unsafe-eval'"}}
	assert.Equal(t, "script-src 'self' 'nonce-abc'", buildCSPHeader(csp, "abc"))
	assert.Equal(t, "script-src 'self' 'unsafe-inline' 'unsafe-eval'", buildCSPHeader(csp, ""))
}

func TestCSPViolationHandler(t *testing.T) {
	h := CSPViolationHandler(logging.Discard())

	body := `{"csp-report":{"document-uri":"http://localhost/","violated-directive":"script-src","blocked-uri":"inline"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, ReportPath, strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, ReportPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.4")
	assert.Equal(t, "192.0.2.4", clientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", clientIP(r))
}
