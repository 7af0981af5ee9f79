package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeadersWithConfig(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeadersWithConfig(SecurityConfig{
		AllowedDomains: []string{"https://app.vyjcapital.com", "https://www.vyjcapital.com"},
	}))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "script-src 'self'")
	assert.NotContains(t, csp, "unsafe-eval")
	assert.Contains(t, csp, "connect-src 'self' https://app.vyjcapital.com https://www.vyjcapital.com")
}

func TestBuildCSPInlineJS(t *testing.T) {
	csp := buildCSP(SecurityConfig{AllowInlineJS: true})
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline'")
	assert.NotContains(t, csp, "connect-src")
}
