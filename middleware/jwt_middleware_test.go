package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, expiresAt int64) string {
	t.Helper()
	claims := &JwtCustomClaims{
		OperatorID: "op-1",
		Email:      "operator@vyjcapital.com",
		Role:       "operator",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newGuardedEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/api")
	g.Use(JWTMiddleware())
	g.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"operatorId": c.Get("operatorId"),
			"role":       c.Get("role"),
		})
	})
	return e
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e := newGuardedEcho()

	token := signToken(t, "test-secret", time.Now().Add(time.Hour).Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"operatorId":"op-1"`)
	assert.Contains(t, rec.Body.String(), `"role":"operator"`)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e := newGuardedEcho()

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e := newGuardedEcho()

	token := signToken(t, "test-secret", time.Now().Add(-time.Hour).Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e := newGuardedEcho()

	token := signToken(t, "other-secret", time.Now().Add(time.Hour).Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
