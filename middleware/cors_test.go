package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCORSRouter(t *testing.T, origins string) *gin.Engine {
	t.Setenv("ALLOWED_ORIGINS", origins)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return router
}

func corsRequest(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowListedOrigin(t *testing.T) {
	router := newCORSRouter(t, "https://journal.example.org, https://admin.example.org")

	rec := corsRequest(router, http.MethodGet, "https://journal.example.org")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://journal.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	preflight := corsRequest(router, http.MethodOptions, "https://admin.example.org")
	assert.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Contains(t, preflight.Header().Get("Access-Control-Allow-Methods"), "POST")

	rejected := corsRequest(router, http.MethodGet, "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, rejected.Code)
	assert.Empty(t, rejected.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithoutAllowListAllowsAnyOrigin(t *testing.T) {
	router := newCORSRouter(t, "")

	rec := corsRequest(router, http.MethodGet, "https://anywhere.example.net")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
