package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preflight(t *testing.T, config CORSConfig, origin string) *httptest.ResponseRecorder {
	t.Helper()
	engine := gin.New()
	require.NotPanics(t, func() { engine.Use(CORS(config)) })
	engine.GET("/api/v1/opd/queue", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/opd/queue", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCORS_EmptyOriginsUseDefaults(t *testing.T) {
	for _, origins := range [][]string{nil, {}, {"", "  "}} {
		w := preflight(t, CORSConfig{AllowOrigins: origins}, "http://localhost:3000")
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

		w = preflight(t, CORSConfig{AllowOrigins: origins}, "http://evil.test")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_Wildcard(t *testing.T) {
	w := preflight(t, CORSConfig{AllowOrigins: []string{"*"}}, "http://any.test")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ConfiguredOrigin(t *testing.T) {
	w := preflight(t, CORSConfig{AllowOrigins: []string{"https://desk.clinic.test"}}, "https://desk.clinic.test")
	assert.Equal(t, "https://desk.clinic.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
