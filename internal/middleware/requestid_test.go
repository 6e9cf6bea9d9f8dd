package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	var seen string
	var hasLogger bool
	engine.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(ContextRequestID)
		hasLogger = zerolog.Ctx(c.Request.Context()).GetLevel() != zerolog.Disabled
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"supplied id is kept", "desk-42", true},
		{"missing id is generated", "", false},
		{"id with spaces is replaced", "bad id", false},
		{"overlong id is replaced", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(HeaderXRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			got := w.Header().Get(HeaderXRequestID)
			assert.Equal(t, seen, got)
			assert.True(t, hasLogger)
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(TimeoutConfig{Duration: time.Minute, Exempt: []string{"/api/v1/health"}}))
	deadlines := map[string]bool{}
	handler := func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		deadlines[c.Request.URL.Path] = ok
		c.Status(http.StatusNoContent)
	}
	engine.GET("/api/v1/health/metrics", handler)
	engine.GET("/api/v1/opd/queue", handler)

	for _, path := range []string{"/api/v1/health/metrics", "/api/v1/opd/queue"} {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.False(t, deadlines["/api/v1/health/metrics"])
	assert.True(t, deadlines["/api/v1/opd/queue"])
}
