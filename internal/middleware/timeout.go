package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const DefaultRequestTimeout = 30 * time.Second

// TimeoutConfig bounds how long a request may hold a database connection.
// Paths under an exempt prefix (metrics scrapes) keep the server default.
type TimeoutConfig struct {
	Duration time.Duration
	Exempt   []string
}

// Timeout sets a deadline on the request context. Repositories see it through
// ctx and fail with context.DeadlineExceeded, which the handlers map to 500.
func Timeout(config TimeoutConfig) gin.HandlerFunc {
	d := config.Duration
	if d <= 0 {
		d = DefaultRequestTimeout
	}
	return func(c *gin.Context) {
		for _, prefix := range config.Exempt {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
