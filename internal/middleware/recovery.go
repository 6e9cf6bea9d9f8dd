package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/handler"
)

// Recovery turns a panic into a 500 envelope. The log line names the clinic
// and user when the request got past authentication.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			event := log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Str("request_id", c.GetString(ContextRequestID))
			if p := handler.CurrentPrincipal(c); p.UserID != uuid.Nil {
				event = event.Str("clinic_id", p.ClinicID.String()).Str("user_id", p.UserID.String())
			}
			event.Msg("panic while serving request")

			resp := handler.NewErrorResponse("internal server error")
			resp.RequestID = c.GetString(ContextRequestID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		}()
		c.Next()
	}
}
