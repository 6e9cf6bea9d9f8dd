package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/opd-desk/internal/handler"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// ErrorHandler logs every error a handler attached with c.Error. Handlers
// normally answer through handler.RespondError; when one returned without
// writing, the last error is rendered here, AppErrors keeping their message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		logger := zerolog.Ctx(c.Request.Context())
		for _, e := range c.Errors {
			logger.Debug().
				Err(e.Err).
				Str("route", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("handler error")
		}

		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := http.StatusInternalServerError
		resp := handler.NewErrorResponse(http.StatusText(status))
		if appErr, ok := apperrors.As(err); ok {
			status = appErr.StatusCode()
			if status < http.StatusInternalServerError {
				resp.Message = appErr.Message
			}
		}
		var verrs apperrors.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Errors = verrs
		}
		resp.RequestID = c.GetString(ContextRequestID)
		c.JSON(status, resp)
	}
}
