package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/validator"
)

// RespondError writes err as an error envelope. AppErrors keep their status;
// anything else is a 500 with a generic message.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	resp := NewErrorResponse("internal server error")

	if appErr, ok := apperrors.As(err); ok {
		status = appErr.StatusCode()
		if status != http.StatusInternalServerError {
			resp.Message = appErr.Message
		}
	}

	var verrs apperrors.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Errors = verrs
	}

	if status >= http.StatusInternalServerError {
		resp.RequestID = c.GetString("request_id")
		log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString("request_id")).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// BindError answers a failed ShouldBind* with 400 and the field messages.
func BindError(c *gin.Context, err error) {
	translated := validator.Translate(err)
	var verrs apperrors.ValidationErrors
	if errors.As(translated, &verrs) {
		RespondError(c, apperrors.BadRequest(translated.Error(), verrs))
		return
	}
	RespondError(c, apperrors.BadRequest("invalid request body", err))
}
