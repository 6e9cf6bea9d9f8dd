package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/model"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// ParamUUID parses the named path parameter, answering 400 when it is not a
// uuid.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, apperrors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// QueryDate reads a YYYY-MM-DD query parameter, falling back to def when it
// is absent.
func QueryDate(c *gin.Context, name string, def model.Date) (model.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		RespondError(c, apperrors.BadRequest(name+" must be a date in YYYY-MM-DD format", err))
		return model.Date{}, false
	}
	return d, true
}

// QueryBool reads a boolean query parameter; anything unparsable is def.
func QueryBool(c *gin.Context, name string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
