package option

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/service/option"
)

// Handler serves one CRUD collection per option category, all with the same
// shape.
type Handler struct {
	svc *option.Service
}

func NewHandler(svc *option.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, manage gin.HandlerFunc) {
	for _, category := range model.AllCategories() {
		g := r.Group(category.Path())
		g.GET("", h.list(category))
		g.POST("", manage, h.create(category))
		g.PUT("/:id", manage, h.update(category))
		g.DELETE("/:id", manage, h.delete(category))
	}
}

func (h *Handler) list(category model.OptionCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := handler.QueryBool(c, "active_only", false)
		opts, err := h.svc.List(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, category, activeOnly)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(opts))
	}
}

func (h *Handler) create(category model.OptionCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in model.OptionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			handler.BindError(c, err)
			return
		}

		opt, err := h.svc.Create(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, category, &in)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, handler.NewSuccessResponse(opt))
	}
}

func (h *Handler) update(category model.OptionCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := handler.ParamUUID(c, "id")
		if !ok {
			return
		}
		var in model.OptionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			handler.BindError(c, err)
			return
		}

		opt, err := h.svc.Update(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, category, id, &in)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(opt))
	}
}

func (h *Handler) delete(category model.OptionCategory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := handler.ParamUUID(c, "id")
		if !ok {
			return
		}

		if err := h.svc.Delete(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, category, id); err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse("option deleted"))
	}
}
