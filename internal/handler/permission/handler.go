package permission

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/service/permission"
)

type Handler struct {
	svc *permission.Service
}

func NewHandler(svc *permission.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the permission editor. The service admits only the
// clinic owner.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, guard gin.HandlerFunc) {
	perms := r.Group("/permissions", guard)
	{
		perms.GET("/clinic-users", h.List)
		perms.GET("/:user_id", h.Get)
		perms.PUT("/:user_id", h.Update)
		perms.POST("/:user_id/reset", h.Reset)
	}
}

func (h *Handler) List(c *gin.Context) {
	members, err := h.svc.List(c.Request.Context(), handler.CurrentPrincipal(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"users":       members,
		"permissions": model.AllPermissions(),
	}))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "user_id")
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), handler.CurrentPrincipal(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "user_id")
	if !ok {
		return
	}
	var req model.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	m, err := h.svc.Update(c.Request.Context(), handler.CurrentPrincipal(c), id, req.Permissions)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) Reset(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "user_id")
	if !ok {
		return
	}
	m, err := h.svc.Reset(c.Request.Context(), handler.CurrentPrincipal(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}
