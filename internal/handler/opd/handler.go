package opd

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/service/opd"
)

type Handler struct {
	svc *opd.Service
}

func NewHandler(svc *opd.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the queue endpoints. manage guards every mutation.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, manage gin.HandlerFunc) {
	g := r.Group("/opd")
	{
		g.GET("/queue", h.Queue)
		g.GET("/stats", h.Stats)
		g.GET("/follow-ups-due", h.FollowUpsDue)
		g.GET("/appointments/:id", h.GetAppointment)
		g.GET("/appointments/:id/visit", h.AppointmentVisit)

		g.POST("/appointments", manage, h.AddToQueue)
		g.PUT("/appointments/:id/status", manage, h.UpdateStatus)
		g.PUT("/appointments/:id/position", manage, h.UpdatePosition)
		g.DELETE("/appointments/:id", manage, h.Delete)
	}
}

func (h *Handler) Queue(c *gin.Context) {
	date, ok := handler.QueryDate(c, "queue_date", model.Today())
	if !ok {
		return
	}

	queue, err := h.svc.Queue(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.QueueResponse{QueueDate: date, Queue: queue}))
}

func (h *Handler) Stats(c *gin.Context) {
	date, ok := handler.QueryDate(c, "stats_date", model.Today())
	if !ok {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.StatsResponse{StatsDate: date, Stats: *stats}))
}

func (h *Handler) AddToQueue(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	p := handler.CurrentPrincipal(c)
	appointment, err := h.svc.AddToQueue(c.Request.Context(), p.ClinicID, p.UserID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appointment))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	appointment, err := h.svc.GetAppointment(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	appointment, err := h.svc.UpdateStatus(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id, req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

// UpdatePosition moves an entry and answers with the renumbered queue.
func (h *Handler) UpdatePosition(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}

	queue, err := h.svc.Move(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id, req.QueueNumber)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	resp := model.QueueResponse{Queue: queue}
	if len(queue) > 0 {
		resp.QueueDate = queue[0].QueueDate
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse("appointment removed"))
}

// AppointmentVisit answers {"visit": null} when no visit exists yet.
func (h *Handler) AppointmentVisit(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	visit, err := h.svc.VisitForAppointment(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.AppointmentVisitResponse{Visit: visit}))
}

func (h *Handler) FollowUpsDue(c *gin.Context) {
	date, ok := handler.QueryDate(c, "date", model.Today())
	if !ok {
		return
	}

	followUps, err := h.svc.FollowUpsDue(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(followUps))
}
