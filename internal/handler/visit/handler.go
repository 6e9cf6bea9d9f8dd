package visit

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/printout"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/internal/service/visit"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

// PrintSettingsSource yields the caller's letterhead offset.
type PrintSettingsSource interface {
	PrintSettings(ctx context.Context, userID uuid.UUID) (model.PrintSettings, error)
}

type Handler struct {
	svc     *visit.Service
	print   PrintSettingsSource
	clinics repository.ClinicRepository
}

func NewHandler(svc *visit.Service, print PrintSettingsSource, clinics repository.ClinicRepository) *Handler {
	return &Handler{svc: svc, print: print, clinics: clinics}
}

// Guards holds the permission middleware for each protected action.
type Guards struct {
	Create      gin.HandlerFunc
	Edit        gin.HandlerFunc
	Collections gin.HandlerFunc
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, g Guards) {
	visits := r.Group("/visits")
	{
		visits.GET("", h.List)
		visits.GET("/collections/summary", g.Collections, h.Collections)
		visits.GET("/:id", h.Get)
		visits.GET("/:id/print", h.Print)
		visits.POST("", g.Create, h.Create)
		visits.PUT("/:id", g.Edit, h.Update)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var in model.VisitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handler.BindError(c, err)
		return
	}

	p := handler.CurrentPrincipal(c)
	v, err := h.svc.Create(c.Request.Context(), p.ClinicID, p.UserID, &in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(v))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var in model.VisitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handler.BindError(c, err)
		return
	}

	v, err := h.svc.Update(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id, &in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	v, err := h.svc.Get(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}

func (h *Handler) List(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		handler.BindError(c, err)
		return
	}
	filter := model.VisitFilter{Pagination: page}

	if raw := c.Query("date"); raw != "" {
		d, ok := handler.QueryDate(c, "date", model.Date{})
		if !ok {
			return
		}
		filter.Date = &d
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid patient_id", err))
			return
		}
		filter.PatientID = &id
	}
	if handler.QueryBool(c, "mine", false) {
		me := handler.CurrentPrincipal(c).UserID
		filter.DoctorID = &me
	}

	items, err := h.svc.List(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) Collections(c *gin.Context) {
	today := model.Today()
	from, ok := handler.QueryDate(c, "from", today.AddDays(-30))
	if !ok {
		return
	}
	to, ok := handler.QueryDate(c, "to", today)
	if !ok {
		return
	}

	summary, err := h.svc.Collections(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, from, to)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

// Print renders the prescription page with the caller's print offset.
// ?autoprint=false leaves out the print-and-close script.
func (h *Handler) Print(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	p := handler.CurrentPrincipal(c)
	v, patient, err := h.svc.PrintData(ctx, p.ClinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	settings, err := h.print.PrintSettings(ctx, p.UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	doc := printout.Document{
		Visit:     v,
		Patient:   patient,
		Settings:  settings,
		AutoPrint: handler.QueryBool(c, "autoprint", true),
	}
	if clinic, err := h.clinics.Get(ctx, p.ClinicID); err == nil {
		doc.ClinicName = clinic.Name
	}

	var buf bytes.Buffer
	if err := printout.Render(&buf, doc); err != nil {
		handler.RespondError(c, apperrors.Internal(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
