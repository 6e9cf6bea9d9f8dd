package invoice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/service/invoice"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

// Guards holds the permission middleware for each billing action.
type Guards struct {
	View    gin.HandlerFunc
	Create  gin.HandlerFunc
	Edit    gin.HandlerFunc
	Summary gin.HandlerFunc
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, g Guards) {
	invoices := r.Group("/invoices")
	{
		invoices.GET("", g.View, h.List)
		invoices.POST("", g.Create, h.Create)
		invoices.GET("/stats/summary", g.Summary, h.Summary)
		invoices.GET("/:id", g.View, h.Get)
		invoices.PUT("/:id", g.Edit, h.UpdatePayment)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var in model.InvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handler.BindError(c, err)
		return
	}

	p := handler.CurrentPrincipal(c)
	inv, err := h.svc.Create(c.Request.Context(), p.ClinicID, p.UserID, &in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(inv))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(inv))
}

func (h *Handler) List(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		handler.BindError(c, err)
		return
	}
	filter := model.InvoiceFilter{
		Status:     model.PaymentStatus(c.Query("status")),
		Pagination: page,
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.RespondError(c, apperrors.BadRequest("invalid patient_id", err))
			return
		}
		filter.PatientID = &id
	}

	list, err := h.svc.List(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var upd model.InvoicePaymentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		handler.BindError(c, err)
		return
	}

	inv, err := h.svc.UpdatePayment(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, id, &upd)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(inv))
}

// Summary totals billing over the optional from and to dates.
func (h *Handler) Summary(c *gin.Context) {
	var from, to *model.Date
	if c.Query("from") != "" {
		d, ok := handler.QueryDate(c, "from", model.Date{})
		if !ok {
			return
		}
		from = &d
	}
	if c.Query("to") != "" {
		d, ok := handler.QueryDate(c, "to", model.Date{})
		if !ok {
			return
		}
		to = &d
	}

	summary, err := h.svc.Summary(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID, from, to)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}
