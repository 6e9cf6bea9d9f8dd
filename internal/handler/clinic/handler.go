package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/service/clinic"
)

type Handler struct {
	svc *clinic.Service
}

func NewHandler(svc *clinic.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the caller's clinic profile. Editing the clinic is
// left to the service's owner check; doctorOnly guards profile edits.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, doctorOnly gin.HandlerFunc) {
	clinics := r.Group("/clinic")
	{
		clinics.GET("", h.Info)
		clinics.PUT("", h.Update)
		clinics.GET("/doctors", h.Doctors)
		clinics.GET("/doctor-profile", h.DoctorProfile)
		clinics.PUT("/doctor-profile", doctorOnly, h.UpdateDoctorProfile)
	}
}

// RegisterAdminRoutes mounts clinic management for admins behind adminOnly.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	admin := r.Group("/admin", adminOnly)
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/clinics", h.AdminClinics)
		admin.POST("/clinics", h.AdminCreateClinic)
		admin.GET("/clinics/:id", h.AdminClinic)
		admin.PUT("/clinics/:id", h.AdminUpdateClinic)
		admin.DELETE("/clinics/:id", h.AdminDeleteClinic)
		admin.GET("/clinics/:id/doctors", h.AdminDoctors)
		admin.POST("/clinics/:id/doctors", h.AdminAddDoctor)
		admin.DELETE("/clinics/:id/doctors/:doctor_id", h.AdminRemoveDoctor)
	}
}

func (h *Handler) Info(c *gin.Context) {
	info, err := h.svc.Info(c.Request.Context(), handler.CurrentPrincipal(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(info))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.ClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	clinic, err := h.svc.Update(c.Request.Context(), handler.CurrentPrincipal(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

func (h *Handler) Doctors(c *gin.Context) {
	doctors, err := h.svc.Doctors(c.Request.Context(), handler.CurrentPrincipal(c).ClinicID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) DoctorProfile(c *gin.Context) {
	profile, err := h.svc.DoctorProfile(c.Request.Context(), handler.CurrentPrincipal(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UpdateDoctorProfile(c *gin.Context) {
	var req model.UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	profile, err := h.svc.UpdateDoctorProfile(c.Request.Context(), handler.CurrentPrincipal(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.svc.AdminStats(c.Request.Context(), handler.CurrentPrincipal(c).UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) AdminClinics(c *gin.Context) {
	clinics, err := h.svc.AdminClinics(c.Request.Context(), handler.CurrentPrincipal(c).UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinics))
}

func (h *Handler) AdminCreateClinic(c *gin.Context) {
	var req model.ClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	clinic, err := h.svc.AdminCreateClinic(c.Request.Context(), handler.CurrentPrincipal(c).UserID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(clinic))
}

func (h *Handler) AdminClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.AdminClinic(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) AdminUpdateClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.ClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	clinic, err := h.svc.AdminUpdateClinic(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

func (h *Handler) AdminDeleteClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.AdminDeleteClinic(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *Handler) AdminDoctors(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	doctors, err := h.svc.AdminDoctors(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) AdminAddDoctor(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	doctor, err := h.svc.AdminAddDoctor(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(doctor))
}

func (h *Handler) AdminRemoveDoctor(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	doctorID, ok := handler.ParamUUID(c, "doctor_id")
	if !ok {
		return
	}
	if err := h.svc.AdminRemoveDoctor(c.Request.Context(), handler.CurrentPrincipal(c).UserID, id, doctorID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": true}))
}
