package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/service/booking"
	apperrors "github.com/talkbase/scheduling-api/pkg/errors"
	"github.com/talkbase/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/availability", h.CheckAvailability)

	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.POST("/check", h.CheckAppointment)
		appointments.POST("/cancel", h.CancelAppointment)
	}

	r.GET("/schedules/resolve", h.ResolveSchedule)
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	var req model.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid request body", err))
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, "availability resolved", result)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid request body", err))
		return
	}

	appointment, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, "appointment created", appointment)
}

func (h *Handler) CheckAppointment(c *gin.Context) {
	var req model.CheckAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid request body", err))
		return
	}

	appointments, err := h.service.CheckAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, "appointments found", appointments)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid request body", err))
		return
	}

	result, err := h.service.CancelAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, "appointments canceled", result)
}

// ResolveSchedule maps an organization-scoped schedule name to its id, for
// clients that only hold the human-readable name.
func (h *Handler) ResolveSchedule(c *gin.Context) {
	organizationID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidArgument("invalid organization id", err))
		return
	}
	name := c.Query("name")

	id, err := h.service.ResolveScheduleID(c.Request.Context(), organizationID, name)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, "schedule resolved", gin.H{"schedule_id": id.String()})
}
