package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves doctor profiles, their availability windows and day slots.
type Handler struct {
	service schedule.ScheduleServicer
}

func NewHandler(service schedule.ScheduleServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the administrator's doctor management routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", h.CreateDoctor)
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.DELETE("/:id", h.DeleteDoctor)

		doctors.POST("/:id/windows", h.AddWindows)
		doctors.GET("/:id/windows", h.ListWindows)
		doctors.DELETE("/:id/windows/:windowId", h.DeleteWindow)
	}
}

// RegisterReadRoutes mounts the read only routes reception uses to book.
func (h *Handler) RegisterReadRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
		doctors.GET("/:id/windows", h.ListWindows)
		doctors.GET("/:id/slots", h.DaySlots)
	}
}

// RegisterSelfRoutes mounts the signed in doctor's own schedule.
func (h *Handler) RegisterSelfRoutes(r *gin.RouterGroup) {
	r.GET("/windows", h.OwnWindows)
	r.GET("/slots", h.OwnSlots)
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctor, err := h.service.CreateDoctor(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, doctor)
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctor, err := h.service.GetDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, doctor)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	specialtyID, err := handler.QueryID(c, "specialty_id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctors, err := h.service.ListDoctors(c.Request.Context(), &model.DoctorFilters{
		SpecialtyID: specialtyID,
		Search:      c.Query("search"),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, doctors)
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteDoctor(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) AddWindows(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AddWindowsRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	windows, err := h.service.AddWindows(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, windows)
}

func (h *Handler) ListWindows(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.listWindows(c, id)
}

func (h *Handler) listWindows(c *gin.Context, doctorID uuid.UUID) {
	windows, err := h.service.ListWindows(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, windows)
}

func (h *Handler) DeleteWindow(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	windowID, err := handler.ParamID(c, "windowId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteWindow(c.Request.Context(), id, windowID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DaySlots(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.daySlots(c, id)
}

func (h *Handler) daySlots(c *gin.Context, doctorID uuid.UUID) {
	date, err := handler.QueryDate(c, "date")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if date == nil {
		httputil.RespondWithError(c, errors.NewValidation("date is required"))
		return
	}

	slots, err := h.service.DaySlots(c.Request.Context(), doctorID, *date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) OwnWindows(c *gin.Context) {
	doctorID, err := ownDoctorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.listWindows(c, doctorID)
}

func (h *Handler) OwnSlots(c *gin.Context) {
	doctorID, err := ownDoctorID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.daySlots(c, doctorID)
}

func ownDoctorID(c *gin.Context) (uuid.UUID, error) {
	actor, ok := model.ActorFromContext(c.Request.Context())
	if !ok {
		return uuid.Nil, errors.Unauthorized(nil)
	}
	if actor.DoctorID == nil {
		return uuid.Nil, errors.Forbidden("account has no doctor profile")
	}
	return *actor.DoctorID, nil
}
