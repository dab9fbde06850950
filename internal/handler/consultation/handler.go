package consultation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/booking"
	"github.com/jwalitptl/clinic-api/internal/service/consultation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves booking and the consultation lifecycle. Which caller may do
// what is decided by the consultation service from the actor in the context.
type Handler struct {
	booking       booking.BookingServicer
	consultations consultation.ConsultationServicer
}

func NewHandler(bookingSvc booking.BookingServicer, consultationSvc consultation.ConsultationServicer) *Handler {
	return &Handler{
		booking:       bookingSvc,
		consultations: consultationSvc,
	}
}

// RegisterRoutes mounts the reception desk routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.Book)
		consultations.GET("", h.List)
		consultations.GET("/:id", h.Get)
		consultations.PATCH("/:id/status", h.Transition)
		consultations.DELETE("/:id", h.Delete)
		consultations.GET("/:id/prescriptions", h.ListPrescriptions)
	}
}

// RegisterDoctorRoutes mounts the routes a doctor uses on their own queue.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("", h.List)
		consultations.GET("/:id", h.Get)
		consultations.PATCH("/:id/status", h.Transition)
		consultations.POST("/:id/prescriptions", h.AddPrescription)
		consultations.GET("/:id/prescriptions", h.ListPrescriptions)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookingRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	consultation, err := h.booking.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, consultation)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	consultation, err := h.consultations.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, consultation)
}

func (h *Handler) List(c *gin.Context) {
	filters, err := listFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	consultations, err := h.consultations.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, consultations)
}

func listFilters(c *gin.Context) (*model.ConsultationFilters, error) {
	doctorID, err := handler.QueryID(c, "doctor_id")
	if err != nil {
		return nil, err
	}
	patientID, err := handler.QueryID(c, "patient_id")
	if err != nil {
		return nil, err
	}
	date, err := handler.QueryDate(c, "date")
	if err != nil {
		return nil, err
	}

	filters := &model.ConsultationFilters{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
	}
	if shift := model.Shift(c.Query("shift")); shift != "" {
		if !shift.Valid() {
			return nil, errors.NewValidation("shift must be one of: morning, afternoon, evening")
		}
		filters.Shift = shift
	}
	if status := c.Query("status"); status != "" {
		st, err := model.ParseConsultationStatus(status)
		if err != nil {
			return nil, errors.NewValidation("status must be one of: waiting, attended, cancelled")
		}
		filters.Status = st
	}
	return filters, nil
}

func (h *Handler) Transition(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.TransitionRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	consultation, err := h.consultations.Transition(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, consultation)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.consultations.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) AddPrescription(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.CreatePrescriptionRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	prescription, err := h.consultations.AddPrescription(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, prescription)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	prescriptions, err := h.consultations.ListPrescriptions(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, prescriptions)
}
