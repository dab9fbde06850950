package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// Handler serves the administrator's account, specialty and dashboard routes.
type Handler struct {
	service account.AccountServicer
}

func NewHandler(service account.AccountServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.PATCH("/:id/toggle-active", h.ToggleActive)
		accounts.DELETE("/:id", h.DeleteAccount)
	}

	specialties := r.Group("/specialties")
	{
		specialties.POST("", h.CreateSpecialty)
		specialties.GET("", h.ListSpecialties)
		specialties.DELETE("/:id", h.DeleteSpecialty)
	}

	r.GET("/dashboard", h.Dashboard)
}

// RegisterReadRoutes mounts the specialty list for non-admin staff.
func (h *Handler) RegisterReadRoutes(r *gin.RouterGroup) {
	r.GET("/specialties", h.ListSpecialties)
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req model.CreateAccountRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	acc, err := h.service.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, acc)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	acc, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, acc)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.UpdateAccountRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	acc, err := h.service.UpdateAccount(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, acc)
}

func (h *Handler) ToggleActive(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	acc, err := h.service.ToggleActive(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, acc)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	active, err := handler.QueryBool(c, "is_active")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	filters := &model.AccountFilters{
		Search:   c.Query("search"),
		IsActive: active,
	}
	if role := c.Query("role"); role != "" {
		filters.Role = model.ParseRole(role)
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, accounts)
}

func (h *Handler) CreateSpecialty(c *gin.Context) {
	var req model.CreateSpecialtyRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	specialty, err := h.service.CreateSpecialty(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, specialty)
}

func (h *Handler) ListSpecialties(c *gin.Context) {
	specialties, err := h.service.ListSpecialties(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, specialties)
}

func (h *Handler) DeleteSpecialty(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteSpecialty(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.service.DashboardStats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}
