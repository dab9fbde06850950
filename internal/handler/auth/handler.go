package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	svc auth.AuthServicer
}

func NewHandler(svc auth.AuthServicer) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the routes that need an authenticated caller.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, tokens)
}

type meResponse struct {
	AccountID string     `json:"account_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	DoctorID  *string    `json:"doctor_id,omitempty"`
}

func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	resp := meResponse{
		AccountID: claims.AccountID.String(),
		Username:  claims.Username,
		Role:      claims.Role,
	}
	if claims.DoctorID != nil {
		id := claims.DoctorID.String()
		resp.DoctorID = &id
	}
	httputil.RespondWithSuccess(c, http.StatusOK, resp)
}
