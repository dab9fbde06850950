package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	accounth "github.com/jwalitptl/clinic-api/internal/handler/account"
	audith "github.com/jwalitptl/clinic-api/internal/handler/audit"
	authh "github.com/jwalitptl/clinic-api/internal/handler/auth"
	consultationh "github.com/jwalitptl/clinic-api/internal/handler/consultation"
	doctorh "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patienth "github.com/jwalitptl/clinic-api/internal/handler/patient"
	prometheush "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *authh.Handler
	Account      *accounth.Handler
	Audit        *audith.Handler
	Doctor       *doctorh.Handler
	Patient      *patienth.Handler
	Consultation *consultationh.Handler
	Health       *health.Handler
	Metrics      *prometheush.Handler
}

type RouterConfig struct {
	Mode        string
	RateLimit   rate.Limit
	RateBurst   int
	Timeout     time.Duration
	CORSConfig  middleware.CORSConfig
	MetricsPath string
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	h      Handlers
	config RouterConfig
}

func NewRouter(auth *middleware.AuthMiddleware, h Handlers, config RouterConfig) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if err := validator.RegisterGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	engine := gin.New()

	r := &Router{
		engine: engine,
		auth:   auth,
		h:      h,
		config: config,
	}

	// RequestID runs first so every later middleware can log it.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Sentry(),
		middleware.ErrorHandler(),
	)
	if h.Metrics != nil {
		engine.Use(h.Metrics.Middleware())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r, nil
}

func (r *Router) Setup() {
	if r.h.Metrics != nil {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.h.Metrics.Handler())
	}

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.h.Health.RegisterRoutes(api)

	// Public routes
	r.h.Auth.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.h.Auth.RegisterProtectedRoutes(protected)

	r.setupAdminRoutes(protected.Group("/admin", r.auth.RequireRole(model.RoleAdministrator)))
	r.setupReceptionRoutes(protected.Group("/reception", r.auth.RequireRole(model.RoleReception, model.RoleAdministrator)))
	r.setupDoctorRoutes(protected.Group("/doctor", r.auth.RequireRole(model.RoleDoctor)))
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	r.h.Account.RegisterRoutes(rg)
	r.h.Doctor.RegisterRoutes(rg)
	r.h.Audit.RegisterRoutes(rg)
}

func (r *Router) setupReceptionRoutes(rg *gin.RouterGroup) {
	r.h.Patient.RegisterRoutes(rg)
	r.h.Doctor.RegisterReadRoutes(rg)
	r.h.Account.RegisterReadRoutes(rg)
	r.h.Consultation.RegisterRoutes(rg)
}

func (r *Router) setupDoctorRoutes(rg *gin.RouterGroup) {
	r.h.Consultation.RegisterDoctorRoutes(rg)
	r.h.Doctor.RegisterSelfRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
