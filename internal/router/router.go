package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/opd-desk/internal/handler/auth"
	"github.com/jwalitptl/opd-desk/internal/handler/clinic"
	"github.com/jwalitptl/opd-desk/internal/handler/health"
	"github.com/jwalitptl/opd-desk/internal/handler/invoice"
	"github.com/jwalitptl/opd-desk/internal/handler/opd"
	"github.com/jwalitptl/opd-desk/internal/handler/option"
	"github.com/jwalitptl/opd-desk/internal/handler/patient"
	"github.com/jwalitptl/opd-desk/internal/handler/permission"
	"github.com/jwalitptl/opd-desk/internal/handler/user"
	"github.com/jwalitptl/opd-desk/internal/handler/visit"
	"github.com/jwalitptl/opd-desk/internal/middleware"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
	"github.com/jwalitptl/opd-desk/pkg/validator"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health     *health.Handler
	Auth       *auth.Handler
	Patient    *patient.Handler
	OPD        *opd.Handler
	Visit      *visit.Handler
	Option     *option.Handler
	User       *user.Handler
	Permission *permission.Handler
	Clinic     *clinic.Handler
	Invoice    *invoice.Handler
}

type RouterConfig struct {
	Mode        string
	Timeout     time.Duration
	RateLimit   middleware.RateLimiterConfig
	CORSConfig  middleware.CORSConfig
	MaxBodySize int64
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
		validator.Register(v)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout, Exempt: []string{"/api/v1/health"}}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(config.MaxBodySize),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimit.RPS > 0 {
		engine.Use(middleware.NewRateLimiter(config.RateLimit).RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(api)
	}

	r.handlers.Auth.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	require := r.auth.RequirePermission

	r.handlers.Auth.RegisterRoutes(rg)
	r.handlers.Patient.RegisterRoutes(rg, require(model.PermManagePatients))
	r.handlers.OPD.RegisterRoutes(rg, require(model.PermManageOPD))
	r.handlers.Visit.RegisterRoutes(rg, visit.Guards{
		Create:      require(model.PermCreateVisits),
		Edit:        require(model.PermEditVisits),
		Collections: require(model.PermViewCollections),
	})
	r.handlers.Option.RegisterRoutes(rg, require(model.PermManageClinicOptions))

	doctorOnly := r.auth.RequireRole(model.RoleDoctor)
	r.handlers.User.RegisterRoutes(rg, doctorOnly)
	r.handlers.Permission.RegisterRoutes(rg, doctorOnly)
	r.handlers.Clinic.RegisterRoutes(rg, doctorOnly)
	r.handlers.Clinic.RegisterAdminRoutes(rg, r.auth.RequireRole(model.RoleAdmin))
	r.handlers.Invoice.RegisterRoutes(rg, invoice.Guards{
		View:    require(model.PermViewInvoices),
		Create:  require(model.PermCreateInvoices),
		Edit:    require(model.PermEditInvoices),
		Summary: require(model.PermViewCollections),
	})
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
