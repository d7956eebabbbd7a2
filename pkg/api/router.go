package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/vanhub/pkg/api/handlers"
	"github.com/urmzd/vanhub/pkg/device/schema"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// Options tunes the router.
type Options struct {
	// LegacyErrors answers failed legacy requests with 200 OK.
	LegacyErrors bool
	// CORSOrigins defaults to any origin when empty.
	CORSOrigins []string
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	intake    *dispatch.Intake
	validator *schema.Validator
	opts      Options
}

// NewRouter creates a new API router
func NewRouter(intake *dispatch.Intake, opts Options) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine, opts.CORSOrigins)

	router := &Router{
		engine:    engine,
		intake:    intake,
		validator: schema.NewValidator(),
		opts:      opts,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	if r.opts.Gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Plain-text endpoints kept for existing clients
	legacy := handlers.NewLegacyHandler(r.intake, r.opts.LegacyErrors)
	r.engine.GET("/", legacy.Index)
	r.engine.GET("/command", legacy.Command)
	r.engine.GET("/parsed_command", legacy.ParsedCommand)
	r.engine.GET("/sliders", legacy.Sliders)

	healthHandler := handlers.NewHealthHandler(r.intake)
	r.engine.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		devicesHandler := handlers.NewDevicesHandler(r.intake)
		controlHandler := handlers.NewControlHandler(r.intake, r.validator)

		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.GET("/:id", devicesHandler.GetDevice)
			devices.GET("/:id/level", devicesHandler.GetLevel)
			devices.POST("/:id/command", controlHandler.SendCommand)
		}

		v1.GET("/mailbox", controlHandler.Mailbox)
	}
}

// Handler exposes the engine for an http.Server.
func (r *Router) Handler() http.Handler {
	return r.engine
}
