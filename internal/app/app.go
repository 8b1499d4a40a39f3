// Package app assembles the Fiber application from its components.
package app

import (
	"time"

	"catalog/internal/config"
	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of the HTTP application. Events, Metrics,
// Limiter and Collectors are optional.
type Deps struct {
	Config     *config.Config
	Log        zerolog.Logger
	Repo       repositories.ProductRepository
	Events     services.EventPublisher
	Metrics    *middleware.Metrics
	Limiter    *middleware.RateLimitStore
	Collectors []prometheus.Collector
}

// New builds the Fiber app with middleware and every route registered.
func New(d Deps) *fiber.App {
	cfg := d.Config
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	for _, c := range d.Collectors {
		if err := d.Metrics.Register(c); err != nil {
			d.Log.Warn().Err(err).Msg("failed to register metrics collector")
		}
	}
	if d.Limiter == nil && cfg.RateLimitRPS > 0 {
		d.Limiter = middleware.NewRateLimitStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	app := fiber.New(fiber.Config{
		AppName:               "catalog",
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler(d.Log),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(d.Metrics.Middleware())
	app.Use(middleware.RequestLogger(d.Log))
	app.Use(middleware.Timeout(cfg.RequestTimeout))

	// --- Services ---
	productService := services.NewProductService(d.Repo, d.Events, d.Log)

	// --- Routes ---
	app.Get("/metrics", d.Metrics.Handler())
	handlers.NewHealthHandler(productService, d.Log).RegisterRoutes(app)

	// routes registered above are matched first and bypass the limiter
	var api fiber.Router = app
	if d.Limiter != nil {
		api = app.Group("", middleware.RateLimit(d.Limiter))
	}

	var guard []fiber.Handler
	if cfg.AuthEnabled() {
		authService := services.NewAuthService(cfg.JWTSecret, 0)
		guard = append(guard, middleware.AuthRequired(authService, d.Log))
	}
	handlers.NewProductHandler(productService).RegisterRoutes(api, guard...)

	return app
}
