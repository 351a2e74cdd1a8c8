package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/library-catalog/internal/adapters/http/handlers"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http/middleware"
	"github.com/jsamuelsen/library-catalog/internal/platform/config"
	"github.com/jsamuelsen/library-catalog/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default deadline for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains the handlers and settings the router wires together.
type RouterConfig struct {
	Logger     *slog.Logger
	AuthConfig *config.AuthConfig
	AppConfig  *config.AppConfig

	HealthHandler  *handlers.HealthHandler
	CatalogHandler *handlers.CatalogHandler
	ImportHandler  *handlers.ImportHandler

	// Timeout bounds each /api/v1 request. Zero disables the deadline.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Global middleware runs in this order:
//  1. Recovery
//  2. Request ID
//  3. Correlation ID
//  4. OpenTelemetry tracing and server metrics
//  5. Logging (skips /-/ probes)
//
// Route groups:
//   - /-/ probes, build info and Prometheus metrics
//   - /api/v1/ catalogue reads, and imports behind the librarian guards
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "library-catalog"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(serviceName)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutes(engine)
	}

	apiV1 := engine.Group("/api/v1", middleware.Timeout(cfg.Timeout), middleware.RequestScope())

	if cfg.CatalogHandler != nil {
		cfg.CatalogHandler.RegisterCatalogRoutes(apiV1)
	}

	if cfg.ImportHandler != nil {
		cfg.ImportHandler.RegisterImportRoutes(apiV1, middleware.LibrarianGuards(cfg.AuthConfig)...)
	}
}

// NewDefaultRouterConfig creates a RouterConfig with the default timeout.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	appCfg *config.AppConfig,
	authCfg *config.AuthConfig,
	healthHandler *handlers.HealthHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AuthConfig:    authCfg,
		AppConfig:     appCfg,
		HealthHandler: healthHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
