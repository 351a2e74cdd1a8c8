// Package main is the entry point for the library catalogue service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/library-catalog/internal/adapters/cache"
	"github.com/jsamuelsen/library-catalog/internal/adapters/catalogfile"
	"github.com/jsamuelsen/library-catalog/internal/adapters/clients"
	"github.com/jsamuelsen/library-catalog/internal/adapters/clients/acl"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http"
	"github.com/jsamuelsen/library-catalog/internal/adapters/http/handlers"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/memory"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/postgres"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/library-catalog/internal/app"
	"github.com/jsamuelsen/library-catalog/internal/platform/config"
	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/platform/telemetry"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// store is a library repository that can report its own health.
type store interface {
	ports.LibraryRepository
	ports.HealthChecker
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)
	logger.Debug("storage configuration", slog.Any("storage", cfg.Storage))

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Endpoint:      cfg.Telemetry.Endpoint,
		ServiceName:   cfg.Telemetry.ServiceName,
		Version:       cfg.App.Version,
		Environment:   cfg.App.Environment,
		StorageDriver: cfg.Storage.Driver,
		SamplingRate:  cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog := app.NewCatalogService(app.CatalogServiceConfig{
		Repository:      repo,
		Cache:           newCache(&cfg.Cache),
		CacheTTL:        cfg.Cache.TTL,
		LoadConcurrency: cfg.Catalog.LoadConcurrency,
		Logger:          logger,
	})

	if err := seedCatalog(ctx, cfg, catalog, logger); err != nil {
		return err
	}

	httpClient, err := clients.New(&clients.Config{
		BaseURL:       cfg.Services.OpenLibrary.BaseURL,
		ServiceName:   cfg.Services.OpenLibrary.Name,
		Timeout:       cfg.Client.Timeout,
		Retry:         cfg.Client.Retry,
		Circuit:       cfg.Client.CircuitBreaker,
		Transport:     cfg.Client.Transport,
		RatePerSecond: cfg.Imports.RatePerSecond,
		UserAgent:     cfg.App.Name + "/" + Version,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	openLibrary := acl.NewOpenLibrary(httpClient, logger)

	imports := app.NewImportService(app.ImportServiceConfig{
		Lookup:     openLibrary,
		Repository: repo,
		Catalog:    catalog,
		Enabled:    cfg.Imports.Enabled,
		Logger:     logger,
	})

	healthRegistry := ports.NewHealthRegistry(0)
	for _, checker := range []ports.HealthChecker{repo, openLibrary} {
		if err := healthRegistry.Register(checker); err != nil {
			return fmt.Errorf("registering %s health check: %w", checker.Name(), err)
		}
	}

	metrics, err := telemetry.NewCatalogMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("registering catalog metrics: %w", err)
	}

	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:         logger,
		AuthConfig:     &cfg.Auth,
		AppConfig:      &cfg.App,
		HealthHandler:  handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		CatalogHandler: handlers.NewCatalogHandler(catalog, metrics),
		ImportHandler:  handlers.NewImportHandler(imports, cfg.Catalog.DefaultLibrary, metrics),
		Timeout:        http.DefaultRequestTimeout,
	})

	serverErr, err := server.Start()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if mem, ok := repo.(*memory.Repository); ok && cfg.Catalog.Watch && cfg.Catalog.File != "" {
		g.Go(func() error {
			return catalogfile.Watch(gctx, cfg.Catalog.File, cfg.Catalog.WatchDebounce,
				func(ctx context.Context, seeds []ports.LibrarySeed) error {
					if err := mem.Replace(seeds); err != nil {
						return err
					}

					catalog.Invalidate(ctx)

					return nil
				})
		})
	} else if cfg.Catalog.Watch {
		logger.Warn("catalog.watch needs the memory driver and a catalog file; not watching")
	}

	g.Go(func() error {
		select {
		case err, ok := <-serverErr:
			if ok && err != nil {
				return fmt.Errorf("server error: %w", err)
			}

			return nil
		case <-gctx.Done():
		}

		logger.Info("initiating graceful shutdown", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// openStore opens the configured repository. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		repo, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path, cfg.Storage.SQLite.QueryTimeout, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("closing sqlite store", slog.Any("error", err))
			}
		}, nil

	case config.StoragePostgres:
		repo, err := postgres.Open(ctx, postgres.Config{
			DSN:          cfg.Storage.Postgres.DSN,
			MaxConns:     cfg.Storage.Postgres.MaxConns,
			QueryTimeout: cfg.Storage.Postgres.QueryTimeout,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}

		return repo, repo.Close, nil

	default:
		return memory.New(), func() {}, nil
	}
}

func newCache(cfg *config.CacheConfig) ports.Cache {
	if !cfg.Enabled {
		return cache.Noop{}
	}

	return cache.New(cfg.TTL, cfg.CleanupInterval)
}

// seedCatalog creates the libraries listed in the catalogue file that the
// store does not hold yet.
func seedCatalog(ctx context.Context, cfg *config.Config, catalog *app.CatalogService, logger *slog.Logger) error {
	if cfg.Catalog.File == "" {
		return nil
	}

	seeds, err := catalogfile.Load(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("loading catalogue: %w", err)
	}

	created, err := catalog.Seed(ctx, seeds)
	if err != nil {
		return err
	}

	logger.Info("catalogue seeded",
		slog.String("file", cfg.Catalog.File),
		slog.Int("declared", len(seeds)),
		slog.Int("created", created),
	)

	return nil
}
