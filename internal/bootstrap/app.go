package bootstrap

import (
	"context"
	"fmt"

	"github.com/JavaZeroo/gitee-monitor/internal/api"
	"github.com/JavaZeroo/gitee-monitor/internal/api/handler"
	"github.com/JavaZeroo/gitee-monitor/internal/cache"
	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/monitor"
	"github.com/JavaZeroo/gitee-monitor/internal/notify"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/config"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/postgres"
	"github.com/JavaZeroo/gitee-monitor/internal/platform"
	"github.com/JavaZeroo/gitee-monitor/internal/ratelimit"
	"github.com/JavaZeroo/gitee-monitor/internal/repository"
	"github.com/JavaZeroo/gitee-monitor/internal/service"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection
	Migrator *postgres.Migrator

	TrackedRepo repository.TrackedRepository
	AuthorRepo  repository.AuthorRepository

	TrackingService *service.TrackingService

	Clients   platform.Registry
	Limiters  ratelimit.Set
	Snapshots *cache.Snapshots
	Sink      notify.Sink
	Engine    *monitor.Engine

	MonitorHandler  *handler.MonitorHandler
	TrackingHandler *handler.TrackingHandler
	WebhookHandler  *handler.WebhookHandler

	HTTPServer *api.HTTPServer

	engineCancel context.CancelFunc
	engineDone   chan struct{}
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	pg, err := postgres.New(log, &postgres.Config{
		Host:              cfg.DatabaseHost,
		Port:              cfg.DatabasePort,
		Username:          cfg.DatabaseUser,
		Password:          cfg.DatabasePassword,
		Database:          cfg.DatabaseName,
		Schema:            cfg.DatabaseSchema,
		SSLMode:           cfg.DatabaseSSLMode,
		MaxConns:          cfg.DatabaseMaxConns,
		MinConns:          cfg.DatabaseMinConns,
		MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
		MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
		HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
		ConnectTimeout:    cfg.DatabaseConnectTimeout,
		AcquireTimeout:    cfg.DatabaseAcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection: %w", err)
	}

	return &Application{
		Config:   cfg,
		Logger:   log,
		Postgres: pg,
	}, nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	app.TrackedRepo = repository.NewTrackedRepo(app.Postgres.Pool(), app.Logger)
	app.AuthorRepo = repository.NewAuthorRepo(app.Postgres.Pool(), app.Logger)

	app.TrackingService = service.NewTrackingService(app.TrackedRepo, app.AuthorRepo, app.Logger)

	app.Clients = platform.NewRegistry(
		platform.ClientConfig{
			BaseURL:        app.Config.GiteeAPIURL,
			AccessToken:    app.Config.GiteeAccessToken,
			RequestTimeout: app.Config.RequestTimeout,
		},
		platform.ClientConfig{
			BaseURL:        app.Config.GitHubAPIURL,
			AccessToken:    app.Config.GitHubAccessToken,
			RequestTimeout: app.Config.RequestTimeout,
		},
		app.Logger,
	)
	app.Limiters = ratelimit.NewSet(app.Config.RateLimitPerSecond)
	app.Snapshots = cache.New(app.Config.CacheTTL)
	app.Sink = notify.NewLogSink(app.Logger)

	tracker := monitor.NewTracker(app.TrackedRepo, app.AuthorRepo, app.Clients, app.Limiters, app.Logger)
	pool := monitor.NewPool(app.Clients, app.Limiters, app.Snapshots, app.Sink, monitor.PoolConfig{
		MaxWorkers:   app.Config.MaxWorkers,
		Parallel:     app.Config.EnableParallelProcessing,
		RetryBackoff: app.Config.RetryBackoff,
	}, app.Logger)

	app.Engine = monitor.NewEngine(tracker, pool, app.Snapshots, app.Sink, app.Config.PollInterval, app.Logger)

	app.MonitorHandler = handler.NewMonitorHandler(app.Engine, app.Logger)
	app.TrackingHandler = handler.NewTrackingHandler(app.TrackingService, app.Logger)
	app.WebhookHandler = handler.NewWebhookHandler(app.Engine, app.Logger)

	serverConfig := &api.ServerConfig{
		Host:         app.Config.ServerHost,
		Port:         app.Config.ServerPort,
		ReadTimeout:  app.Config.ServerReadTimeout,
		WriteTimeout: app.Config.ServerWriteTimeout,
		IdleTimeout:  app.Config.ServerIdleTimeout,
	}

	app.HTTPServer = api.NewHTTPServer(
		serverConfig,
		app.MonitorHandler,
		app.TrackingHandler,
		app.WebhookHandler,
		app.Logger,
	)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	// the poll loop runs on its own context so HTTP shutdown and the
	// scheduler drain can be sequenced during Shutdown
	engineCtx, cancel := context.WithCancel(context.Background())
	app.engineCancel = cancel
	app.engineDone = make(chan struct{})
	go func() {
		defer close(app.engineDone)
		app.Engine.Run(engineCtx)
	}()

	app.Logger.Info("application initialized successfully",
		"platforms", []domain.Platform{domain.PlatformGitee, domain.PlatformGitHub},
		"poll_interval", app.Config.PollInterval,
		"cache_ttl", app.Config.CacheTTL,
	)
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	if app.engineCancel != nil {
		app.engineCancel()
		select {
		case <-app.engineDone:
		case <-ctx.Done():
			app.Logger.Warn("shutdown deadline hit while waiting for poll cycle")
		}
	}

	app.Postgres.Close()

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if err := app.Postgres.Health(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}
