package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sheetpulse/internal/config"
	apierrors "sheetpulse/internal/errors"
	"sheetpulse/internal/infrastructure"
	"sheetpulse/internal/middleware"
	"sheetpulse/internal/services"
	"sheetpulse/internal/sources"
	httptransport "sheetpulse/internal/transport/http"
	"sheetpulse/internal/validation"
	"sheetpulse/internal/websocket"
	"sheetpulse/pkg/contracts"
)

// Application wires configuration, services and transport together and owns
// their lifecycle.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Services      *ServiceContainer
	Hub           *websocket.Hub
	Router        chi.Router
	Server        *http.Server

	closers []io.Closer
}

// ServiceContainer holds the application services
type ServiceContainer struct {
	Registry *sources.Registry
	Fetcher  services.SourceFetcher
	Datasets *services.DatasetStore
	Ingest   *services.IngestService
	Reports  *services.ReportService
	Sources  *services.SourceService
	Health   *services.HealthService
}

// Option customizes an Application before its services are built
type Option func(*Application)

// WithFetcher replaces the remote spreadsheet fetcher
func WithFetcher(f services.SourceFetcher) Option {
	return func(a *Application) {
		a.Services.Fetcher = f
	}
}

// NewApplication loads configuration from the environment and builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from cfg. The HTTP server is created but not
// started.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}
	paths.LogPathResolution(logger)

	a := &Application{
		Config:   cfg,
		Paths:    paths,
		Logger:   logger,
		Services: &ServiceContainer{},
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = otelProviders

	a.Metrics, err = infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		logger.Warn("business metrics disabled", slog.String("error", err.Error()))
	}

	wsMetrics, err := websocket.NewMetrics(otelProviders.Meter)
	if err != nil {
		logger.Warn("websocket metrics disabled", slog.String("error", err.Error()))
	}
	a.Hub = websocket.NewHub(cfg.WebSocket, wsMetrics, logger)

	for _, opt := range opts {
		opt(a)
	}

	if err := a.initializeServices(); err != nil {
		a.close()
		return nil, err
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices builds the registry, fetcher and services
func (a *Application) initializeServices() error {
	store, err := a.newSourceStore()
	if err != nil {
		return fmt.Errorf("failed to open source registry: %w", err)
	}

	svc := a.Services
	svc.Registry = sources.NewRegistry(store, a.Metrics, a.Logger)

	if svc.Fetcher == nil {
		fetcher, err := sources.NewFetcher(context.Background(), a.Config.Sources, a.Metrics, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create source fetcher: %w", err)
		}
		svc.Fetcher = fetcher
	}

	svc.Datasets = services.NewDatasetStore(a.Config.Datasets.MaxRetained)
	svc.Ingest = services.NewIngestService(svc.Datasets, a.Hub, a.Metrics, a.Logger)
	svc.Reports = services.NewReportService(svc.Datasets, a.Hub, a.Logger)
	svc.Sources = services.NewSourceService(svc.Registry, svc.Fetcher, svc.Ingest, a.Hub, a.Logger)
	svc.Health = services.NewHealthServiceWithBuildInfo(contracts.Version, contracts.BuildTime, contracts.GitCommit,
		svc.Registry, svc.Datasets, a.Hub, a.Logger)

	a.Logger.Info("services initialized",
		slog.String("sources_backend", a.Config.Sources.Backend),
		slog.Int("max_datasets", a.Config.Datasets.MaxRetained))
	return nil
}

// newSourceStore opens the configured registry backend
func (a *Application) newSourceStore() (sources.Store, error) {
	cfg := a.Config.Sources
	switch cfg.Backend {
	case config.BackendFile:
		return sources.NewFileStore(a.Paths.DataFile(cfg.FilePath))
	case config.BackendSQLite:
		store, err := sources.NewSQLiteStore(a.Paths.DataFile(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.BackendHTTP:
		return sources.NewHTTPStore(cfg.APIURL, cfg.APIKey, cfg.FetchTimeout)
	case config.BackendMemory, "":
		return sources.NewMemoryStore(), nil
	default:
		return nil, apierrors.NewConfigError(fmt.Sprintf("unknown sources backend %q", cfg.Backend), nil).
			WithContext("backend", cfg.Backend)
	}
}

// setupRouter configures middleware and routes. /ws only gets the
// middleware that leaves the ResponseWriter alone.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle(config.WebSocketEndpoint, websocket.NewHandler(a.Hub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	} else {
		r.Handle(config.MetricsEndpoint, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(middleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(middleware.CORS(a.getCORSConfig()))
		}

		a.setupAPIRoutes(r, errorHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.StructuredLogger(a.Logger))
			r.Use(apierrors.RecoveryMiddleware(errorHandler))
			a.setupHTMLRoutes(r)
		})
	})

	a.Router = r
}

// setupAPIRoutes configures the JSON API
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	validator := middleware.NewRequestValidator()
	files := validation.NewFileValidator(a.Config.Upload, a.Logger)
	svc := a.Services

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				errorHandler,
				a.Logger,
			).Handler)
		}
		if a.Config.Server.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(a.Config.Server.RequestTimeout))
		}

		healthHandler := httptransport.NewHealthHandler(svc.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount("/datasets", httptransport.NewDatasetHandler(svc.Ingest, svc.Reports, files, validator, errorHandler, a.Logger).Routes())
		r.Mount("/sources", httptransport.NewSourceHandler(svc.Sources, validator, errorHandler, a.Logger).Routes())
		r.With(middleware.ContentTypeValidator(errorHandler, "application/json")).
			Post("/logs", httptransport.NewClientLogHandler(validator, errorHandler, a.Logger).Handle)
	})
}

// setupHTMLRoutes serves the dashboard bundle from the web directory
func (a *Application) setupHTMLRoutes(r chi.Router) {
	r.Handle("/static/*", httptransport.StaticFiles(a.Paths.WebDir))
	r.Get("/", httptransport.ServeDashboard(a.Paths.WebDir, contracts.Version))
}

func (a *Application) getCORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the websocket hub and the HTTP server. A listen failure
// calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop drains the HTTP server, then disconnects websocket clients and
// flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Hub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("context cancelled, shutting down")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()

	err := a.Stop(stopCtx)
	if closeErr := infrastructure.CloseLogFile(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}
