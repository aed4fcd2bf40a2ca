package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fieldreport/internal/config"
	"fieldreport/internal/dataprocessing"
	apierrors "fieldreport/internal/errors"
	"fieldreport/internal/exporter"
	"fieldreport/internal/files"
	"fieldreport/internal/infrastructure"
	"fieldreport/internal/locale"
	customMiddleware "fieldreport/internal/middleware"
	"fieldreport/internal/services"
	"fieldreport/internal/share"
	"fieldreport/internal/source"
	handlers "fieldreport/internal/transport/http"
	ws "fieldreport/internal/websocket"
	"fieldreport/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	WebSocketHub  *ws.Hub
	Services      *ServiceContainer
	ErrorHandler  *apierrors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Source    *source.Client
	Builder   *dataprocessing.Builder
	Renderer  *exporter.Renderer
	Publisher *share.Publisher
	Exports   *files.Archive
	Reports   *services.ReportService
	Health    *services.HealthService
}

// NewApplication creates a new application instance with dependency injection.
// A nil cfg loads the configuration from file and environment.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices wires the report pipeline: record source, builder,
// renderer, share publisher and the services on top of them
func (a *Application) initializeServices(ctx context.Context) error {
	hub := ws.NewHub(a.Logger)
	hub.SetMetrics(a.Metrics)
	a.WebSocketHub = hub

	dates, err := locale.NewFormatter(a.Config.Locale.Tag, a.Config.Locale.Timezone)
	if err != nil {
		return fmt.Errorf("failed to create date formatter: %w", err)
	}

	src, err := source.NewClient(a.Config.Backend, a.Logger,
		source.WithMetrics(a.Metrics),
		source.WithTracer(a.OTelProviders.Tracer),
		source.WithLocation(dates.Location()))
	if err != nil {
		return fmt.Errorf("failed to create record source: %w", err)
	}

	builder := dataprocessing.NewBuilderWithConfig(a.Logger, dates, dataprocessing.BuilderConfig{
		GroupingChunks: a.Config.Export.GroupingChunks,
	})

	pdf := exporter.NewChromePDFConverter(exporter.PDFOptions{
		ChromePath: a.Config.Export.ChromePath,
		Headless:   a.Config.Export.Headless,
		Timeout:    a.Config.Export.PDFTimeout,
	}, a.Logger)
	renderer := exporter.NewRenderer(a.Logger, pdf)

	sink, err := share.NewSink(ctx, a.Config.Share, a.Paths, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create share sink: %w", err)
	}
	publisher := share.NewPublisher(sink, pdf, hub, a.Metrics, a.Logger)

	reports := services.NewReportService(src, builder, renderer, a.Logger,
		services.WithPublisher(publisher),
		services.WithMetrics(a.Metrics))

	health := services.NewHealthService(contracts.Version, a.Paths.ExportsDir, hub, reports, a.Logger)

	a.Services = &ServiceContainer{
		Source:    src,
		Builder:   builder,
		Renderer:  renderer,
		Publisher: publisher,
		Exports:   files.NewArchive(a.Paths.ExportsDir, a.Logger),
		Reports:   reports,
		Health:    health,
	}

	a.Logger.InfoContext(ctx, "Services initialized",
		slog.String("backend", a.Config.Backend.BaseURL),
		slog.String("locale", dates.Tag()),
		slog.String("share_sink", publisher.SinkName()))
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID and RealIP don't wrap the ResponseWriter, so they are safe for WebSocket upgrades.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		HandleFunc("/ws", ws.Handler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		return err
	}

	r.Group(func(r chi.Router) {
		// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → limits
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.Config.Logging.Development
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", a.setupAPIRoutes)
	})

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	reportHandler := handlers.NewReportHandler(a.Services.Reports, a.Logger, a.ErrorHandler)
	clientLogHandler := handlers.NewClientLogHandler(a.Logger, a.ErrorHandler)
	exportsHandler := handlers.NewExportsHandler(a.Services.Exports, a.Logger, a.ErrorHandler)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.With(customMiddleware.Session).Post("/logs", clientLogHandler.Handle)
	})

	// Document rendering and PDF printing get the longer export budget.
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.ExportTimeout, a.Logger))
		r.Use(customMiddleware.Compress(5))
		r.Mount("/reports", reportHandler.Routes())
		r.Mount("/exports", exportsHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Start starts the hub and the HTTP server. Listener failures cancel ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if _, err := a.Services.Exports.Prune(ctx, a.Config.Share.Retention, time.Now()); err != nil {
		a.Logger.WarnContext(ctx, "Export pruning incomplete", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Start()

	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+listener.Addr().String()))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
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
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(ctx)
}

// performStartupHealthCheck verifies the directories the service writes to
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Exports": a.Paths.ExportsDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if a.Config.Share.Sink == config.SinkDrive && !config.FileExists(a.Config.Share.DriveCredentialsFile) {
		warnings = append(warnings, fmt.Sprintf("Drive credentials not found: %s", a.Config.Share.DriveCredentialsFile))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
