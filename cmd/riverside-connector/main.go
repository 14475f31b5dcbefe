package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/config"
	"github.com/venkytv/riverside-connector/pkg/credentials"
	"github.com/venkytv/riverside-connector/pkg/meetings"
	"github.com/venkytv/riverside-connector/pkg/nats"
	"github.com/venkytv/riverside-connector/pkg/secrets"
	"github.com/venkytv/riverside-connector/pkg/server"
	"github.com/venkytv/riverside-connector/pkg/video"
	"github.com/venkytv/riverside-connector/pkg/video/providers"
	"github.com/venkytv/riverside-connector/pkg/video/riverside"
)

const (
	defaultConfigPath = "config.yaml"
	gracefulTimeout   = 30 * time.Second
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to configuration file")
	version    = flag.Bool("version", false, "Print version information")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// Version information - can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	app, err := NewApp(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		app.logger.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	app.logger.Info("Riverside connector started successfully")

	sig := <-sigChan
	app.logger.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		app.logger.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	app.logger.Info("Riverside connector stopped gracefully")
}

// App holds the main application components
type App struct {
	config        *config.Config
	logger        *slog.Logger
	natsPublisher *nats.Publisher
	monitor       *credentials.Monitor
	httpServer    *server.Server
}

// NewApp creates a new application instance
func NewApp(configPath string, debugMode bool) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging, debugMode)
	logger.Info("Starting riverside connector",
		"version", Version,
		"commit", GitCommit,
		"build_time", BuildTime,
		"config_path", configPath)

	cipher, err := secrets.NewCipher(cfg.Security.EncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	var store credentials.Store
	switch cfg.Store.Backend {
	case "memory":
		store = credentials.NewMemoryStore()
	case "file":
		store, err = credentials.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
	logger.Info("Configured credential store", "backend", cfg.Store.Backend)

	resolver := credentials.NewResolver(store, cipher, logger)

	riversideConfig := riverside.Config{
		BaseURL:        cfg.Provider.BaseURL,
		StudioBaseURL:  cfg.Provider.StudioBaseURL,
		RequestTimeout: cfg.Provider.RequestTimeout,
	}

	var showBindings riverside.ShowResolver
	if len(cfg.Provider.ShowBindings) > 0 {
		showBindings = riverside.StaticShowBindings(cfg.Provider.ShowBindings)
		logger.Info("Configured show bindings", "count", len(cfg.Provider.ShowBindings))
	}

	factory := video.NewDefaultAdapterFactory()
	providers.InitializeBuiltinAdapters(factory, riversideConfig, showBindings, nil, logger)

	// Lifecycle events go to NATS when enabled; otherwise they are only
	// logged, and the rest of the service is unaffected.
	var natsPublisher *nats.Publisher
	var publisher meetings.EventPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err = nats.NewPublisher(&nats.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		publisher = natsPublisher
	} else {
		publisher = &LogPublisher{logger: logger}
		logger.Info("NATS disabled - lifecycle events will only be logged")
	}

	service := meetings.NewService(
		meetings.Config{ProviderType: riverside.MeetingType},
		store,
		resolver,
		cipher,
		factory,
		publisher,
		logger,
	)

	var monitor *credentials.Monitor
	if cfg.Monitor.Enabled {
		validate := func(ctx context.Context, apiKey string) error {
			return riverside.NewClient(riversideConfig, apiKey, nil, logger).ValidateKey(ctx)
		}
		monitorConfig := credentials.DefaultMonitorConfig()
		monitorConfig.Interval = cfg.Monitor.Interval
		monitor = credentials.NewMonitor(monitorConfig, store, resolver, validate, logger)
	}

	var health server.HealthChecker
	if natsPublisher != nil {
		health = natsPublisher
	}
	httpServer := server.New(server.Config{ListenAddr: cfg.Server.ListenAddr}, service, health, logger)

	return &App{
		config:        cfg,
		logger:        logger,
		natsPublisher: natsPublisher,
		monitor:       monitor,
		httpServer:    httpServer,
	}, nil
}

// Start starts the application services
func (a *App) Start() error {
	if a.monitor != nil {
		if err := a.monitor.Start(); err != nil {
			return fmt.Errorf("failed to start credential monitor: %w", err)
		}
	}

	a.httpServer.Start()
	return nil
}

// Stop gracefully stops the application services
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
	}

	if a.monitor != nil {
		if err := a.monitor.Stop(); err != nil {
			a.logger.Error("Error stopping credential monitor", "error", err)
		}
	}

	if a.natsPublisher != nil {
		if err := a.natsPublisher.Close(); err != nil {
			a.logger.Error("Error closing NATS publisher", "error", err)
		}
	}

	return nil
}

// setupLogger configures the application logger
func setupLogger(cfg config.LoggingConfig, debugMode bool) *slog.Logger {
	var level slog.Level

	// Override config level if debug mode is enabled
	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Riverside Connector %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Time: %s\n", BuildTime)
}

// LogPublisher logs lifecycle events instead of publishing them, for
// deployments without a message bus
type LogPublisher struct {
	logger *slog.Logger
}

// PublishMeetingEvent logs the event instead of publishing it
func (p *LogPublisher) PublishMeetingEvent(ctx context.Context, event *models.MeetingEvent) error {
	p.logger.Info("Meeting lifecycle event",
		"action", event.Action,
		"booking_uid", event.BookingUID,
		"meeting_id", event.Meeting.ID,
		"meeting_url", event.Meeting.URL)
	return nil
}
