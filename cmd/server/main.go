package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/handler"
	"github.com/decisionxray/xray/internal/middleware"
	"github.com/decisionxray/xray/internal/pkg/logger"
)

const appVersion = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.Release == "" {
		cfg.Sentry.Release = "xray@" + appVersion
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = cfg.Server.Env
	}
	sentryEnabled := cfg.Sentry.Enabled && cfg.Sentry.DSN != ""
	if err := middleware.InitSentry(cfg.Sentry); err != nil {
		log.Error("failed to initialize Sentry", zap.Error(err))
		sentryEnabled = false
	} else if sentryEnabled {
		log.Info("Sentry initialized",
			zap.String("environment", cfg.Sentry.Environment),
			zap.String("release", cfg.Sentry.Release),
		)
		defer middleware.FlushSentry(5 * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := initDependencies(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close()

	app := newApp(cfg, deps, sentryEnabled)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting server",
			zap.String("addr", addr),
			zap.String("store", cfg.Store.Backend),
		)
		if err := app.Listen(addr); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

// newApp builds the fiber application with the global middleware chain
func newApp(cfg *config.Config, deps *Dependencies, sentryEnabled bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Decision X-Ray API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler:          handler.ErrorHandler(deps.Logger),
	})

	app.Use(middleware.Helmet())
	app.Use(middleware.RequestID())
	app.Use(middleware.Recover(deps.Logger, sentryEnabled))
	app.Use(middleware.NewLoggerMiddleware(middleware.DefaultLoggerConfig(deps.Logger)).Handler())
	app.Use(middleware.NewCORSMiddleware(middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)).Handler())
	app.Use(middleware.NewMetricsMiddleware(middleware.DefaultMetricsConfig()).Handler())

	registerRoutes(app, deps)
	return app
}
