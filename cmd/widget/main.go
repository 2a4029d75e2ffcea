// Package main is the entry point for the HarvestWatch widget engine.
//
// It loads configuration, wires the backend client, preference store, and
// widget instance, and serves the render model over HTTP. Graceful shutdown
// is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"harvestwatch/internal/api"
	"harvestwatch/internal/config"
	"harvestwatch/internal/escalation"
	"harvestwatch/internal/observability"
	"harvestwatch/internal/prefs"
	"harvestwatch/internal/weather"
	"harvestwatch/internal/widget"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("harvestwatch widget starting",
		"environment", cfg.Environment,
		"backend", cfg.Backend.BaseURL,
		"port", cfg.Server.Port,
	)

	store, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return fmt.Errorf("opening preference store: %w", err)
	}
	defer store.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}
	csrf, err := weather.NewCookieCSRF(jar, cfg.Backend.BaseURL, cfg.Backend.CSRFCookie)
	if err != nil {
		return fmt.Errorf("configuring CSRF source: %w", err)
	}

	client := weather.NewClient(weather.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: cfg.Backend.Timeout,
		},
		UserAgent: cfg.Backend.UserAgent,
		CSRF:      csrf,
		Logger:    logger,
	})

	metrics := observability.NewMetrics()

	w := widget.New(widget.Config{
		App:      cfg,
		Client:   client,
		Prefs:    store,
		Notifier: escalation.NewLogNotifier(logger, escalation.PermissionGranted),
		Logger:   logger,
		Metrics:  metrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Init(ctx); err != nil {
		return fmt.Errorf("initializing widget: %w", err)
	}
	defer w.Destroy()

	srv := api.NewServer(w, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("widget stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
