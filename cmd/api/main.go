package main

import (
	"context"
	_ "embed"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breslov-ai/internal/app"
	"breslov-ai/internal/config"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about the writings of Rabbi Nahman of Breslov from a local library of books.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Breslov AI API
//   description: |
//     Question answering over the Breslov library. Answers are grounded in retrieved
//     passages and cite them; the API also lists books, searches and translates
//     passages and reads answers aloud.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

//go:embed index.html
var indexHTML string

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the library before serving: answers are only as good as the loaded books.
	report, err := a.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load library: %v", err)
	}
	slog.Info("Library loaded", "books", report.Loaded, "chunks", report.Chunks, "missing", len(report.Missing), "failed", len(report.Failed))

	if cfg.LibraryWatch {
		go func() {
			slog.Info("Watching library directory", "dir", cfg.LibraryDir)
			if err := a.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Library watcher stopped", "error", err)
			}
		}()
	}

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           a.Router(indexHTML),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	// Start API server
	slog.Info("Starting API server", "addr", srv.Addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("Server stopped")
}
