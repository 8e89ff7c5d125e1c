// Command gateway runs the SSE sidecar as a standalone process: it
// loads configuration from the environment, wires the registry, the
// controller callback client, and the connect/send/health HTTP routes,
// then serves until SIGTERM/SIGINT, the way grifts.go's worker task
// waits on a signal channel and shuts its subsystem down in response.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/config"
	"github.com/johnjansen/sse-gateway/internal/gateway"
	"github.com/johnjansen/sse-gateway/internal/health"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

func main() {
	log := newLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log = newLogger(cfg.LogLevel)

	callbackConfigured := cfg.CallbackURL != ""
	var cb *callback.Client
	if callbackConfigured {
		cb = callback.New(cfg.CallbackURL, time.Duration(cfg.CallbackTimeout)*time.Second, log)
	}

	reg := registry.New()
	gw := gateway.New(reg, cb, log, time.Duration(cfg.HeartbeatInterval)*time.Second, callbackConfigured)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", health.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readyz(callbackConfigured)).Methods(http.MethodGet)
	router.HandleFunc("/internal/send", gw.Send).Methods(http.MethodPost)
	router.PathPrefix("/sse/").HandlerFunc(gw.Connect).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	if !callbackConfigured {
		log.Warn("CONTROLLER_CALLBACK_URL not set; /sse and /internal/send will return 503 until configured")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete", "open_connections_at_shutdown", gw.Len())
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
