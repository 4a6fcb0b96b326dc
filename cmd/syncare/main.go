package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/syncare/internal/config"
	"github.com/dukerupert/syncare/internal/logging"
	"github.com/dukerupert/syncare/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := cfg.OpenKV(ctx)
	if err != nil {
		logger.Error("failed to open storage", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeKV()

	srv, err := server.New(ctx, kv, server.Options{
		SOSInterval:    cfg.SOSInterval,
		OriginPatterns: cfg.AllowedOrigins,
	}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv.StartPoller(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("syncare running", "addr", "http://localhost:"+cfg.Port, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	srv.StopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
