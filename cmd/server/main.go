package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farm-backend/internal/config"
	"farm-backend/internal/database"
	"farm-backend/internal/metrics"
	"farm-backend/internal/server"
	"farm-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file (defaults to ./.env when present)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		// the logger level comes from the config, so fall back to a default one here
		logger.Must(logger.New("info")).Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("database close failed", zap.Error(err))
		}
	}()

	if err := database.Migrate(db, logger.Named(log, "database")); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	deps := server.Deps{Config: cfg, DB: db, Logger: log}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
	}
	app := server.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.HTTPPort), zap.String("driver", cfg.DatabaseDriver))
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("server stopped", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
