// Package main wires together the release tracker service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/book-release-tracker/internal/clock/system"
	"github.com/JakeFAU/book-release-tracker/internal/config"
	"github.com/JakeFAU/book-release-tracker/internal/fetcher/headless"
	"github.com/JakeFAU/book-release-tracker/internal/id/uuid"
	"github.com/JakeFAU/book-release-tracker/internal/logging"
	"github.com/JakeFAU/book-release-tracker/internal/metrics"
	"github.com/JakeFAU/book-release-tracker/internal/service"
	"github.com/JakeFAU/book-release-tracker/internal/storage/postgres"
	"github.com/JakeFAU/book-release-tracker/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	if err := postgres.Migrate(cfg.DB.DSN); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
		MinConns: int32(cfg.DB.MinConns),
	}, uuid.New(), system.New())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	fetcher := headless.New(headless.Config{
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		SettleDelay:       cfg.SettleDelay(),
	})
	defer fetcher.Close()

	clock := system.New()
	w := worker.New(store, store, store, fetcher, clock, worker.Config{
		PollInterval: cfg.PollInterval(),
		BaseURL:      cfg.Scraper.BaseURL,
	}, logger.Named("worker"))

	svc := service.New(store, store, store, clock, logger.Named("service"))
	if cfg.Scraper.RefresherEnabled {
		svc.StartDailyRefresh(ctx)
		defer svc.StopDailyRefresh()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("worker started", zap.Duration("poll_interval", cfg.PollInterval()))
		if err := w.Run(ctx); err != nil {
			logger.Error("worker stopped", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("metrics server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
