package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docingest/internal/archive"
	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/export"
	"github.com/joseph-ayodele/docingest/internal/extract"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
	"github.com/joseph-ayodele/docingest/internal/registry"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/server"
	"github.com/joseph-ayodele/docingest/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheStore, err := cache.NewRedisStore(cfg.Cache.URL, cfg.Cache.KeyPrefix, logger)
	if err != nil {
		logger.Error("cache store init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Warn("cache close failed", "error", err)
		}
	}()

	tables, db, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	}()

	extractor, err := extract.NewClient(cfg.Extractor.BaseURL, cfg.Extractor.Strategy, cfg.Extractor.Timeout, logger)
	if err != nil {
		logger.Error("extractor client init failed", "error", err)
		os.Exit(1)
	}

	jobRegistry := jobs.NewRegistry(cacheStore, cfg.Cache.TTL, logger)
	batcher := rows.NewBatcher(cacheStore, cfg.Cache.ChunkSize, cfg.Cache.TTL, logger)
	pipe := pipeline.New(jobRegistry, batcher, extractor, tables, logger)
	coordinator := archive.NewCoordinator(pipe, logger)
	exporter := export.NewService(tables, logger)

	services := registry.New()
	services.Register("extractor", cfg.Extractor.BaseURL)
	services.Register("cache", cfg.Cache.URL)
	services.Register("database", cfg.Database.Driver)
	services.Register("docingest", cfg.Server.Addr)
	_ = services.Connect("docingest", "extractor")
	_ = services.Connect("docingest", "cache")
	_ = services.Connect("docingest", "database")
	_ = services.SetHealth("cache", registry.HealthHealthy)
	_ = services.SetHealth("database", registry.HealthHealthy)

	svc := server.NewService(pipe, coordinator, jobRegistry, batcher, tables, exporter, services, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: svc.Router(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
