package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/extract"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/store"
	"github.com/joseph-ayodele/docingest/internal/worker"
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

	w := worker.New(cacheStore, pipe, cfg.Worker.PollInterval, cfg.Cache.TTL, logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
