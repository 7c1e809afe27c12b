package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/backfill"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

const pollInterval = 30 * time.Second

func main() {
	enqueue := flag.String("enqueue", "", "queue backfill rows for this player before polling")
	once := flag.Bool("once", false, "drain one batch and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Component("backfill")

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("config load failed: %v", err)
		os.Exit(2)
	}

	pool, err := db.NewPool(ctx, cfg.Store.URL())
	if err != nil {
		logger.Errorf("db connection failed: %v", err)
		os.Exit(3)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsPort); err != nil {
			logger.Warnf("metrics server: %v", err)
		}
	}()

	window := time.Duration(cfg.BackfillWindowDays) * 24 * time.Hour
	orch := backfill.New(store, cfg.TelemetryRoot, window, cfg.BackfillMaxRetries, cfg.WorkerCount)

	if *enqueue != "" {
		if _, err := orch.EnqueuePlayer(ctx, *enqueue); err != nil {
			logger.Errorf("enqueue failed: %v", err)
			os.Exit(1)
		}
	}

	if *once {
		if _, err := orch.RunOnce(ctx); err != nil {
			logger.Errorf("backfill pass failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := orch.Run(ctx, pollInterval); err != nil && ctx.Err() == nil {
		logger.Errorf("backfill loop ended: %v", err)
		os.Exit(1)
	}
}
