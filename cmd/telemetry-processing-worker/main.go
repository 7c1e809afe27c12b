package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Component("telemetry-processing")

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

	bk, err := broker.Dial(cfg.Broker)
	if err != nil {
		logger.Errorf("broker connection failed: %v", err)
		os.Exit(3)
	}
	defer bk.Close()

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsPort); err != nil {
			logger.Warnf("metrics server: %v", err)
		}
	}()

	w := workers.NewTelemetryProcessing(store, bk)
	if err := bk.Consume(ctx, "telemetry_processing", broker.KeyMatchTelemetryDownloaded, w.Handle); err != nil && ctx.Err() == nil {
		logger.Errorf("consumption ended: %v", err)
		os.Exit(1)
	}
}
