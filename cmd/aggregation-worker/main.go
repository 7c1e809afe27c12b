package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/aggregation"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Component("aggregation")

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

	svc := aggregation.New(store)
	if err := svc.Run(ctx, cfg.AggregationInterval); err != nil && ctx.Err() == nil {
		logger.Errorf("aggregation loop ended: %v", err)
		os.Exit(1)
	}
}
