package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/dedup"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/discovery"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	tournament := flag.Bool("tournament", false, "sweep the tournament roster instead of the standard one")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Component("discovery")

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

	cache, err := dedup.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warnf("dedup cache unavailable, continuing without: %v", err)
	}
	defer cache.Close()

	client, err := pubg.NewClient(cfg.APIKeys, cfg.RankedKey, cfg.Platform)
	if err != nil {
		logger.Errorf("api client setup failed: %v", err)
		os.Exit(2)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsPort); err != nil {
			logger.Warnf("metrics server: %v", err)
		}
	}()

	var svc *discovery.Service
	if *tournament {
		svc = discovery.NewTournament(client, store, bk, cache, logger)
	} else {
		svc = discovery.New(client, store, bk, cache, logger)
	}

	if *once {
		stats, err := svc.Sweep(ctx)
		if err != nil {
			logger.Errorf("sweep failed: %v", err)
			os.Exit(1)
		}
		logger.Infof("sweep complete: players=%d seen=%d discovered=%d elapsed=%s",
			stats.PlayersScanned, stats.MatchesSeen, stats.MatchesDiscovered, stats.Elapsed)
		return
	}

	if cfg.RankedKey != nil {
		refresher := discovery.NewRankedRefresher(client, store, logging.Component("ranked-refresh"))
		go func() {
			// Ranked standings move slowly; every pass costs one paced call
			// per tracked player.
			_ = refresher.Run(ctx, 12*time.Hour)
		}()
	}

	if err := svc.Run(ctx, cfg.DiscoveryInterval); err != nil && ctx.Err() == nil {
		logger.Errorf("discovery loop ended: %v", err)
		os.Exit(1)
	}
}
