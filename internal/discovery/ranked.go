package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

// RankedUpstream is the season and ranked-leaderboard surface of the API client.
type RankedUpstream interface {
	ListSeasons(ctx context.Context) ([]pubg.Season, error)
	GetRankedStats(ctx context.Context, accountID, seasonID string) ([]pubg.RankedStats, error)
}

// RankedStore is the store surface the refresher writes through.
type RankedStore interface {
	ListTrackedPlayers(ctx context.Context, limit int) ([]db.TrackedPlayer, error)
	UpsertSeasons(ctx context.Context, seasons []pubg.Season) error
	UpsertRankedStats(ctx context.Context, accountID, seasonID string, stats []pubg.RankedStats) error
}

// RankedRefresher keeps the season catalog and per-player ranked records
// current. It runs alongside discovery on a much slower cadence since season
// standings move slowly and each player costs one paced API call.
type RankedRefresher struct {
	upstream RankedUpstream
	store    RankedStore
	logger   logging.Interface
}

func NewRankedRefresher(upstream RankedUpstream, store RankedStore, logger logging.Interface) *RankedRefresher {
	return &RankedRefresher{upstream: upstream, store: store, logger: logger}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *RankedRefresher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.Refresh(ctx)
		if err != nil {
			r.logger.Errorf("ranked refresh failed: %v", err)
			metrics.WorkerErrors.WithLabelValues("ranked-refresh").Inc()
		} else {
			r.logger.Infof("ranked refresh complete: players=%d", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh syncs the season catalog and pulls ranked records for every tracked
// player that has a resolved account id. Players without ranked history this
// season are skipped, not failed.
func (r *RankedRefresher) Refresh(ctx context.Context) (int, error) {
	seasons, err := r.upstream.ListSeasons(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.store.UpsertSeasons(ctx, seasons); err != nil {
		return 0, err
	}

	var current string
	for _, s := range seasons {
		if s.IsCurrent {
			current = s.ID
			break
		}
	}
	if current == "" {
		r.logger.Warnf("no current season in upstream catalog, skipping ranked pull")
		return 0, nil
	}

	players, err := r.store.ListTrackedPlayers(ctx, 0)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, p := range players {
		if p.AccountID == "" {
			continue
		}
		stats, err := r.upstream.GetRankedStats(ctx, p.AccountID, current)
		if err != nil {
			if errors.Is(err, pubg.ErrNotFound) {
				continue
			}
			r.logger.Errorf("ranked stats for %s: %v", p.PlayerName, err)
			continue
		}
		if len(stats) == 0 {
			continue
		}
		if err := r.store.UpsertRankedStats(ctx, p.AccountID, current, stats); err != nil {
			r.logger.Errorf("store ranked stats for %s: %v", p.PlayerName, err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
