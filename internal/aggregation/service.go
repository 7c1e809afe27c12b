// Package aggregation rolls per-match event facts into career totals.
package aggregation

import (
	"context"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

const batchSize = 50

// Store is the store surface the aggregation loop needs.
type Store interface {
	ListUnaggregated(ctx context.Context, limit int) ([]db.MatchRecord, error)
	AggregateMatchDamage(ctx context.Context, matchID string) ([]db.DamageAgg, error)
	AggregateMatchWeapons(ctx context.Context, matchID string) ([]db.WeaponAgg, error)
	UpsertDamageStats(ctx context.Context, bucket string, aggs []db.DamageAgg) error
	UpsertWeaponStats(ctx context.Context, bucket string, aggs []db.WeaponAgg) error
	SetStageFlag(ctx context.Context, matchID, flag string) error
}

// Service polls for matches whose facts are written but not yet rolled up.
type Service struct {
	store  Store
	logger logging.Interface
}

func New(store Store) *Service {
	return &Service{store: store, logger: logging.Component("aggregation")}
}

// Run polls until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Errorf("aggregation pass failed: %v", err)
			metrics.WorkerErrors.WithLabelValues("aggregation").Inc()
		} else if n > 0 {
			s.logger.Infof("aggregated %d matches", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce aggregates one batch and reports how many matches it completed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	matches, err := s.store.ListUnaggregated(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, m := range matches {
		if err := s.aggregate(ctx, &m); err != nil {
			s.logger.Errorf("aggregate match %s: %v", m.MatchID, err)
			metrics.WorkerErrors.WithLabelValues("aggregation").Inc()
			continue
		}
		done++
	}
	return done, nil
}

// aggregate rolls one match into its mode bucket and the all bucket. The
// stage flag is set last; a failure before it leaves the match eligible for
// the next pass.
func (s *Service) aggregate(ctx context.Context, m *db.MatchRecord) error {
	bucket := db.MatchTypeBucket(m.GameType, m.IsTournamentMatch)

	damage, err := s.store.AggregateMatchDamage(ctx, m.MatchID)
	if err != nil {
		return err
	}
	weapons, err := s.store.AggregateMatchWeapons(ctx, m.MatchID)
	if err != nil {
		return err
	}

	for _, b := range []string{bucket, db.BucketAll} {
		if err := s.store.UpsertDamageStats(ctx, b, damage); err != nil {
			return err
		}
		if err := s.store.UpsertWeaponStats(ctx, b, weapons); err != nil {
			return err
		}
	}
	return s.store.SetStageFlag(ctx, m.MatchID, db.FlagStatsAggregated)
}
