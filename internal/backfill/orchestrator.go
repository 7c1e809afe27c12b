// Package backfill retroactively processes historical matches for newly
// tracked players.
package backfill

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/workers"
)

const batchSize = 20

// Store is the store surface the orchestrator needs.
type Store interface {
	EnqueueBackfill(ctx context.Context, playerName string, window time.Duration) (int, error)
	PendingBackfill(ctx context.Context, limit, maxRetries int) ([]db.BackfillItem, error)
	SetBackfillFlag(ctx context.Context, id int64, flag string) error
	FailBackfill(ctx context.Context, id int64, reason string, maxRetries int) error
	SkipBackfill(ctx context.Context, id int64, reason string) error
	GetMatch(ctx context.Context, matchID string) (*db.MatchRecord, error)

	InsertKills(ctx context.Context, rows []telemetry.KillRow) error
	InsertDamage(ctx context.Context, rows []telemetry.DamageRow) error
	InsertWeaponDistribution(ctx context.Context, rows []telemetry.WeaponDistRow) error
	InsertCircles(ctx context.Context, rows []telemetry.CircleRow) error
}

// Orchestrator drains the backfill queue with a bounded worker pool.
type Orchestrator struct {
	store         Store
	telemetryRoot string
	window        time.Duration
	maxRetries    int
	workers       int
	logger        logging.Interface
}

func New(store Store, telemetryRoot string, window time.Duration, maxRetries, workerCount int) *Orchestrator {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Orchestrator{
		store:         store,
		telemetryRoot: telemetryRoot,
		window:        window,
		maxRetries:    maxRetries,
		workers:       workerCount,
		logger:        logging.Component("backfill"),
	}
}

// EnqueuePlayer queues the player's telemetry-processed matches inside the
// backfill window.
func (o *Orchestrator) EnqueuePlayer(ctx context.Context, playerName string) (int, error) {
	n, err := o.store.EnqueueBackfill(ctx, playerName, o.window)
	if err != nil {
		return 0, err
	}
	o.logger.Infof("queued %d backfill rows for %s", n, playerName)
	return n, nil
}

// Run polls the queue until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := o.RunOnce(ctx)
		if err != nil {
			o.logger.Errorf("backfill pass failed: %v", err)
			metrics.WorkerErrors.WithLabelValues("backfill").Inc()
		} else if n > 0 {
			o.logger.Infof("processed %d backfill rows", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch and dispatches the rows across the worker pool.
func (o *Orchestrator) RunOnce(ctx context.Context) (int, error) {
	items, err := o.store.PendingBackfill(ctx, batchSize, o.maxRetries)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, it := range items {
		it := it
		g.Go(func() error {
			if err := o.process(gctx, it); err != nil {
				o.logger.Errorf("backfill row %d (%s/%s): %v", it.ID, it.PlayerName, it.MatchID, err)
				metrics.WorkerErrors.WithLabelValues("backfill").Inc()
				return o.store.FailBackfill(gctx, it.ID, err.Error(), o.maxRetries)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(items), nil
}

// process runs each extraction processor for one (player, match) pair,
// advancing a per-processor flag as it completes. A missing trace file is
// terminal: the row is skipped, not retried.
func (o *Orchestrator) process(ctx context.Context, it db.BackfillItem) error {
	rec, err := o.store.GetMatch(ctx, it.MatchID)
	if err != nil {
		return err
	}

	path := workers.TracePath(o.telemetryRoot, it.MatchID)
	if _, err := os.Stat(path); err != nil {
		return o.store.SkipBackfill(ctx, it.ID, "trace not on disk")
	}

	result, err := telemetry.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse trace: %w", err)
	}

	meta := telemetry.MatchMeta{
		MatchID:   rec.MatchID,
		MapName:   rec.MapName,
		GameMode:  rec.GameMode,
		MatchType: rec.GameType,
		Tracked:   map[string]bool{it.PlayerName: true},
	}
	events := result.Events

	steps := []struct {
		flag string
		run  func() error
	}{
		{db.BackfillFlagKills, func() error {
			return o.store.InsertKills(ctx, filterKills(telemetry.ProcessKills(meta, events), it.PlayerName))
		}},
		{db.BackfillFlagDamage, func() error {
			return o.store.InsertDamage(ctx, filterDamage(telemetry.ProcessDamage(meta, events), it.PlayerName))
		}},
		{db.BackfillFlagWeapons, func() error {
			return o.store.InsertWeaponDistribution(ctx, filterWeapons(telemetry.ProcessWeaponDistribution(meta, events), it.PlayerName))
		}},
		{db.BackfillFlagCircles, func() error {
			return o.store.InsertCircles(ctx, telemetry.ProcessCircles(meta, events))
		}},
	}
	for _, step := range steps {
		// A retried row resumes at its first incomplete step.
		if it.FlagDone(step.flag) {
			continue
		}
		if err := step.run(); err != nil {
			return err
		}
		if err := o.store.SetBackfillFlag(ctx, it.ID, step.flag); err != nil {
			return err
		}
	}
	return nil
}

// The extraction processors emit rows for every participant; a backfill row
// concerns a single player, so rows are narrowed before insertion.

func filterKills(rows []telemetry.KillRow, player string) []telemetry.KillRow {
	out := rows[:0]
	for _, r := range rows {
		if r.VictimName == player || (r.KillerName != nil && *r.KillerName == player) {
			out = append(out, r)
		}
	}
	return out
}

func filterDamage(rows []telemetry.DamageRow, player string) []telemetry.DamageRow {
	out := rows[:0]
	for _, r := range rows {
		if r.VictimName == player || (r.AttackerName != nil && *r.AttackerName == player) {
			out = append(out, r)
		}
	}
	return out
}

func filterWeapons(rows []telemetry.WeaponDistRow, player string) []telemetry.WeaponDistRow {
	out := rows[:0]
	for _, r := range rows {
		if r.PlayerName == player {
			out = append(out, r)
		}
	}
	return out
}
