package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/fights"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

// ProcessingStore is the store surface the processing worker needs.
type ProcessingStore interface {
	GetMatch(ctx context.Context, matchID string) (*db.MatchRecord, error)
	ListTrackedPlayers(ctx context.Context, limit int) ([]db.TrackedPlayer, error)
	SetStageFlag(ctx context.Context, matchID, flag string) error

	InsertLandings(ctx context.Context, rows []telemetry.LandingRow) error
	InsertKills(ctx context.Context, rows []telemetry.KillRow) error
	InsertDamage(ctx context.Context, rows []telemetry.DamageRow) error
	InsertKnocks(ctx context.Context, rows []telemetry.KnockRow) error
	InsertCircles(ctx context.Context, rows []telemetry.CircleRow) error
	InsertWeaponDistribution(ctx context.Context, rows []telemetry.WeaponDistRow) error
	InsertItemUsage(ctx context.Context, rows []telemetry.ItemUsageRow) error
	InsertFinishing(ctx context.Context, rows []telemetry.FinishingRow) error
	InsertFights(ctx context.Context, list []fights.Fight) error
}

// TelemetryProcessing parses a match's event trace once and fans the parsed
// stream out to the extraction processors and the fight engine.
type TelemetryProcessing struct {
	store  ProcessingStore
	pub    Publisher
	logger logging.Interface

	// parallelism bounds the processor pool; defaults to one per core.
	parallelism int
}

func NewTelemetryProcessing(store ProcessingStore, pub Publisher) *TelemetryProcessing {
	return &TelemetryProcessing{
		store:       store,
		pub:         pub,
		logger:      logging.Component("telemetry-processing"),
		parallelism: runtime.NumCPU(),
	}
}

// Handle processes one match.telemetry_downloaded message. Stage flags gate
// each half so a partially processed match reruns only the missing stages,
// and every fact insert is idempotent on its natural key.
func (w *TelemetryProcessing) Handle(ctx context.Context, body []byte) error {
	var msg broker.MatchTelemetryDownloaded
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode match.telemetry_downloaded: %w", err)
	}

	rec, err := w.store.GetMatch(ctx, msg.MatchID)
	if err != nil {
		return err
	}
	if rec.TelemetryProcessed && rec.FightsProcessed {
		w.logger.Infof("match %s already processed, skipping", msg.MatchID)
		return nil
	}

	meta, events, err := w.load(ctx, rec, msg.TelemetryPath)
	if err != nil {
		metrics.WorkerErrors.WithLabelValues("telemetry-processing").Inc()
		return err
	}

	if !rec.TelemetryProcessed {
		if err := w.runProcessors(ctx, meta, events); err != nil {
			metrics.WorkerErrors.WithLabelValues("telemetry-processing").Inc()
			return err
		}
		if err := w.store.SetStageFlag(ctx, msg.MatchID, db.FlagTelemetryProcessed); err != nil {
			return err
		}
	}

	if !rec.FightsProcessed {
		if err := w.store.InsertFights(ctx, fights.Track(meta, events)); err != nil {
			metrics.WorkerErrors.WithLabelValues("telemetry-processing").Inc()
			return err
		}
		if err := w.store.SetStageFlag(ctx, msg.MatchID, db.FlagFightsProcessed); err != nil {
			return err
		}
	}

	next := broker.MatchProcessingComplete{
		MessageID: uuid.NewString(),
		MatchID:   msg.MatchID,
	}
	if err := w.pub.Publish(ctx, broker.KeyMatchProcessingComplete, next); err != nil {
		return err
	}
	w.logger.Infof("processed trace for %s (%d events)", msg.MatchID, len(events))
	return nil
}

// load parses the trace exactly once and assembles the match metadata the
// processors share.
func (w *TelemetryProcessing) load(ctx context.Context, rec *db.MatchRecord, path string) (telemetry.MatchMeta, []telemetry.Event, error) {
	meta := telemetry.MatchMeta{
		MatchID:   rec.MatchID,
		MapName:   rec.MapName,
		GameMode:  rec.GameMode,
		MatchType: rec.GameType,
		Tracked:   make(map[string]bool),
	}

	players, err := w.store.ListTrackedPlayers(ctx, 0)
	if err != nil {
		return meta, nil, err
	}
	for _, p := range players {
		meta.Tracked[p.PlayerName] = true
	}

	result, err := telemetry.ParseFile(path)
	if err != nil {
		return meta, nil, fmt.Errorf("parse trace for %s: %w", rec.MatchID, err)
	}
	if result.Skipped > 0 {
		w.logger.Warnf("match %s: skipped %d malformed events", rec.MatchID, result.Skipped)
	}
	return meta, result.Events, nil
}

// runProcessors fans the extraction processors out across a bounded pool.
// Processors only read the shared event slice, so they are safe to run
// concurrently.
func (w *TelemetryProcessing) runProcessors(ctx context.Context, meta telemetry.MatchMeta, events []telemetry.Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)

	g.Go(func() error {
		return w.store.InsertLandings(gctx, telemetry.ProcessLandings(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertKills(gctx, telemetry.ProcessKills(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertDamage(gctx, telemetry.ProcessDamage(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertKnocks(gctx, telemetry.ProcessKnocks(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertCircles(gctx, telemetry.ProcessCircles(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertWeaponDistribution(gctx, telemetry.ProcessWeaponDistribution(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertItemUsage(gctx, telemetry.ProcessItemUsage(meta, events))
	})
	g.Go(func() error {
		return w.store.InsertFinishing(gctx, telemetry.ProcessFinishing(meta, events))
	})

	return g.Wait()
}
