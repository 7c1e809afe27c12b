// Package workers holds the queue-driven pipeline stages. Each worker
// consumes one routing key, performs its stage, advances the match's stage
// flag, and publishes the next key.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

// Publisher is the broker surface the workers publish through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// SummaryUpstream is the API surface the summary worker needs.
type SummaryUpstream interface {
	GetMatch(ctx context.Context, matchID string) (*pubg.Match, error)
}

// SummaryStore is the store surface the summary worker needs.
type SummaryStore interface {
	InsertSummaries(ctx context.Context, rows []db.SummaryRow) error
	SetStageFlag(ctx context.Context, matchID, flag string) error
	MarkMatchFailed(ctx context.Context, matchID, reason string) error
}

// MatchSummary writes per-participant summary rows for discovered matches.
type MatchSummary struct {
	upstream SummaryUpstream
	store    SummaryStore
	pub      Publisher
	logger   logging.Interface
}

func NewMatchSummary(upstream SummaryUpstream, store SummaryStore, pub Publisher) *MatchSummary {
	return &MatchSummary{
		upstream: upstream,
		store:    store,
		pub:      pub,
		logger:   logging.Component("match-summary"),
	}
}

// Handle processes one match.discovered message. A missing upstream match is
// terminal: the row is flagged failed and the message acknowledged so it does
// not dead-letter.
func (w *MatchSummary) Handle(ctx context.Context, body []byte) error {
	var msg broker.MatchDiscovered
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode match.discovered: %w", err)
	}

	match, err := w.upstream.GetMatch(ctx, msg.MatchID)
	if errors.Is(err, pubg.ErrNotFound) {
		w.logger.Warnf("match %s gone upstream, marking failed", msg.MatchID)
		if markErr := w.store.MarkMatchFailed(ctx, msg.MatchID, "match not found upstream"); markErr != nil {
			return markErr
		}
		return nil
	}
	if err != nil {
		metrics.WorkerErrors.WithLabelValues("match-summary").Inc()
		return fmt.Errorf("fetch match %s: %w", msg.MatchID, err)
	}

	rows := make([]db.SummaryRow, 0, len(match.Participants))
	for _, p := range match.Participants {
		rows = append(rows, db.SummaryFromParticipant(match.MatchID, p))
	}
	if err := w.store.InsertSummaries(ctx, rows); err != nil {
		metrics.WorkerErrors.WithLabelValues("match-summary").Inc()
		return err
	}
	if err := w.store.SetStageFlag(ctx, msg.MatchID, db.FlagSummary); err != nil {
		return err
	}

	next := broker.MatchSummaryComplete{
		MessageID:    uuid.NewString(),
		MatchID:      match.MatchID,
		MapName:      match.MapName,
		GameMode:     match.GameMode,
		TelemetryURL: match.TelemetryURL,
		CreatedAt:    match.CreatedAt,
	}
	if err := w.pub.Publish(ctx, broker.KeyMatchSummaryComplete, next); err != nil {
		return err
	}
	w.logger.Infof("summarized match %s (%d participants)", match.MatchID, len(rows))
	return nil
}
