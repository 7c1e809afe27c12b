package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// Match statuses.
const (
	StatusDiscovered = "discovered"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Stage flag column names. SetStageFlag only accepts members of this set.
const (
	FlagSummary             = "summary"
	FlagTelemetryDownloaded = "telemetry_downloaded"
	FlagTelemetryProcessed  = "telemetry_processed"
	FlagFightsProcessed     = "fights_processed"
	FlagStatsAggregated     = "stats_aggregated"
)

var stageFlags = map[string]bool{
	FlagSummary:             true,
	FlagTelemetryDownloaded: true,
	FlagTelemetryProcessed:  true,
	FlagFightsProcessed:     true,
	FlagStatsAggregated:     true,
}

// MatchRecord is one row of the matches table.
type MatchRecord struct {
	MatchID      string
	MapName      string
	GameMode     string
	GameType     string
	TelemetryURL string
	CreatedAt    time.Time
	Status       string
	ErrorMessage *string

	Summary             bool
	TelemetryDownloaded bool
	TelemetryProcessed  bool
	FightsProcessed     bool
	StatsAggregated     bool

	IsTournamentMatch bool
	DiscoveredBy      string
	DiscoveryPriority int
}

// KnownMatchIDs returns the set of already-known match ids, optionally
// bounded to matches created in the last `window` (zero means full scan).
func (s *Store) KnownMatchIDs(ctx context.Context, window time.Duration) (map[string]bool, error) {
	defer metrics.ObserveDB("known_match_ids")()

	query := `SELECT match_id FROM matches`
	args := []any{}
	if window > 0 {
		query += ` WHERE created_at > $1`
		args = append(args, time.Now().UTC().Add(-window))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list known matches: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = true
	}
	return known, rows.Err()
}

// InsertMatch inserts a newly discovered match with all stage flags false.
// A conflicting match id is skipped; the return reports whether a row was
// actually inserted, so concurrent discovery sweeps stay idempotent.
func (s *Store) InsertMatch(ctx context.Context, m *MatchRecord) (bool, error) {
	defer metrics.ObserveDB("insert_match")()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO matches (
			match_id, map_name, game_mode, game_type, telemetry_url, created_at,
			status, discovered_by, discovery_priority, is_tournament_match
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (match_id) DO NOTHING
	`, m.MatchID, m.MapName, m.GameMode, m.GameType, m.TelemetryURL, m.CreatedAt,
		StatusDiscovered, m.DiscoveredBy, m.DiscoveryPriority, m.IsTournamentMatch)
	if err != nil {
		return false, fmt.Errorf("insert match %s: %w", m.MatchID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetMatch reads one match row.
func (s *Store) GetMatch(ctx context.Context, matchID string) (*MatchRecord, error) {
	defer metrics.ObserveDB("get_match")()

	m := &MatchRecord{}
	err := s.pool.QueryRow(ctx, `
		SELECT match_id, map_name, game_mode, game_type, telemetry_url, created_at,
		       status, error_message,
		       summary, telemetry_downloaded, telemetry_processed,
		       fights_processed, stats_aggregated
		FROM matches
		WHERE match_id = $1
	`, matchID).Scan(
		&m.MatchID, &m.MapName, &m.GameMode, &m.GameType, &m.TelemetryURL, &m.CreatedAt,
		&m.Status, &m.ErrorMessage,
		&m.Summary, &m.TelemetryDownloaded, &m.TelemetryProcessed,
		&m.FightsProcessed, &m.StatsAggregated,
	)
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return m, nil
}

// SetStageFlag advances one per-stage flag to true. Flags are monotonic;
// the guard keeps an already-true flag untouched. When every stage flag is
// true the match transitions to completed.
func (s *Store) SetStageFlag(ctx context.Context, matchID, flag string) error {
	if !stageFlags[flag] {
		return fmt.Errorf("unknown stage flag %q", flag)
	}
	defer metrics.ObserveDB("set_stage_flag")()

	query := fmt.Sprintf(`
		UPDATE matches
		SET %[1]s = TRUE, updated_at = NOW()
		WHERE match_id = $1 AND %[1]s = FALSE
	`, flag)
	if _, err := s.pool.Exec(ctx, query, matchID); err != nil {
		return fmt.Errorf("set %s on %s: %w", flag, matchID, err)
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE matches SET status = $2, updated_at = NOW()
		WHERE match_id = $1 AND status <> $2
		  AND summary AND telemetry_downloaded AND telemetry_processed
		  AND fights_processed AND stats_aggregated
	`, matchID, StatusCompleted); err != nil {
		return fmt.Errorf("complete match %s: %w", matchID, err)
	}
	return nil
}

// MarkMatchFailed records a terminal failure with its reason.
func (s *Store) MarkMatchFailed(ctx context.Context, matchID, reason string) error {
	defer metrics.ObserveDB("mark_match_failed")()

	if len(reason) > 500 {
		reason = reason[:500]
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE matches SET status = $2, error_message = $3, updated_at = NOW()
		WHERE match_id = $1
	`, matchID, StatusFailed, reason)
	if err != nil {
		return fmt.Errorf("mark match %s failed: %w", matchID, err)
	}
	return nil
}

// ListUnaggregated returns matches whose telemetry stages finished but whose
// stats have not been rolled up yet.
func (s *Store) ListUnaggregated(ctx context.Context, limit int) ([]MatchRecord, error) {
	defer metrics.ObserveDB("list_unaggregated")()

	rows, err := s.pool.Query(ctx, `
		SELECT match_id, map_name, game_mode, game_type, created_at, is_tournament_match
		FROM matches
		WHERE stats_aggregated = FALSE
		  AND telemetry_processed = TRUE
		  AND fights_processed = TRUE
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unaggregated: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.MatchID, &m.MapName, &m.GameMode, &m.GameType, &m.CreatedAt, &m.IsTournamentMatch); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
