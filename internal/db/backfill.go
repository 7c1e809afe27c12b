package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// Backfill row statuses.
const (
	BackfillPending    = "pending"
	BackfillProcessing = "processing"
	BackfillCompleted  = "completed"
	BackfillFailed     = "failed"
	BackfillSkipped    = "skipped"
)

// Per-processor completion flags on a backfill row.
const (
	BackfillFlagKills   = "kills_processed"
	BackfillFlagDamage  = "damage_processed"
	BackfillFlagWeapons = "weapons_processed"
	BackfillFlagCircles = "circles_processed"
)

var backfillFlags = map[string]bool{
	BackfillFlagKills:   true,
	BackfillFlagDamage:  true,
	BackfillFlagWeapons: true,
	BackfillFlagCircles: true,
}

// BackfillItem is one (player, match) pair queued for retroactive processing.
// The processor flags let a retried row resume where it left off.
type BackfillItem struct {
	ID         int64
	PlayerName string
	MatchID    string
	Status     string
	RetryCount int

	KillsProcessed   bool
	DamageProcessed  bool
	WeaponsProcessed bool
	CirclesProcessed bool
}

// FlagDone reports whether the named processor flag is already set on the row.
func (it *BackfillItem) FlagDone(flag string) bool {
	switch flag {
	case BackfillFlagKills:
		return it.KillsProcessed
	case BackfillFlagDamage:
		return it.DamageProcessed
	case BackfillFlagWeapons:
		return it.WeaponsProcessed
	case BackfillFlagCircles:
		return it.CirclesProcessed
	}
	return false
}

// EnqueueBackfill queues one row per telemetry-processed match the player
// appeared in within the window. Existing rows are left untouched.
func (s *Store) EnqueueBackfill(ctx context.Context, playerName string, window time.Duration) (int, error) {
	defer metrics.ObserveDB("enqueue_backfill")()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO player_backfill_status (player_name, match_id, status)
		SELECT $1, m.match_id, 'pending'
		FROM matches m
		JOIN match_summaries ms ON ms.match_id = m.match_id
		WHERE ms.player_name = $1
		  AND m.telemetry_processed = TRUE
		  AND m.created_at >= NOW() - $2::interval
		ON CONFLICT (player_name, match_id) DO NOTHING
	`, playerName, window.String())
	if err != nil {
		return 0, fmt.Errorf("enqueue backfill for %s: %w", playerName, err)
	}
	return int(tag.RowsAffected()), nil
}

// PendingBackfill claims up to limit pending rows, marking them processing.
// Rows past the retry cap are never returned. FOR UPDATE SKIP LOCKED keeps
// concurrent orchestrators from claiming the same row.
func (s *Store) PendingBackfill(ctx context.Context, limit, maxRetries int) ([]BackfillItem, error) {
	defer metrics.ObserveDB("pending_backfill")()

	rows, err := s.pool.Query(ctx, `
		UPDATE player_backfill_status
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM player_backfill_status
			WHERE status = 'pending' AND retry_count <= $2
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, player_name, match_id, status, retry_count,
		          kills_processed, damage_processed, weapons_processed, circles_processed
	`, limit, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("claim backfill rows: %w", err)
	}
	defer rows.Close()

	var out []BackfillItem
	for rows.Next() {
		var it BackfillItem
		if err := rows.Scan(&it.ID, &it.PlayerName, &it.MatchID, &it.Status, &it.RetryCount,
			&it.KillsProcessed, &it.DamageProcessed, &it.WeaponsProcessed, &it.CirclesProcessed); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SetBackfillFlag marks one processor complete on a row. When all processor
// flags are true the row transitions to completed.
func (s *Store) SetBackfillFlag(ctx context.Context, id int64, flag string) error {
	if !backfillFlags[flag] {
		return fmt.Errorf("unknown backfill flag %q", flag)
	}
	defer metrics.ObserveDB("set_backfill_flag")()

	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE player_backfill_status SET %s = TRUE, updated_at = NOW() WHERE id = $1`, flag),
		id,
	); err != nil {
		return fmt.Errorf("set backfill flag %s on %d: %w", flag, id, err)
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE player_backfill_status
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1
		  AND kills_processed AND damage_processed AND weapons_processed AND circles_processed
	`, id); err != nil {
		return fmt.Errorf("complete backfill row %d: %w", id, err)
	}
	return nil
}

// FailBackfill records a failure and returns the row to pending while retries
// remain; past the cap it stays failed.
func (s *Store) FailBackfill(ctx context.Context, id int64, reason string, maxRetries int) error {
	defer metrics.ObserveDB("fail_backfill")()

	if len(reason) > 500 {
		reason = reason[:500]
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE player_backfill_status
		SET status = CASE WHEN retry_count + 1 > $3 THEN 'failed' ELSE 'pending' END,
		    retry_count = retry_count + 1,
		    failure_reason = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, reason, maxRetries); err != nil {
		return fmt.Errorf("fail backfill row %d: %w", id, err)
	}
	return nil
}

// SkipBackfill marks a row skipped, terminal without retries. Used when the
// match's trace is no longer on disk.
func (s *Store) SkipBackfill(ctx context.Context, id int64, reason string) error {
	defer metrics.ObserveDB("skip_backfill")()

	if _, err := s.pool.Exec(ctx, `
		UPDATE player_backfill_status
		SET status = 'skipped', failure_reason = $2, updated_at = NOW()
		WHERE id = $1
	`, id, reason); err != nil {
		return fmt.Errorf("skip backfill row %d: %w", id, err)
	}
	return nil
}
