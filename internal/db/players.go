package db

import (
	"context"
	"fmt"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// TrackedPlayer is one roster entry the platform follows.
type TrackedPlayer struct {
	PlayerName      string
	AccountID       string
	Platform        string
	TrackingEnabled bool
}

// ListTrackedPlayers returns players with tracking enabled, optionally
// limited (zero means all).
func (s *Store) ListTrackedPlayers(ctx context.Context, limit int) ([]TrackedPlayer, error) {
	defer metrics.ObserveDB("list_tracked_players")()

	query := `
		SELECT player_name, COALESCE(account_id, ''), platform, tracking_enabled
		FROM players
		WHERE tracking_enabled = TRUE
		ORDER BY player_name`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracked players: %w", err)
	}
	defer rows.Close()

	var players []TrackedPlayer
	for rows.Next() {
		var p TrackedPlayer
		if err := rows.Scan(&p.PlayerName, &p.AccountID, &p.Platform, &p.TrackingEnabled); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpdatePlayerAccountID records the resolved account id for a display name.
// Display names change over time; the account id is the durable join key.
func (s *Store) UpdatePlayerAccountID(ctx context.Context, playerName, accountID string) error {
	defer metrics.ObserveDB("update_player_account_id")()

	_, err := s.pool.Exec(ctx, `
		UPDATE players SET account_id = $2, updated_at = NOW()
		WHERE player_name = $1 AND (account_id IS NULL OR account_id <> $2)
	`, playerName, accountID)
	if err != nil {
		return fmt.Errorf("update account id for %s: %w", playerName, err)
	}
	return nil
}
