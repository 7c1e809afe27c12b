package db

import (
	"context"
	"fmt"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

// CurrentSeasonID reads the season currently marked as active.
func (s *Store) CurrentSeasonID(ctx context.Context) (string, error) {
	defer metrics.ObserveDB("current_season")()

	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT season_id FROM seasons WHERE is_current = TRUE LIMIT 1
	`).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("current season: %w", err)
	}
	return id, nil
}

// UpsertSeasons refreshes the season catalog from the upstream list.
func (s *Store) UpsertSeasons(ctx context.Context, seasons []pubg.Season) error {
	defer metrics.ObserveDB("upsert_seasons")()

	for _, season := range seasons {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO seasons (season_id, is_current, is_offseason)
			VALUES ($1, $2, $3)
			ON CONFLICT (season_id) DO UPDATE
			SET is_current = EXCLUDED.is_current, is_offseason = EXCLUDED.is_offseason
		`, season.ID, season.IsCurrent, season.IsOffseason); err != nil {
			return fmt.Errorf("upsert season %s: %w", season.ID, err)
		}
	}
	return nil
}

// UpsertRankedStats stores per-game-mode ranked records for one player and season.
func (s *Store) UpsertRankedStats(ctx context.Context, accountID, seasonID string, stats []pubg.RankedStats) error {
	defer metrics.ObserveDB("upsert_ranked_stats")()

	for _, r := range stats {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO ranked_player_stats (
				account_id, season_id, game_mode,
				current_tier, current_sub_tier, current_rank_point,
				best_tier, best_rank_point,
				rounds_played, wins, kills, deaths, kda, avg_rank, top10_ratio, damage_dealt,
				updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
			ON CONFLICT (account_id, season_id, game_mode) DO UPDATE SET
				current_tier = EXCLUDED.current_tier,
				current_sub_tier = EXCLUDED.current_sub_tier,
				current_rank_point = EXCLUDED.current_rank_point,
				best_tier = EXCLUDED.best_tier,
				best_rank_point = EXCLUDED.best_rank_point,
				rounds_played = EXCLUDED.rounds_played,
				wins = EXCLUDED.wins,
				kills = EXCLUDED.kills,
				deaths = EXCLUDED.deaths,
				kda = EXCLUDED.kda,
				avg_rank = EXCLUDED.avg_rank,
				top10_ratio = EXCLUDED.top10_ratio,
				damage_dealt = EXCLUDED.damage_dealt,
				updated_at = NOW()
		`, accountID, seasonID, r.GameMode,
			r.CurrentTier, r.CurrentSub, r.CurrentPoint,
			r.BestTier, r.BestPoint,
			r.Rounds, r.Wins, r.Kills, r.Deaths, r.KDA, r.AvgRank, r.Top10Ratio, r.DamageDealt,
		); err != nil {
			return fmt.Errorf("upsert ranked stats %s/%s: %w", accountID, r.GameMode, err)
		}
	}
	return nil
}
