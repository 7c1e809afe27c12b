package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/fights"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// InsertFights persists each fight and its participants atomically. The
// fight insert is keyed on the natural key (match_id, start_time, center);
// on conflict the existing id is reused so participant rows never orphan.
func (s *Store) InsertFights(ctx context.Context, list []fights.Fight) error {
	defer metrics.ObserveDB("insert_fights")()

	for i := range list {
		if err := s.insertFight(ctx, &list[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertFight(ctx context.Context, f *fights.Fight) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin fight tx: %w", err)
	}
	defer tx.Rollback(ctx)

	fightID, err := upsertFightRow(ctx, tx, f)
	if err != nil {
		return err
	}
	if err := insertFightParticipants(ctx, tx, fightID, f); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// upsertFightRow inserts the fight and returns its id. A conflicting insert
// returns no id; the follow-up select recovers it by natural key.
func upsertFightRow(ctx context.Context, tx pgx.Tx, f *fights.Fight) (int64, error) {
	teamIDs := make([]int32, len(f.TeamIDs))
	for i, t := range f.TeamIDs {
		teamIDs[i] = int32(t)
	}

	var fightID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO team_fights (
			match_id, start_time, end_time, duration_seconds,
			team_ids, center_x, center_y, center_z, fight_radius,
			total_knocks, total_kills, total_damage,
			outcome, winner_team_id, loser_team_id, team_outcomes, classification_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (match_id, start_time, center_x, center_y) DO NOTHING
		RETURNING id
	`, f.MatchID, f.StartTime, f.EndTime, f.Duration,
		teamIDs, f.CenterX, f.CenterY, f.CenterZ, f.FightRadius,
		f.TotalKnocks, f.TotalKills, f.TotalDamage,
		string(f.Outcome), f.WinnerTeamID, f.LoserTeamID, teamOutcomeMap(f), f.Reason,
	).Scan(&fightID)
	if err == nil {
		return fightID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert fight for %s: %w", f.MatchID, err)
	}

	err = tx.QueryRow(ctx, `
		SELECT id FROM team_fights
		WHERE match_id = $1 AND start_time = $2 AND center_x = $3 AND center_y = $4
	`, f.MatchID, f.StartTime, f.CenterX, f.CenterY).Scan(&fightID)
	if err != nil {
		return 0, fmt.Errorf("resolve existing fight for %s: %w", f.MatchID, err)
	}
	return fightID, nil
}

func insertFightParticipants(ctx context.Context, tx pgx.Tx, fightID int64, f *fights.Fight) error {
	batch := &pgx.Batch{}
	for _, p := range f.Participants {
		batch.Queue(`
			INSERT INTO fight_participants (
				fight_id, player_name, account_id, team_id,
				damage_dealt, damage_taken, knocks, kills, attacks,
				total_movement_distance, position_variance, significant_relocations,
				mobility_rate, fight_radius,
				survived, knocked, killed
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (fight_id, player_name) DO NOTHING
		`, fightID, p.PlayerName, p.AccountID, p.TeamID,
			p.DamageDealt, p.DamageTaken, p.Knocks, p.Kills, p.Attacks,
			p.TotalMovement, p.PositionVariance, p.SignificantRelocations,
			p.MobilityRate, p.FightRadius,
			p.Survived, p.Knocked, p.Killed)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert fight participants for %s: %w", f.MatchID, err)
		}
	}
	return nil
}

// teamOutcomeMap renders the per-team outcome map as JSON-compatible data
// for the jsonb column.
func teamOutcomeMap(f *fights.Fight) map[string]string {
	out := make(map[string]string, len(f.TeamOutcomes))
	for team, o := range f.TeamOutcomes {
		out[fmt.Sprintf("%d", team)] = string(o)
	}
	return out
}
