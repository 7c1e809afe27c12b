package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

// Fact writers append extracted telemetry rows. Every insert carries
// ON CONFLICT DO NOTHING on the table's natural key so reprocessing a match
// is idempotent.

func (s *Store) runFactBatch(ctx context.Context, operation string, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	defer metrics.ObserveDB(operation)()

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
	}
	return nil
}

// InsertLandings appends parachute-landing facts.
func (s *Store) InsertLandings(ctx context.Context, rows []telemetry.LandingRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_landings (match_id, player_name, account_id, team_id, x, y, z, event_timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT DO NOTHING
		`, r.MatchID, r.PlayerName, r.AccountID, r.TeamID, r.X, r.Y, r.Z, r.Timestamp)
	}
	return s.runFactBatch(ctx, "insert_landings", batch)
}

// InsertKills appends kill facts.
func (s *Store) InsertKills(ctx context.Context, rows []telemetry.KillRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_kill_events (
				match_id, event_timestamp,
				killer_name, killer_team_id, killer_x, killer_y, killer_z,
				victim_name, victim_team_id, victim_x, victim_y, victim_z,
				weapon_id, weapon_category, distance,
				is_headshot, is_suicide, is_blue_zone, victim_rank
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT DO NOTHING
		`, r.MatchID, r.Timestamp,
			r.KillerName, r.KillerTeamID, r.KillerX, r.KillerY, r.KillerZ,
			r.VictimName, r.VictimTeamID, r.VictimX, r.VictimY, r.VictimZ,
			r.WeaponID, r.WeaponCategory, r.Distance,
			r.IsHeadshot, r.IsSuicide, r.IsBlueZone, r.VictimRank)
	}
	return s.runFactBatch(ctx, "insert_kills", batch)
}

// InsertDamage appends damage-tick facts.
func (s *Store) InsertDamage(ctx context.Context, rows []telemetry.DamageRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_damage_events (
				match_id, event_timestamp,
				attacker_name, attacker_team_id, victim_name, victim_team_id,
				weapon_id, body_part, damage_cause, damage,
				is_self_damage, is_team_damage
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT DO NOTHING
		`, r.MatchID, r.Timestamp,
			r.AttackerName, r.AttackerTeamID, r.VictimName, r.VictimTeamID,
			r.WeaponID, r.BodyPart, r.Cause, r.Damage,
			r.IsSelfDamage, r.IsTeamDamage)
	}
	return s.runFactBatch(ctx, "insert_damage", batch)
}

// InsertKnocks appends knock facts with their victim-support snapshots.
func (s *Store) InsertKnocks(ctx context.Context, rows []telemetry.KnockRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_knock_events (
				match_id, event_timestamp,
				attacker_name, attacker_team_id, victim_name, victim_team_id,
				weapon_id, weapon_category, distance,
				teammates_alive, teammates_within_50m, teammates_within_100m, teammates_within_200m,
				nearest_teammate_distance, avg_teammate_distance, teammate_spread_stddev
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT DO NOTHING
		`, r.MatchID, r.Timestamp,
			r.AttackerName, r.AttackerTeamID, r.VictimName, r.VictimTeamID,
			r.WeaponID, r.WeaponCategory, r.Distance,
			r.TeammatesAlive, r.TeammatesWithin50m, r.TeammatesWithin100m, r.TeammatesWithin200m,
			r.NearestTeammateDist, r.AvgTeammateDist, r.TeammateSpreadStddev)
	}
	return s.runFactBatch(ctx, "insert_knocks", batch)
}

// InsertCircles appends circle-position samples for tracked players.
func (s *Store) InsertCircles(ctx context.Context, rows []telemetry.CircleRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_circle_positions (
				match_id, player_name, elapsed_time,
				center_x, center_y, radius, player_x, player_y,
				distance_from_center, distance_from_edge, in_zone, event_timestamp
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT DO NOTHING
		`, r.MatchID, r.PlayerName, r.ElapsedTime,
			r.CenterX, r.CenterY, r.Radius, r.PlayerX, r.PlayerY,
			r.DistanceFromCenter, r.DistanceFromEdge, r.InZone, r.Timestamp)
	}
	return s.runFactBatch(ctx, "insert_circles", batch)
}

// InsertWeaponDistribution appends per-(player, weapon-category) totals.
func (s *Store) InsertWeaponDistribution(ctx context.Context, rows []telemetry.WeaponDistRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_match_weapon_distribution (
				match_id, player_name, weapon_category, damage, kills, knocks
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id, player_name, weapon_category) DO NOTHING
		`, r.MatchID, r.PlayerName, r.WeaponCategory, r.Damage, r.Kills, r.Knocks)
	}
	return s.runFactBatch(ctx, "insert_weapon_distribution", batch)
}

// InsertItemUsage appends per-player item usage summaries.
func (s *Store) InsertItemUsage(ctx context.Context, rows []telemetry.ItemUsageRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_item_usage (
				match_id, player_name, heals, boosts, throwables_thrown, smokes_thrown
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (match_id, player_name) DO NOTHING
		`, r.MatchID, r.PlayerName, r.Heals, r.Boosts, r.ThrowablesThrown, r.SmokesThrown)
	}
	return s.runFactBatch(ctx, "insert_item_usage", batch)
}

// InsertFinishing appends per-player finishing summaries.
func (s *Store) InsertFinishing(ctx context.Context, rows []telemetry.FinishingRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO player_finishing_summary (
				match_id, player_name, team_id, kills, knocks, kill_steals, time_outside_zone
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (match_id, player_name) DO NOTHING
		`, r.MatchID, r.PlayerName, r.TeamID, r.Kills, r.Knocks, r.KillSteals, r.TimeOutsideZone)
	}
	return s.runFactBatch(ctx, "insert_finishing", batch)
}
