package db

import (
	"context"
	"fmt"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// Match-type buckets for career aggregates.
const (
	BucketRanked     = "ranked"
	BucketNormal     = "normal"
	BucketTournament = "tournament"
	BucketAll        = "all"
)

// MatchTypeBucket maps an upstream game type to an aggregate bucket.
func MatchTypeBucket(gameType string, isTournament bool) string {
	if isTournament {
		return BucketTournament
	}
	switch gameType {
	case "competitive", "ranked", "esports":
		return BucketRanked
	case "normal", "official", "arcade":
		return BucketNormal
	default:
		return BucketNormal
	}
}

// DamageAgg is one per-(player, weapon, cause) damage total within a match.
type DamageAgg struct {
	PlayerName string
	WeaponID   string
	Cause      string
	Damage     float64
	Hits       int
}

// WeaponAgg is one per-(player, weapon) kill total within a match.
type WeaponAgg struct {
	PlayerName string
	WeaponID   string
	Kills      int
	Headshots  int
	Knockdowns int
}

// AggregateMatchDamage groups the match's damage facts for rollup.
func (s *Store) AggregateMatchDamage(ctx context.Context, matchID string) ([]DamageAgg, error) {
	defer metrics.ObserveDB("aggregate_match_damage")()

	rows, err := s.pool.Query(ctx, `
		SELECT attacker_name, weapon_id, damage_cause, SUM(damage), COUNT(*)
		FROM player_damage_events
		WHERE match_id = $1 AND attacker_name IS NOT NULL
		  AND NOT is_self_damage AND NOT is_team_damage
		GROUP BY attacker_name, weapon_id, damage_cause
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("aggregate damage for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []DamageAgg
	for rows.Next() {
		var a DamageAgg
		if err := rows.Scan(&a.PlayerName, &a.WeaponID, &a.Cause, &a.Damage, &a.Hits); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AggregateMatchWeapons groups the match's kill and knock facts for rollup.
func (s *Store) AggregateMatchWeapons(ctx context.Context, matchID string) ([]WeaponAgg, error) {
	defer metrics.ObserveDB("aggregate_match_weapons")()

	// Full outer join: a (player, weapon) pair may have knocks without a
	// single confirmed kill, or kills with no knock (instant headshots).
	rows, err := s.pool.Query(ctx, `
		WITH kill_counts AS (
			SELECT killer_name AS player_name,
			       weapon_id,
			       COUNT(*) AS kills,
			       COUNT(*) FILTER (WHERE is_headshot) AS headshots
			FROM player_kill_events
			WHERE match_id = $1 AND killer_name IS NOT NULL
			GROUP BY killer_name, weapon_id
		), knock_counts AS (
			SELECT attacker_name AS player_name,
			       weapon_id,
			       COUNT(*) AS knocks
			FROM player_knock_events
			WHERE match_id = $1 AND attacker_name IS NOT NULL
			GROUP BY attacker_name, weapon_id
		)
		SELECT COALESCE(k.player_name, n.player_name),
		       COALESCE(k.weapon_id, n.weapon_id),
		       COALESCE(k.kills, 0),
		       COALESCE(k.headshots, 0),
		       COALESCE(n.knocks, 0)
		FROM kill_counts k
		FULL OUTER JOIN knock_counts n
		  ON n.player_name = k.player_name AND n.weapon_id = k.weapon_id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("aggregate weapons for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []WeaponAgg
	for rows.Next() {
		var a WeaponAgg
		if err := rows.Scan(&a.PlayerName, &a.WeaponID, &a.Kills, &a.Headshots, &a.Knockdowns); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertDamageStats rolls damage totals into the career table for one bucket.
func (s *Store) UpsertDamageStats(ctx context.Context, bucket string, aggs []DamageAgg) error {
	defer metrics.ObserveDB("upsert_damage_stats")()

	for _, a := range aggs {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO player_damage_stats (
				player_name, weapon_id, damage_cause, match_type, total_damage, total_hits, matches
			)
			VALUES ($1, $2, $3, $4, $5, $6, 1)
			ON CONFLICT (player_name, weapon_id, damage_cause, match_type) DO UPDATE SET
				total_damage = player_damage_stats.total_damage + EXCLUDED.total_damage,
				total_hits = player_damage_stats.total_hits + EXCLUDED.total_hits,
				matches = player_damage_stats.matches + 1,
				updated_at = NOW()
		`, a.PlayerName, a.WeaponID, a.Cause, bucket, a.Damage, a.Hits); err != nil {
			return fmt.Errorf("upsert damage stats %s/%s: %w", a.PlayerName, bucket, err)
		}
	}
	return nil
}

// UpsertWeaponStats rolls kill totals into the career table for one bucket.
func (s *Store) UpsertWeaponStats(ctx context.Context, bucket string, aggs []WeaponAgg) error {
	defer metrics.ObserveDB("upsert_weapon_stats")()

	for _, a := range aggs {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO player_weapon_stats (
				player_name, weapon_id, match_type, kills, headshot_kills, knockdowns, matches
			)
			VALUES ($1, $2, $3, $4, $5, $6, 1)
			ON CONFLICT (player_name, weapon_id, match_type) DO UPDATE SET
				kills = player_weapon_stats.kills + EXCLUDED.kills,
				headshot_kills = player_weapon_stats.headshot_kills + EXCLUDED.headshot_kills,
				knockdowns = player_weapon_stats.knockdowns + EXCLUDED.knockdowns,
				matches = player_weapon_stats.matches + 1,
				updated_at = NOW()
		`, a.PlayerName, a.WeaponID, bucket, a.Kills, a.Headshots, a.Knockdowns); err != nil {
			return fmt.Errorf("upsert weapon stats %s/%s: %w", a.PlayerName, bucket, err)
		}
	}
	return nil
}
