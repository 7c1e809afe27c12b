package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

// SummaryRow is one participant's per-match summary, keyed on
// (match_id, participant_id).
type SummaryRow struct {
	MatchID       string
	ParticipantID string
	PlayerName    string
	AccountID     string
	TeamID        int
	Placement     int

	Kills           int
	Assists         int
	DBNOs           int
	DamageDealt     float64
	HeadshotKills   int
	Heals           int
	Boosts          int
	Revives         int
	KillPlace       int
	KillStreaks     int
	LongestKill     float64
	RideDistance    float64
	SwimDistance    float64
	WalkDistance    float64
	RoadKills       int
	TeamKills       int
	TimeSurvived    float64
	VehicleDestroys int
	WeaponsAcquired int
	DeathType       string
}

// SummaryFromParticipant maps an upstream participant payload to a summary row.
func SummaryFromParticipant(matchID string, p pubg.Participant) SummaryRow {
	st := p.Stats
	return SummaryRow{
		MatchID:         matchID,
		ParticipantID:   p.ParticipantID,
		PlayerName:      st.Name,
		AccountID:       st.PlayerID,
		TeamID:          p.TeamID,
		Placement:       p.Placement,
		Kills:           st.Kills,
		Assists:         st.Assists,
		DBNOs:           st.DBNOs,
		DamageDealt:     st.DamageDealt,
		HeadshotKills:   st.HeadshotKills,
		Heals:           st.Heals,
		Boosts:          st.Boosts,
		Revives:         st.Revives,
		KillPlace:       st.KillPlace,
		KillStreaks:     st.KillStreaks,
		LongestKill:     st.LongestKill,
		RideDistance:    st.RideDistance,
		SwimDistance:    st.SwimDistance,
		WalkDistance:    st.WalkDistance,
		RoadKills:       st.RoadKills,
		TeamKills:       st.TeamKills,
		TimeSurvived:    st.TimeSurvived,
		VehicleDestroys: st.VehicleDestroys,
		WeaponsAcquired: st.WeaponsAcquired,
		DeathType:       st.DeathType,
	}
}

// InsertSummaries bulk-upserts participant summary rows for one match.
func (s *Store) InsertSummaries(ctx context.Context, rows []SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	defer metrics.ObserveDB("insert_summaries")()

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO match_summaries (
				match_id, participant_id, player_name, account_id, team_id, placement,
				kills, assists, dbnos, damage_dealt, headshot_kills,
				heals, boosts, revives, kill_place, kill_streaks, longest_kill,
				ride_distance, swim_distance, walk_distance,
				road_kills, team_kills, time_survived,
				vehicle_destroys, weapons_acquired, death_type
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
			ON CONFLICT (match_id, participant_id) DO NOTHING
		`, r.MatchID, r.ParticipantID, r.PlayerName, r.AccountID, r.TeamID, r.Placement,
			r.Kills, r.Assists, r.DBNOs, r.DamageDealt, r.HeadshotKills,
			r.Heals, r.Boosts, r.Revives, r.KillPlace, r.KillStreaks, r.LongestKill,
			r.RideDistance, r.SwimDistance, r.WalkDistance,
			r.RoadKills, r.TeamKills, r.TimeSurvived,
			r.VehicleDestroys, r.WeaponsAcquired, r.DeathType)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert summaries for %s: %w", rows[0].MatchID, err)
		}
	}
	return nil
}
