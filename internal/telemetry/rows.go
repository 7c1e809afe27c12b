package telemetry

import "time"

// MatchMeta is the per-match context handed to every processor alongside the
// parsed event array.
type MatchMeta struct {
	MatchID   string
	MapName   string
	GameMode  string
	MatchType string

	// Tracked limits expensive extractions (circle positions) to the
	// roster the platform follows. Keyed by display name.
	Tracked map[string]bool
}

// LandingRow is one parachute landing for a live player.
type LandingRow struct {
	MatchID   string
	PlayerName string
	AccountID string
	TeamID    int
	X, Y, Z   float64
	Timestamp time.Time
}

// KillRow is one finalized kill. Killer fields are nil for suicides and
// environment deaths (blue zone, fall).
type KillRow struct {
	MatchID      string
	Timestamp    time.Time
	KillerName   *string
	KillerTeamID *int
	KillerX      *float64
	KillerY      *float64
	KillerZ      *float64
	VictimName   string
	VictimTeamID int
	VictimX      float64
	VictimY      float64
	VictimZ      float64
	WeaponID     string
	WeaponCategory string
	Distance     float64
	IsHeadshot   bool
	IsSuicide    bool
	IsBlueZone   bool
	VictimRank   int
}

// DamageRow is one damage tick.
type DamageRow struct {
	MatchID        string
	Timestamp      time.Time
	AttackerName   *string
	AttackerTeamID *int
	VictimName     string
	VictimTeamID   int
	WeaponID       string
	BodyPart       string
	Cause          string
	Damage         float64
	IsSelfDamage   bool
	IsTeamDamage   bool
}

// KnockRow is one knock (DBNO) with the victim-support snapshot taken from
// the closest-in-time position samples of the victim's live teammates.
type KnockRow struct {
	MatchID        string
	Timestamp      time.Time
	AttackerName   *string
	AttackerTeamID *int
	VictimName     string
	VictimTeamID   int
	WeaponID       string
	WeaponCategory string
	Distance       float64

	TeammatesAlive        int
	TeammatesWithin50m    int
	TeammatesWithin100m   int
	TeammatesWithin200m   int
	NearestTeammateDist   *float64
	AvgTeammateDist       *float64
	TeammateSpreadStddev  *float64
}

// CircleRow is one safe-zone sample joined to a tracked player's position.
type CircleRow struct {
	MatchID            string
	PlayerName         string
	ElapsedTime        float64
	CenterX            float64
	CenterY            float64
	Radius             float64
	PlayerX            float64
	PlayerY            float64
	DistanceFromCenter float64
	DistanceFromEdge   float64
	InZone             bool
	Timestamp          time.Time
}

// WeaponDistRow is the per-(player, weapon-category) combat total.
type WeaponDistRow struct {
	MatchID        string
	PlayerName     string
	WeaponCategory string
	Damage         float64
	Kills          int
	Knocks         int
}

// ItemUsageRow is the per-player item usage summary.
type ItemUsageRow struct {
	MatchID          string
	PlayerName       string
	Heals            int
	Boosts           int
	ThrowablesThrown int
	SmokesThrown     int
}

// FinishingRow is the per-player finishing summary: finalized kills, knocks,
// kill-steals, and derived time outside the safe zone.
type FinishingRow struct {
	MatchID         string
	PlayerName      string
	TeamID          int
	Kills           int
	Knocks          int
	KillSteals      int
	TimeOutsideZone float64
}
