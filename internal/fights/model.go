// Package fights reconstructs discrete multi-team engagements from a match's
// combat events and classifies their outcomes.
package fights

import (
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

// Tuned clustering parameters.
const (
	// EngagementWindow is the rolling idle timeout since the last combat
	// event inside an engagement.
	EngagementWindow = 45 * time.Second

	// MaxEngagementDistance bounds how far (meters) from an engagement's
	// fixed center new participants may be admitted.
	MaxEngagementDistance = 300.0

	// MaxFightDuration seals an engagement outright; continuing combat
	// opens a new one.
	MaxFightDuration = 240 * time.Second

	// significantStep is the step magnitude (meters) counted as a relocation.
	significantStep = 25.0
)

// Outcome classifies a finished fight.
type Outcome string

const (
	OutcomeDecisiveWin Outcome = "DECISIVE_WIN"
	OutcomeMarginalWin Outcome = "MARGINAL_WIN"
	OutcomeDraw        Outcome = "DRAW"
	OutcomeThirdParty  Outcome = "THIRD_PARTY"
)

// TeamOutcome is one team's result within a fight.
type TeamOutcome string

const (
	TeamWon  TeamOutcome = "WON"
	TeamLost TeamOutcome = "LOST"
	TeamDraw TeamOutcome = "DRAW"
)

// Fight is one reconstructed engagement.
type Fight struct {
	MatchID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  float64 // seconds

	TeamIDs     []int
	CenterX     float64
	CenterY     float64
	CenterZ     float64
	FightRadius float64 // max event distance from center, meters

	TotalKnocks int
	TotalKills  int
	TotalDamage float64

	Outcome      Outcome
	WinnerTeamID *int
	LoserTeamID  *int
	TeamOutcomes map[int]TeamOutcome
	Reason       string

	Participants []Participant
}

// Participant is one player's attributed statistics within a fight.
type Participant struct {
	PlayerName string
	AccountID  string
	TeamID     int

	DamageDealt float64
	DamageTaken float64
	Knocks      int
	Kills       int
	Attacks     int

	TotalMovement          float64
	PositionVariance       float64
	SignificantRelocations int
	MobilityRate           float64
	FightRadius            float64

	Survived bool
	Knocked  bool
	Killed   bool
}

// combatEvent is the normalized view of one event admitted to clustering.
type combatEvent struct {
	at       time.Time
	pos      telemetry.Location
	kind     telemetry.EventKind
	attacker *telemetry.Character
	victim   *telemetry.Character
	damage   float64
}
