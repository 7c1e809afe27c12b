// Package telemetry parses a match's event trace once into a tagged event
// union and extracts typed fact streams from it.
package telemetry

import (
	"encoding/json"
	"time"
)

// EventKind discriminates the parsed event union.
type EventKind int

const (
	KindOther EventKind = iota
	KindKill
	KindKnock
	KindDamage
	KindItemUse
	KindAttack
	KindPosition
	KindGameState
	KindLanding
)

// Location is a world position in centimeters, as the upstream reports it.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance2D returns the planar distance to o in meters.
func (l Location) Distance2D(o Location) float64 {
	dx := (l.X - o.X) / 100
	dy := (l.Y - o.Y) / 100
	return sqrt(dx*dx + dy*dy)
}

// Distance3D returns the full distance to o in meters.
func (l Location) Distance3D(o Location) float64 {
	dx := (l.X - o.X) / 100
	dy := (l.Y - o.Y) / 100
	dz := (l.Z - o.Z) / 100
	return sqrt(dx*dx + dy*dy + dz*dz)
}

// Character identifies an actor in an event. A zero Name means the actor is
// absent (e.g. blue-zone damage has no attacker).
type Character struct {
	Name      string   `json:"name"`
	TeamID    int      `json:"teamId"`
	AccountID string   `json:"accountId"`
	Health    float64  `json:"health"`
	Location  Location `json:"location"`
	IsInVehicle bool   `json:"isInVehicle"`
}

// ItemInfo describes an item referenced by an event.
type ItemInfo struct {
	ItemID      string `json:"itemId"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
}

// KillEvent is LogPlayerKillV2. Killer is nil for suicides and blue-zone or
// fall deaths.
type KillEvent struct {
	Killer           *Character `json:"killer"`
	Victim           Character  `json:"victim"`
	Finisher         *Character `json:"finisher"`
	DBNOMaker        *Character `json:"dBNOMaker"`
	FinishDamageInfo DamageInfo `json:"finishDamageInfo"`
	IsSuicide        bool       `json:"isSuicide"`
	VictimGameResult struct {
		Rank int `json:"rank"`
	} `json:"victimGameResult"`
}

// DamageInfo carries the weapon and hit detail attached to kill and knock events.
type DamageInfo struct {
	DamageCauserName   string  `json:"damageCauserName"`
	DamageReason       string  `json:"damageReason"`
	DamageTypeCategory string  `json:"damageTypeCategory"`
	Distance           float64 `json:"distance"`
}

// KnockEvent is LogPlayerMakeGroggy.
type KnockEvent struct {
	Attacker           *Character `json:"attacker"`
	Victim             Character  `json:"victim"`
	DamageCauserName   string     `json:"damageCauserName"`
	DamageReason       string     `json:"damageReason"`
	DamageTypeCategory string     `json:"damageTypeCategory"`
	Distance           float64    `json:"distance"`
	IsAttackerInVehicle bool      `json:"isAttackerInVehicle"`
}

// DamageEvent is LogPlayerTakeDamage.
type DamageEvent struct {
	Attacker           *Character `json:"attacker"`
	Victim             Character  `json:"victim"`
	DamageTypeCategory string     `json:"damageTypeCategory"`
	DamageCauserName   string     `json:"damageCauserName"`
	DamageReason       string     `json:"damageReason"`
	Damage             float64    `json:"damage"`
}

// ItemUseEvent is LogItemUse.
type ItemUseEvent struct {
	Character Character `json:"character"`
	Item      ItemInfo  `json:"item"`
}

// AttackEvent is LogPlayerAttack.
type AttackEvent struct {
	AttackID   int       `json:"attackId"`
	Attacker   Character `json:"attacker"`
	AttackType string    `json:"attackType"`
	Weapon     ItemInfo  `json:"weapon"`
}

// PositionEvent is LogPlayerPosition.
type PositionEvent struct {
	Character       Character `json:"character"`
	ElapsedTime     float64   `json:"elapsedTime"`
	NumAlivePlayers int       `json:"numAlivePlayers"`
}

// GameStateEvent is LogGameStatePeriodic.
type GameStateEvent struct {
	GameState struct {
		ElapsedTime          float64  `json:"elapsedTime"`
		NumAlivePlayers      int      `json:"numAlivePlayers"`
		SafetyZonePosition   Location `json:"safetyZonePosition"`
		SafetyZoneRadius     float64  `json:"safetyZoneRadius"`
		PoisonGasWarningPosition Location `json:"poisonGasWarningPosition"`
		PoisonGasWarningRadius   float64  `json:"poisonGasWarningRadius"`
	} `json:"gameState"`
}

// LandingEvent is LogParachuteLanding.
type LandingEvent struct {
	Character Character `json:"character"`
	Distance  float64   `json:"distance"`
}

// Event is one entry of the parsed trace. Exactly one typed pointer is set
// for known kinds; unknown kinds keep the raw bytes and are skipped by
// processors.
type Event struct {
	Kind      EventKind
	Type      string
	Timestamp time.Time

	Kill      *KillEvent
	Knock     *KnockEvent
	Damage    *DamageEvent
	ItemUse   *ItemUseEvent
	Attack    *AttackEvent
	Position  *PositionEvent
	GameState *GameStateEvent
	Landing   *LandingEvent

	Raw json.RawMessage
}
