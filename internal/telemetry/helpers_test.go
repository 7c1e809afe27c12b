package telemetry

import (
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return t0.Add(offset) }

func meters(m float64) float64 { return m * 100 }

func chr(name string, team int, x, y float64) Character {
	return Character{Name: name, TeamID: team, Location: Location{X: meters(x), Y: meters(y)}}
}

func killEvent(offset time.Duration, killer *Character, victim Character, weapon, reason, category string, distance float64) Event {
	return Event{
		Kind:      KindKill,
		Type:      "LogPlayerKillV2",
		Timestamp: at(offset),
		Kill: &KillEvent{
			Killer: killer,
			Victim: victim,
			FinishDamageInfo: DamageInfo{
				DamageCauserName:   weapon,
				DamageReason:       reason,
				DamageTypeCategory: category,
				Distance:           distance,
			},
		},
	}
}

func damageEvent(offset time.Duration, attacker *Character, victim Character, weapon, category string, dmg float64) Event {
	return Event{
		Kind:      KindDamage,
		Type:      "LogPlayerTakeDamage",
		Timestamp: at(offset),
		Damage: &DamageEvent{
			Attacker:           attacker,
			Victim:             victim,
			DamageCauserName:   weapon,
			DamageTypeCategory: category,
			Damage:             dmg,
		},
	}
}

func knockEvent(offset time.Duration, attacker *Character, victim Character, weapon string, distance float64) Event {
	return Event{
		Kind:      KindKnock,
		Type:      "LogPlayerMakeGroggy",
		Timestamp: at(offset),
		Knock: &KnockEvent{
			Attacker:         attacker,
			Victim:           victim,
			DamageCauserName: weapon,
			Distance:         distance,
		},
	}
}

func positionEvent(offset time.Duration, ch Character) Event {
	return Event{
		Kind:      KindPosition,
		Type:      "LogPlayerPosition",
		Timestamp: at(offset),
		Position:  &PositionEvent{Character: ch},
	}
}

func testMeta(tracked ...string) MatchMeta {
	m := MatchMeta{
		MatchID:   "match-1",
		MapName:   "Baltic_Main",
		GameMode:  "squad",
		MatchType: "official",
		Tracked:   make(map[string]bool),
	}
	for _, name := range tracked {
		m.Tracked[name] = true
	}
	return m
}
