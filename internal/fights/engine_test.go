package fights

import (
	"testing"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return t0.Add(offset) }

func meters(m float64) float64 { return m * 100 }

func chr(name string, team int, x, y float64) telemetry.Character {
	return telemetry.Character{Name: name, TeamID: team, Location: telemetry.Location{X: meters(x), Y: meters(y)}}
}

func damage(offset time.Duration, attacker, victim telemetry.Character, dmg float64) telemetry.Event {
	return telemetry.Event{
		Kind:      telemetry.KindDamage,
		Timestamp: at(offset),
		Damage: &telemetry.DamageEvent{
			Attacker:           &attacker,
			Victim:             victim,
			DamageCauserName:   "WeapHK416_C",
			DamageTypeCategory: "Damage_Gun",
			Damage:             dmg,
		},
	}
}

func knock(offset time.Duration, attacker, victim telemetry.Character) telemetry.Event {
	return telemetry.Event{
		Kind:      telemetry.KindKnock,
		Timestamp: at(offset),
		Knock: &telemetry.KnockEvent{
			Attacker:         &attacker,
			Victim:           victim,
			DamageCauserName: "WeapHK416_C",
		},
	}
}

func kill(offset time.Duration, killer, victim telemetry.Character) telemetry.Event {
	return telemetry.Event{
		Kind:      telemetry.KindKill,
		Timestamp: at(offset),
		Kill: &telemetry.KillEvent{
			Killer: &killer,
			Victim: victim,
			FinishDamageInfo: telemetry.DamageInfo{
				DamageCauserName:   "WeapHK416_C",
				DamageTypeCategory: "Damage_Gun",
			},
		},
	}
}

func meta() telemetry.MatchMeta {
	return telemetry.MatchMeta{MatchID: "match-1", MapName: "Baltic_Main", GameMode: "squad", MatchType: "official"}
}

func TestTrackTwoTeamDecisiveFight(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	b1 := chr("B1", 2, 50, 0)
	b2 := chr("B2", 2, 60, 0)

	events := []telemetry.Event{
		damage(0, a1, b1, 60),
		damage(2*time.Second, b1, a1, 40),
		knock(4*time.Second, a1, b1),
		kill(6*time.Second, a1, b1),
		knock(8*time.Second, a1, b2),
		kill(10*time.Second, a1, b2),
	}

	fights := Track(meta(), events)
	if len(fights) != 1 {
		t.Fatalf("fights = %d, want 1", len(fights))
	}
	f := fights[0]

	if f.Outcome != OutcomeDecisiveWin {
		t.Errorf("outcome = %s, want DECISIVE_WIN", f.Outcome)
	}
	if f.WinnerTeamID == nil || *f.WinnerTeamID != 1 {
		t.Errorf("winner = %v, want 1", f.WinnerTeamID)
	}
	if f.LoserTeamID == nil || *f.LoserTeamID != 2 {
		t.Errorf("loser = %v, want 2", f.LoserTeamID)
	}
	if f.TotalKills != 2 || f.TotalKnocks != 2 {
		t.Errorf("kills/knocks = %d/%d, want 2/2", f.TotalKills, f.TotalKnocks)
	}
	if f.TeamOutcomes[1] != TeamWon || f.TeamOutcomes[2] != TeamLost {
		t.Errorf("team outcomes = %v", f.TeamOutcomes)
	}
	if f.Duration != 10 {
		t.Errorf("duration = %v s, want 10", f.Duration)
	}

	byName := map[string]Participant{}
	for _, p := range f.Participants {
		byName[p.PlayerName] = p
	}
	if p := byName["A1"]; p.Kills != 2 || p.DamageDealt != 60 || !p.Survived {
		t.Errorf("A1 = %+v", p)
	}
	if p := byName["B1"]; !p.Killed || p.Survived {
		t.Errorf("B1 = %+v", p)
	}
}

func TestTrackLightSkirmishIsNotAFight(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	b1 := chr("B1", 2, 50, 0)

	// A few pot shots well under the sustained-damage threshold.
	events := []telemetry.Event{
		damage(0, a1, b1, 20),
		damage(5*time.Second, b1, a1, 15),
	}
	if fights := Track(meta(), events); len(fights) != 0 {
		t.Errorf("fights = %d, want 0", len(fights))
	}
}

func TestTrackZeroCasualtyExchangeIsNotAFight(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	b1 := chr("B1", 2, 50, 0)

	// Heavy reciprocal damage, but nobody goes down. Without a knock or a
	// kill there is no fight row.
	events := []telemetry.Event{
		damage(0, a1, b1, 90),
		damage(2*time.Second, b1, a1, 90),
	}
	if fights := Track(meta(), events); len(fights) != 0 {
		t.Errorf("fights = %d, want 0", len(fights))
	}
}

func TestTrackSingleKillResistance(t *testing.T) {
	tests := []struct {
		name        string
		victimDealt float64
		wantFight   bool
	}{
		{"execution without resistance", 10, false},
		{"victim fought back", 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a1 := chr("A1", 1, 0, 0)
			b1 := chr("B1", 2, 50, 0)

			events := []telemetry.Event{
				damage(0, b1, a1, tt.victimDealt),
				kill(5*time.Second, a1, b1),
			}
			fights := Track(meta(), events)
			if got := len(fights) == 1; got != tt.wantFight {
				t.Errorf("fight = %v, want %v", got, tt.wantFight)
			}
		})
	}
}

func TestTrackThirdPartyOutcome(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	a2 := chr("A2", 1, 10, 0)
	b1 := chr("B1", 2, 50, 0)
	c1 := chr("C1", 3, 100, 0)

	// Team 2 softens team 1, team 3 cleans up both kills.
	events := []telemetry.Event{
		damage(0, b1, a1, 60),
		damage(2*time.Second, a1, b1, 30),
		kill(5*time.Second, c1, a1),
		kill(8*time.Second, c1, a2),
	}

	fights := Track(meta(), events)
	if len(fights) != 1 {
		t.Fatalf("fights = %d, want 1", len(fights))
	}
	f := fights[0]

	if f.Outcome != OutcomeThirdParty {
		t.Errorf("outcome = %s, want THIRD_PARTY", f.Outcome)
	}
	want := map[int]TeamOutcome{1: TeamLost, 2: TeamDraw, 3: TeamWon}
	for team, outcome := range want {
		if f.TeamOutcomes[team] != outcome {
			t.Errorf("team %d outcome = %s, want %s", team, f.TeamOutcomes[team], outcome)
		}
	}
	if f.WinnerTeamID == nil || *f.WinnerTeamID != 3 {
		t.Errorf("winner = %v, want 3", f.WinnerTeamID)
	}
	if f.LoserTeamID == nil || *f.LoserTeamID != 1 {
		t.Errorf("loser = %v, want 1", f.LoserTeamID)
	}
}

func TestTrackSplitsDistantCombat(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	b1 := chr("B1", 2, 10, 0)
	c1 := chr("C1", 3, 5000, 0)
	d1 := chr("D1", 4, 5010, 0)

	// Two simultaneous fights 5 km apart must not merge.
	events := []telemetry.Event{
		knock(0, a1, b1),
		knock(time.Second, c1, d1),
		kill(2*time.Second, a1, b1),
		kill(3*time.Second, c1, d1),
	}

	fights := Track(meta(), events)
	if len(fights) != 2 {
		t.Fatalf("fights = %d, want 2", len(fights))
	}
}

func TestTrackIdleWindowSplitsFights(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	b1 := chr("B1", 2, 10, 0)

	// Second exchange starts 46s after the first went quiet.
	events := []telemetry.Event{
		knock(0, a1, b1),
		kill(2*time.Second, a1, b1),
		knock(48*time.Second, b1, a1),
		kill(50*time.Second, b1, a1),
	}

	fights := Track(meta(), events)
	if len(fights) != 2 {
		t.Fatalf("fights = %d, want 2", len(fights))
	}
}

func TestTrackIgnoresNPCCombat(t *testing.T) {
	a1 := chr("A1", 1, 0, 0)
	npc := chr("ai_guard_1", 100, 5, 0)

	events := []telemetry.Event{
		knock(0, a1, npc),
		kill(2*time.Second, a1, npc),
	}
	if fights := Track(meta(), events); len(fights) != 0 {
		t.Errorf("fights = %d, want 0", len(fights))
	}
}
