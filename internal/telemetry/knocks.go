package telemetry

import (
	"math"
	"time"
)

// supportWindow bounds how far a teammate position sample may sit from the
// knock instant and still describe the victim's support situation.
const supportWindow = 5 * time.Second

// ProcessKnocks extracts knock facts with a teammate-proximity snapshot: at
// each knock, the victim's live teammates are located via their
// closest-in-time position sample and their distances recorded.
func ProcessKnocks(meta MatchMeta, events []Event) []KnockRow {
	idx := buildPositionIndex(events)
	teams := buildTeamRoster(events)
	deadAt := buildDeathTimes(events)

	var rows []KnockRow
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindKnock {
			continue
		}
		k := ev.Knock
		if IsNPC(k.Victim.Name) {
			continue
		}

		row := KnockRow{
			MatchID:        meta.MatchID,
			Timestamp:      ev.Timestamp,
			VictimName:     k.Victim.Name,
			VictimTeamID:   k.Victim.TeamID,
			WeaponID:       NormalizeWeapon(k.DamageCauserName),
			WeaponCategory: WeaponCategory(k.DamageCauserName),
			Distance:       k.Distance / 100,
		}
		if k.Attacker != nil && k.Attacker.Name != "" && !IsNPC(k.Attacker.Name) {
			name := k.Attacker.Name
			team := k.Attacker.TeamID
			row.AttackerName = &name
			row.AttackerTeamID = &team
		}

		fillSupport(&row, k, ev.Timestamp, idx, teams, deadAt)
		rows = append(rows, row)
	}
	return rows
}

func fillSupport(row *KnockRow, k *KnockEvent, at time.Time, idx *positionIndex, teams map[string]int, deadAt map[string]time.Time) {
	var dists []float64
	for name, teamID := range teams {
		if teamID != k.Victim.TeamID || name == k.Victim.Name || IsNPC(name) {
			continue
		}
		if died, ok := deadAt[name]; ok && !died.After(at) {
			continue
		}
		row.TeammatesAlive++
		loc, ok := idx.nearest(name, at, supportWindow)
		if !ok {
			continue
		}
		d := loc.Distance3D(k.Victim.Location)
		dists = append(dists, d)
		if d <= 50 {
			row.TeammatesWithin50m++
		}
		if d <= 100 {
			row.TeammatesWithin100m++
		}
		if d <= 200 {
			row.TeammatesWithin200m++
		}
	}
	if len(dists) == 0 {
		return
	}

	nearest := dists[0]
	sum := 0.0
	for _, d := range dists {
		if d < nearest {
			nearest = d
		}
		sum += d
	}
	avg := sum / float64(len(dists))
	variance := 0.0
	for _, d := range dists {
		variance += (d - avg) * (d - avg)
	}
	stddev := math.Sqrt(variance / float64(len(dists)))

	row.NearestTeammateDist = &nearest
	row.AvgTeammateDist = &avg
	row.TeammateSpreadStddev = &stddev
}

// buildTeamRoster maps every observed player name to its team id.
func buildTeamRoster(events []Event) map[string]int {
	teams := make(map[string]int)
	note := func(ch *Character) {
		if ch == nil || ch.Name == "" || ch.TeamID == 0 {
			return
		}
		if _, ok := teams[ch.Name]; !ok {
			teams[ch.Name] = ch.TeamID
		}
	}
	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindPosition:
			note(&ev.Position.Character)
		case KindDamage:
			note(ev.Damage.Attacker)
			note(&ev.Damage.Victim)
		case KindKnock:
			note(ev.Knock.Attacker)
			note(&ev.Knock.Victim)
		case KindKill:
			note(ev.Kill.Killer)
			note(&ev.Kill.Victim)
		case KindAttack:
			note(&ev.Attack.Attacker)
		case KindLanding:
			note(&ev.Landing.Character)
		}
	}
	return teams
}

// buildDeathTimes maps each victim to the instant of its finalized death.
func buildDeathTimes(events []Event) map[string]time.Time {
	dead := make(map[string]time.Time)
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindKill {
			continue
		}
		if name := ev.Kill.Victim.Name; name != "" {
			if _, ok := dead[name]; !ok {
				dead[name] = ev.Timestamp
			}
		}
	}
	return dead
}
