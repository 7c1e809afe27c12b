package telemetry

import (
	"sort"
	"time"
)

// killStealWindow is how far back a damage contribution still counts toward
// a kill-steal credit at the moment the victim dies.
const killStealWindow = 10 * time.Second

const blueZoneCause = "Damage_BlueZone"

// ProcessKills extracts finalized kill facts. Suicides and environment
// deaths carry no killer identity.
func ProcessKills(meta MatchMeta, events []Event) []KillRow {
	var rows []KillRow
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindKill {
			continue
		}
		k := ev.Kill
		if IsNPC(k.Victim.Name) {
			continue
		}

		row := KillRow{
			MatchID:        meta.MatchID,
			Timestamp:      ev.Timestamp,
			VictimName:     k.Victim.Name,
			VictimTeamID:   k.Victim.TeamID,
			VictimX:        k.Victim.Location.X,
			VictimY:        k.Victim.Location.Y,
			VictimZ:        k.Victim.Location.Z,
			WeaponID:       NormalizeWeapon(k.FinishDamageInfo.DamageCauserName),
			WeaponCategory: WeaponCategory(k.FinishDamageInfo.DamageCauserName),
			Distance:       k.FinishDamageInfo.Distance / 100,
			IsHeadshot:     k.FinishDamageInfo.DamageReason == "HeadShot",
			IsBlueZone:     k.FinishDamageInfo.DamageTypeCategory == blueZoneCause,
			VictimRank:     k.VictimGameResult.Rank,
		}

		suicide := k.IsSuicide || (k.Killer != nil && k.Killer.Name == k.Victim.Name)
		row.IsSuicide = suicide
		if k.Killer != nil && k.Killer.Name != "" && !suicide && !row.IsBlueZone {
			name := k.Killer.Name
			team := k.Killer.TeamID
			x, y, z := k.Killer.Location.X, k.Killer.Location.Y, k.Killer.Location.Z
			row.KillerName = &name
			row.KillerTeamID = &team
			row.KillerX, row.KillerY, row.KillerZ = &x, &y, &z
		}
		rows = append(rows, row)
	}
	return rows
}

// ProcessFinishing builds the per-player finishing summary: kills, knocks,
// kill-steal credits, and time outside the safe zone. A kill-steal is
// credited to anyone who damaged the victim inside the 10-second window
// before death without landing the finishing blow. Time outside zone is
// derived from blue-zone damage ticks rather than geometric tests.
func ProcessFinishing(meta MatchMeta, events []Event) []FinishingRow {
	type damageMark struct {
		t        time.Time
		attacker string
	}
	recentDamage := make(map[string][]damageMark)
	acc := make(map[string]*FinishingRow)
	get := func(name string, teamID int) *FinishingRow {
		if row, ok := acc[name]; ok {
			if row.TeamID == 0 {
				row.TeamID = teamID
			}
			return row
		}
		row := &FinishingRow{MatchID: meta.MatchID, PlayerName: name, TeamID: teamID}
		acc[name] = row
		return row
	}

	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindDamage:
			d := ev.Damage
			if IsNPC(d.Victim.Name) {
				continue
			}
			if d.DamageTypeCategory == blueZoneCause {
				// The blue zone ticks roughly once per second on a player
				// outside it.
				get(d.Victim.Name, d.Victim.TeamID).TimeOutsideZone++
				continue
			}
			if d.Attacker != nil && !IsNPC(d.Attacker.Name) && d.Attacker.Name != d.Victim.Name {
				recentDamage[d.Victim.Name] = append(recentDamage[d.Victim.Name], damageMark{t: ev.Timestamp, attacker: d.Attacker.Name})
			}
		case KindKnock:
			k := ev.Knock
			if k.Attacker == nil || IsNPC(k.Attacker.Name) || IsNPC(k.Victim.Name) {
				continue
			}
			get(k.Attacker.Name, k.Attacker.TeamID).Knocks++
		case KindKill:
			k := ev.Kill
			if IsNPC(k.Victim.Name) {
				continue
			}
			var killerName string
			if k.Killer != nil && !IsNPC(k.Killer.Name) && k.Killer.Name != k.Victim.Name {
				killerName = k.Killer.Name
				get(killerName, k.Killer.TeamID).Kills++
			}
			cutoff := ev.Timestamp.Add(-killStealWindow)
			credited := make(map[string]bool)
			for _, mark := range recentDamage[k.Victim.Name] {
				if mark.t.Before(cutoff) || mark.attacker == killerName || credited[mark.attacker] {
					continue
				}
				credited[mark.attacker] = true
				get(mark.attacker, 0).KillSteals++
			}
			delete(recentDamage, k.Victim.Name)
		}
	}

	rows := make([]FinishingRow, 0, len(acc))
	for _, name := range sortedKeys(acc) {
		rows = append(rows, *acc[name])
	}
	return rows
}

func sortedKeys(m map[string]*FinishingRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
