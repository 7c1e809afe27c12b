package telemetry

// ProcessDamage extracts one row per damage tick. Self-damage and
// team-damage are flagged rather than dropped.
func ProcessDamage(meta MatchMeta, events []Event) []DamageRow {
	var rows []DamageRow
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindDamage {
			continue
		}
		d := ev.Damage
		if IsNPC(d.Victim.Name) {
			continue
		}

		row := DamageRow{
			MatchID:      meta.MatchID,
			Timestamp:    ev.Timestamp,
			VictimName:   d.Victim.Name,
			VictimTeamID: d.Victim.TeamID,
			WeaponID:     NormalizeWeapon(d.DamageCauserName),
			BodyPart:     d.DamageReason,
			Cause:        d.DamageTypeCategory,
			Damage:       d.Damage,
		}
		if d.Attacker != nil && d.Attacker.Name != "" && !IsNPC(d.Attacker.Name) {
			name := d.Attacker.Name
			team := d.Attacker.TeamID
			row.AttackerName = &name
			row.AttackerTeamID = &team
			row.IsSelfDamage = name == d.Victim.Name
			row.IsTeamDamage = !row.IsSelfDamage && team == d.Victim.TeamID
		}
		rows = append(rows, row)
	}
	return rows
}
