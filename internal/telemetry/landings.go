package telemetry

// ProcessLandings extracts one row per live player's parachute landing.
func ProcessLandings(meta MatchMeta, events []Event) []LandingRow {
	seen := make(map[string]bool)
	var rows []LandingRow
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindLanding {
			continue
		}
		ch := ev.Landing.Character
		if ch.Name == "" || IsNPC(ch.Name) || seen[ch.Name] {
			continue
		}
		seen[ch.Name] = true
		rows = append(rows, LandingRow{
			MatchID:    meta.MatchID,
			PlayerName: ch.Name,
			AccountID:  ch.AccountID,
			TeamID:     ch.TeamID,
			X:          ch.Location.X,
			Y:          ch.Location.Y,
			Z:          ch.Location.Z,
			Timestamp:  ev.Timestamp,
		})
	}
	return rows
}
