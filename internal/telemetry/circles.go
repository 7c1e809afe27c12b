package telemetry

// ProcessCircles joins each periodic safe-zone sample to the closest-in-time
// position of every tracked player still alive. Rows are produced only for
// tracked players.
func ProcessCircles(meta MatchMeta, events []Event) []CircleRow {
	if len(meta.Tracked) == 0 {
		return nil
	}
	idx := buildPositionIndex(events)
	deadAt := buildDeathTimes(events)

	var rows []CircleRow
	for i := range events {
		ev := &events[i]
		if ev.Kind != KindGameState {
			continue
		}
		gs := &ev.GameState.GameState
		if gs.SafetyZoneRadius <= 0 {
			continue
		}
		for name := range meta.Tracked {
			if died, ok := deadAt[name]; ok && !died.After(ev.Timestamp) {
				continue
			}
			loc, ok := idx.nearest(name, ev.Timestamp, supportWindow)
			if !ok {
				continue
			}
			center := gs.SafetyZonePosition
			radiusM := gs.SafetyZoneRadius / 100
			dist := loc.Distance2D(center)
			rows = append(rows, CircleRow{
				MatchID:            meta.MatchID,
				PlayerName:         name,
				ElapsedTime:        gs.ElapsedTime,
				CenterX:            center.X,
				CenterY:            center.Y,
				Radius:             radiusM,
				PlayerX:            loc.X,
				PlayerY:            loc.Y,
				DistanceFromCenter: dist,
				DistanceFromEdge:   radiusM - dist,
				InZone:             dist <= radiusM,
				Timestamp:          ev.Timestamp,
			})
		}
	}
	return rows
}
