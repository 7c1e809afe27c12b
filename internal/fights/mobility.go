package fights

import (
	"math"
	"sort"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

// attachParticipants converts tallies into participant rows and derives the
// mobility metrics from position samples inside the fight's time range.
func attachParticipants(fight *Fight, e *engagement, events []telemetry.Event) {
	samples := collectSamples(events, fight.StartTime, fight.EndTime)

	names := make([]string, 0, len(e.players))
	for name := range e.players {
		if !telemetry.IsNPC(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		t := e.players[name]
		p := Participant{
			PlayerName:  name,
			AccountID:   t.accountID,
			TeamID:      t.teamID,
			DamageDealt: t.damageDealt,
			DamageTaken: t.damageTaken,
			Knocks:      t.knocks,
			Kills:       t.kills,
			Attacks:     t.attacks,
			Knocked:     t.knocked,
			Killed:      t.killed,
			Survived:    !t.killed,
		}
		applyMobility(&p, samples[name], fight.Duration)
		fight.Participants = append(fight.Participants, p)
	}
}

// collectSamples gathers per-player positions from all position-bearing
// events within [from, to].
func collectSamples(events []telemetry.Event, from, to time.Time) map[string][]telemetry.Location {
	out := make(map[string][]telemetry.Location)
	add := func(t time.Time, ch *telemetry.Character) {
		if ch == nil || ch.Name == "" || t.Before(from) || t.After(to) {
			return
		}
		out[ch.Name] = append(out[ch.Name], ch.Location)
	}
	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case telemetry.KindPosition:
			add(ev.Timestamp, &ev.Position.Character)
		case telemetry.KindDamage:
			add(ev.Timestamp, ev.Damage.Attacker)
			add(ev.Timestamp, &ev.Damage.Victim)
		case telemetry.KindKnock:
			add(ev.Timestamp, ev.Knock.Attacker)
			add(ev.Timestamp, &ev.Knock.Victim)
		case telemetry.KindKill:
			add(ev.Timestamp, ev.Kill.Killer)
			add(ev.Timestamp, &ev.Kill.Victim)
		case telemetry.KindAttack:
			add(ev.Timestamp, &ev.Attack.Attacker)
		}
	}
	return out
}

// applyMobility derives movement distance, position variance, significant
// relocations, mobility rate and per-player fight radius from the samples.
func applyMobility(p *Participant, samples []telemetry.Location, duration float64) {
	if len(samples) == 0 {
		return
	}

	var cx, cy, cz float64
	for _, s := range samples {
		cx += s.X
		cy += s.Y
		cz += s.Z
	}
	n := float64(len(samples))
	centroid := telemetry.Location{X: cx / n, Y: cy / n, Z: cz / n}

	var movement float64
	var maxFromCentroid float64
	var distSum, distSqSum float64
	for i, s := range samples {
		if i > 0 {
			step := samples[i-1].Distance3D(s)
			movement += step
			if step > significantStep {
				p.SignificantRelocations++
			}
		}
		d := centroid.Distance3D(s)
		if d > maxFromCentroid {
			maxFromCentroid = d
		}
		distSum += d
		distSqSum += d * d
	}

	mean := distSum / n
	variance := distSqSum/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	p.TotalMovement = movement
	p.PositionVariance = math.Sqrt(variance)
	p.FightRadius = maxFromCentroid
	if duration > 0 {
		p.MobilityRate = movement / duration
	}
}
