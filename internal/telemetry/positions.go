package telemetry

import (
	"sort"
	"time"
)

// posSample is one timestamped position observation for a player.
type posSample struct {
	t   time.Time
	loc Location
}

// positionIndex holds per-player position samples in timestamp order and
// answers closest-in-time lookups.
type positionIndex struct {
	byPlayer map[string][]posSample
}

// buildPositionIndex collects position samples from every position-bearing
// event kind: explicit position events plus actor locations on combat events.
func buildPositionIndex(events []Event) *positionIndex {
	idx := &positionIndex{byPlayer: make(map[string][]posSample)}
	add := func(t time.Time, ch *Character) {
		if ch == nil || ch.Name == "" {
			return
		}
		idx.byPlayer[ch.Name] = append(idx.byPlayer[ch.Name], posSample{t: t, loc: ch.Location})
	}
	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindPosition:
			add(ev.Timestamp, &ev.Position.Character)
		case KindDamage:
			add(ev.Timestamp, ev.Damage.Attacker)
			add(ev.Timestamp, &ev.Damage.Victim)
		case KindKnock:
			add(ev.Timestamp, ev.Knock.Attacker)
			add(ev.Timestamp, &ev.Knock.Victim)
		case KindKill:
			add(ev.Timestamp, ev.Kill.Killer)
			add(ev.Timestamp, &ev.Kill.Victim)
		case KindAttack:
			add(ev.Timestamp, &ev.Attack.Attacker)
		case KindLanding:
			add(ev.Timestamp, &ev.Landing.Character)
		}
	}
	// Events are already time-ordered, but per-player slices interleave
	// several event kinds; keep them sorted for the binary search.
	for name := range idx.byPlayer {
		samples := idx.byPlayer[name]
		sort.SliceStable(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })
	}
	return idx
}

// nearest returns the position sample for name closest in time to t, if one
// exists within the window.
func (idx *positionIndex) nearest(name string, t time.Time, window time.Duration) (Location, bool) {
	samples := idx.byPlayer[name]
	if len(samples) == 0 {
		return Location{}, false
	}
	i := sort.Search(len(samples), func(i int) bool { return !samples[i].t.Before(t) })

	best := -1
	var bestDelta time.Duration
	for _, cand := range []int{i - 1, i} {
		if cand < 0 || cand >= len(samples) {
			continue
		}
		delta := samples[cand].t.Sub(t)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window && (best == -1 || delta < bestDelta) {
			best, bestDelta = cand, delta
		}
	}
	if best == -1 {
		return Location{}, false
	}
	return samples[best].loc, true
}

// between returns all samples for name inside [from, to].
func (idx *positionIndex) between(name string, from, to time.Time) []posSample {
	samples := idx.byPlayer[name]
	lo := sort.Search(len(samples), func(i int) bool { return !samples[i].t.Before(from) })
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].t.After(to) })
	if lo >= hi {
		return nil
	}
	return samples[lo:hi]
}
