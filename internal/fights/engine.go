package fights

import (
	"sort"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
)

// engagement is the open clustering state for one potential fight.
type engagement struct {
	center    telemetry.Location
	startTime time.Time
	lastEvent time.Time

	teams   map[int]bool
	radius  float64
	knocks  int
	kills   int
	damage  float64

	teamDamage map[int]float64
	teamKnocks map[int]int
	teamKills  map[int]int
	teamDeaths map[int]int

	players map[string]*participantTally
}

type participantTally struct {
	teamID      int
	accountID   string
	damageDealt float64
	damageTaken float64
	knocks      int
	kills       int
	attacks     int
	knocked     bool
	killed      bool
}

func (e *engagement) tally(ch *telemetry.Character) *participantTally {
	p, ok := e.players[ch.Name]
	if !ok {
		p = &participantTally{teamID: ch.TeamID, accountID: ch.AccountID}
		e.players[ch.Name] = p
	}
	if p.accountID == "" {
		p.accountID = ch.AccountID
	}
	return p
}

// admits reports whether the engagement can take this event: overlapping
// teams, inside the distance radius from the fixed center, inside the idle
// window, and not past the absolute duration cap.
func (e *engagement) admits(ev *combatEvent) bool {
	if ev.at.Sub(e.lastEvent) > EngagementWindow {
		return false
	}
	if ev.at.Sub(e.startTime) >= MaxFightDuration {
		return false
	}
	if e.center.Distance2D(ev.pos) > MaxEngagementDistance {
		return false
	}
	overlap := false
	for _, team := range eventTeams(ev) {
		if e.teams[team] {
			overlap = true
			break
		}
	}
	return overlap
}

func (e *engagement) extend(ev *combatEvent) {
	e.lastEvent = ev.at
	if d := e.center.Distance2D(ev.pos); d > e.radius {
		e.radius = d
	}
	for _, team := range eventTeams(ev) {
		e.teams[team] = true
	}

	switch ev.kind {
	case telemetry.KindDamage:
		e.damage += ev.damage
		victim := e.tally(ev.victim)
		victim.damageTaken += ev.damage
		if ev.attacker != nil {
			e.teamDamage[ev.attacker.TeamID] += ev.damage
			e.tally(ev.attacker).damageDealt += ev.damage
		}
	case telemetry.KindKnock:
		e.knocks++
		e.tally(ev.victim).knocked = true
		if ev.attacker != nil {
			e.teamKnocks[ev.attacker.TeamID]++
			e.tally(ev.attacker).knocks++
		}
	case telemetry.KindKill:
		e.kills++
		victim := e.tally(ev.victim)
		victim.killed = true
		e.teamDeaths[ev.victim.TeamID]++
		if ev.attacker != nil {
			e.teamKills[ev.attacker.TeamID]++
			e.tally(ev.attacker).kills++
		}
	case telemetry.KindAttack:
		if ev.attacker != nil {
			e.tally(ev.attacker).attacks++
		}
	}
}

// eventTeams lists the non-NPC team ids touched by the event.
func eventTeams(ev *combatEvent) []int {
	var teams []int
	if ev.attacker != nil && ev.attacker.TeamID != 0 && !telemetry.IsNPC(ev.attacker.Name) {
		teams = append(teams, ev.attacker.TeamID)
	}
	if ev.victim != nil && ev.victim.TeamID != 0 && !telemetry.IsNPC(ev.victim.Name) {
		duplicate := len(teams) == 1 && teams[0] == ev.victim.TeamID
		if !duplicate {
			teams = append(teams, ev.victim.TeamID)
		}
	}
	return teams
}

// Track clusters the match's combat events into engagements and returns the
// ones that classify as fights.
func Track(meta telemetry.MatchMeta, events []telemetry.Event) []Fight {
	var open []*engagement
	var closed []*engagement

	for i := range events {
		ev := normalizeCombatEvent(&events[i])
		if ev == nil {
			continue
		}

		// Close engagements whose idle window expired before this event.
		open, closed = sweep(open, closed, ev.at)

		var host *engagement
		for _, e := range open {
			if e.admits(ev) {
				host = e
				break
			}
		}
		if host == nil {
			host = &engagement{
				center:     ev.pos,
				startTime:  ev.at,
				lastEvent:  ev.at,
				teams:      make(map[int]bool),
				teamDamage: make(map[int]float64),
				teamKnocks: make(map[int]int),
				teamKills:  make(map[int]int),
				teamDeaths: make(map[int]int),
				players:    make(map[string]*participantTally),
			}
			open = append(open, host)
		}
		host.extend(ev)
	}
	closed = append(closed, open...)

	var fights []Fight
	for _, e := range closed {
		if fight, ok := finalize(meta, e, events); ok {
			fights = append(fights, fight)
		}
	}
	sort.Slice(fights, func(i, j int) bool { return fights[i].StartTime.Before(fights[j].StartTime) })
	return fights
}

func sweep(open, closed []*engagement, now time.Time) ([]*engagement, []*engagement) {
	kept := open[:0]
	for _, e := range open {
		if now.Sub(e.lastEvent) > EngagementWindow || now.Sub(e.startTime) >= MaxFightDuration {
			closed = append(closed, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, closed
}

// normalizeCombatEvent maps a parsed event to the engine's combat view, or
// nil when the event carries no player combat. Event position is the
// victim's location for damage, knock and kill events and the attacker's for
// attack events.
func normalizeCombatEvent(ev *telemetry.Event) *combatEvent {
	switch ev.Kind {
	case telemetry.KindDamage:
		d := ev.Damage
		if telemetry.IsNPC(d.Victim.Name) {
			return nil
		}
		ce := &combatEvent{at: ev.Timestamp, pos: d.Victim.Location, kind: ev.Kind, victim: &d.Victim, damage: d.Damage}
		if a := d.Attacker; a != nil && !telemetry.IsNPC(a.Name) && a.Name != d.Victim.Name {
			ce.attacker = a
		} else if a == nil || telemetry.IsNPC(a.Name) {
			// Environment damage (blue zone, fall) is not combat.
			return nil
		}
		return ce
	case telemetry.KindKnock:
		k := ev.Knock
		if telemetry.IsNPC(k.Victim.Name) || k.Attacker == nil || telemetry.IsNPC(k.Attacker.Name) {
			return nil
		}
		return &combatEvent{at: ev.Timestamp, pos: k.Victim.Location, kind: ev.Kind, attacker: k.Attacker, victim: &k.Victim}
	case telemetry.KindKill:
		k := ev.Kill
		if telemetry.IsNPC(k.Victim.Name) {
			return nil
		}
		ce := &combatEvent{at: ev.Timestamp, pos: k.Victim.Location, kind: ev.Kind, victim: &k.Victim}
		if killer := k.Killer; killer != nil && !telemetry.IsNPC(killer.Name) && killer.Name != k.Victim.Name {
			ce.attacker = killer
		} else {
			// Suicides and environment deaths do not belong to a fight.
			return nil
		}
		return ce
	case telemetry.KindAttack:
		a := ev.Attack
		if telemetry.IsNPC(a.Attacker.Name) {
			return nil
		}
		return &combatEvent{at: ev.Timestamp, pos: a.Attacker.Location, kind: ev.Kind, attacker: &a.Attacker}
	default:
		return nil
	}
}

// finalize sanitizes, classifies and attributes a closed engagement.
func finalize(meta telemetry.MatchMeta, e *engagement, events []telemetry.Event) (Fight, bool) {
	// Recompute the team list from the non-NPC participants actually
	// present; the union of team ids seen in raw damage events inflates it.
	teamSet := make(map[int]bool)
	for name, p := range e.players {
		if telemetry.IsNPC(name) || p.teamID == 0 {
			continue
		}
		teamSet[p.teamID] = true
	}
	teams := make([]int, 0, len(teamSet))
	for t := range teamSet {
		teams = append(teams, t)
	}
	sort.Ints(teams)
	if len(teams) < 2 {
		return Fight{}, false
	}

	reason, ok := classify(e, teams)
	if !ok {
		return Fight{}, false
	}

	fight := Fight{
		MatchID:     meta.MatchID,
		StartTime:   e.startTime,
		EndTime:     e.lastEvent,
		Duration:    e.lastEvent.Sub(e.startTime).Seconds(),
		TeamIDs:     teams,
		CenterX:     e.center.X,
		CenterY:     e.center.Y,
		CenterZ:     e.center.Z,
		FightRadius: e.radius,
		TotalKnocks: e.knocks,
		TotalKills:  e.kills,
		TotalDamage: e.damage,
		Reason:      reason,
	}
	classifyOutcome(&fight, e, teams)
	attachParticipants(&fight, e, events)
	return fight, true
}
