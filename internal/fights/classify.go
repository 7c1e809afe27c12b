package fights

import "fmt"

// Classification thresholds.
const (
	alwaysFightCasualties = 2
	sustainedDamageTotal  = 150.0
	sustainedDamageShare  = 0.20
	returnFireDamage      = 75.0
)

// classify decides whether a closed engagement qualifies as a fight,
// applying the priority rules in order. The returned reason records which
// rule matched.
func classify(e *engagement, teams []int) (string, bool) {
	// An engagement with no casualties is never a fight, no matter how much
	// damage was traded.
	if e.knocks+e.kills == 0 {
		return "", false
	}

	// Rule 1: two or more knocks or kills is always a fight.
	if e.knocks+e.kills >= alwaysFightCasualties {
		return fmt.Sprintf("casualties=%d", e.knocks+e.kills), true
	}

	// Rule 2: a single instant kill counts only when the victim resisted,
	// scaled by team-size imbalance. Otherwise it is an execution.
	if e.kills == 1 && e.knocks == 0 {
		if victim, threshold, ok := singleKillResistance(e); ok {
			return fmt.Sprintf("single kill with resistance (%.0f HP >= %.0f)", victim, threshold), true
		}
		return "", false
	}

	// Rule 3: sustained reciprocal damage.
	if e.damage >= sustainedDamageTotal && everyTeamContributed(e, teams, e.damage*sustainedDamageShare) {
		return fmt.Sprintf("sustained reciprocal damage (%.0f HP)", e.damage), true
	}

	// Rule 4: a single knock with return fire from every side.
	if e.knocks == 1 && everyTeamContributed(e, teams, returnFireDamage) {
		return "single knock with return fire", true
	}

	return "", false
}

// singleKillResistance checks rule 2: the victim's dealt damage must meet
// the imbalance threshold (75 HP at 4v1 or worse, 50 HP at 4v2, 25 HP even).
func singleKillResistance(e *engagement) (dealt, threshold float64, ok bool) {
	var victim *participantTally
	for _, p := range e.players {
		if p.killed {
			victim = p
			break
		}
	}
	if victim == nil {
		return 0, 0, false
	}

	victimSide, otherSide := 0, 0
	for _, p := range e.players {
		if p.teamID == victim.teamID {
			victimSide++
		} else {
			otherSide++
		}
	}
	if victimSide == 0 {
		victimSide = 1
	}

	ratio := float64(otherSide) / float64(victimSide)
	switch {
	case ratio >= 4:
		threshold = 75
	case ratio >= 2:
		threshold = 50
	default:
		threshold = 25
	}
	return victim.damageDealt, threshold, victim.damageDealt >= threshold
}

// everyTeamContributed reports whether each team present dealt at least min damage.
func everyTeamContributed(e *engagement, teams []int, min float64) bool {
	for _, team := range teams {
		if e.teamDamage[team] < min {
			return false
		}
	}
	return true
}

// classifyOutcome fills the fight's outcome, winner/loser and per-team map.
func classifyOutcome(fight *Fight, e *engagement, teams []int) {
	fight.TeamOutcomes = make(map[int]TeamOutcome, len(teams))

	if len(teams) >= 3 {
		thirdPartyOutcome(fight, e, teams)
		return
	}

	a, b := teams[0], teams[1]
	deathsA, deathsB := e.teamDeaths[a], e.teamDeaths[b]
	sizeA, sizeB := teamSize(e, a), teamSize(e, b)

	winner, loser := a, b
	if deathsB < deathsA {
		winner, loser = b, a
	}
	winnerDeaths, loserDeaths := e.teamDeaths[winner], e.teamDeaths[loser]
	diff := loserDeaths - winnerDeaths
	total := deathsA + deathsB

	wipe := (deathsA >= sizeA && deathsA > 0) || (deathsB >= sizeB && deathsB > 0)
	switch {
	case wipe && diff > 0:
		fight.Outcome = OutcomeDecisiveWin
		fight.Reason += "; team wipe"
	case diff >= 2:
		fight.Outcome = OutcomeDecisiveWin
	case diff == 1 && total >= 2:
		fight.Outcome = OutcomeMarginalWin
	default:
		fight.Outcome = OutcomeDraw
		fight.TeamOutcomes[a] = TeamDraw
		fight.TeamOutcomes[b] = TeamDraw
		return
	}

	fight.WinnerTeamID = &winner
	fight.LoserTeamID = &loser
	fight.TeamOutcomes[winner] = TeamWon
	fight.TeamOutcomes[loser] = TeamLost
}

// thirdPartyOutcome handles 3+ team fights: one loser (most deaths), one
// winner (most kills, knocks tiebreak, damage tiebreak), everyone else DRAW.
func thirdPartyOutcome(fight *Fight, e *engagement, teams []int) {
	fight.Outcome = OutcomeThirdParty

	loser := teams[0]
	for _, t := range teams[1:] {
		if e.teamDeaths[t] > e.teamDeaths[loser] {
			loser = t
		}
	}

	winner := -1
	for _, t := range teams {
		if t == loser {
			continue
		}
		if winner == -1 || betterAttacker(e, t, winner) {
			winner = t
		}
	}

	for _, t := range teams {
		fight.TeamOutcomes[t] = TeamDraw
	}
	fight.TeamOutcomes[loser] = TeamLost
	if winner != -1 {
		fight.TeamOutcomes[winner] = TeamWon
		fight.WinnerTeamID = &winner
	}
	fight.LoserTeamID = &loser
}

func betterAttacker(e *engagement, t, than int) bool {
	if e.teamKills[t] != e.teamKills[than] {
		return e.teamKills[t] > e.teamKills[than]
	}
	if e.teamKnocks[t] != e.teamKnocks[than] {
		return e.teamKnocks[t] > e.teamKnocks[than]
	}
	return e.teamDamage[t] > e.teamDamage[than]
}

func teamSize(e *engagement, team int) int {
	n := 0
	for _, p := range e.players {
		if p.teamID == team {
			n++
		}
	}
	return n
}
