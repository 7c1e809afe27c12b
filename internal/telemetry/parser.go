package telemetry

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"
)

func sqrt(v float64) float64 { return math.Sqrt(v) }

// header is the minimal shape peeked from every raw event before dispatch.
type header struct {
	Type      string `json:"_T"`
	Timestamp string `json:"_D"`
}

// ParseResult is the outcome of parsing one event trace.
type ParseResult struct {
	Events  []Event
	Skipped int
}

// ParseFile opens and parses a stored gzipped event trace.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event trace: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a gzipped JSON array of events and decodes it once into the
// tagged union. A malformed event does not abort the trace; it is counted
// and skipped.
func Parse(r io.Reader) (*ParseResult, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	var raws []json.RawMessage
	if err := json.NewDecoder(gz).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode event array: %w", err)
	}

	res := &ParseResult{Events: make([]Event, 0, len(raws))}
	for _, raw := range raws {
		ev, ok := decodeEvent(raw)
		if !ok {
			res.Skipped++
			continue
		}
		res.Events = append(res.Events, ev)
	}

	// Processors require timestamp order; only sort when the trace is not
	// already ordered.
	if !sort.SliceIsSorted(res.Events, func(i, j int) bool {
		return res.Events[i].Timestamp.Before(res.Events[j].Timestamp)
	}) {
		sort.SliceStable(res.Events, func(i, j int) bool {
			return res.Events[i].Timestamp.Before(res.Events[j].Timestamp)
		})
	}
	return res, nil
}

func decodeEvent(raw json.RawMessage) (Event, bool) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil || h.Type == "" {
		return Event{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, h.Timestamp)
	if err != nil {
		return Event{}, false
	}

	ev := Event{Type: h.Type, Timestamp: ts}
	switch h.Type {
	case "LogPlayerKillV2":
		ev.Kind = KindKill
		ev.Kill = &KillEvent{}
		if json.Unmarshal(raw, ev.Kill) != nil {
			return Event{}, false
		}
	case "LogPlayerMakeGroggy":
		ev.Kind = KindKnock
		ev.Knock = &KnockEvent{}
		if json.Unmarshal(raw, ev.Knock) != nil {
			return Event{}, false
		}
	case "LogPlayerTakeDamage":
		ev.Kind = KindDamage
		ev.Damage = &DamageEvent{}
		if json.Unmarshal(raw, ev.Damage) != nil {
			return Event{}, false
		}
	case "LogItemUse":
		ev.Kind = KindItemUse
		ev.ItemUse = &ItemUseEvent{}
		if json.Unmarshal(raw, ev.ItemUse) != nil {
			return Event{}, false
		}
	case "LogPlayerAttack":
		ev.Kind = KindAttack
		ev.Attack = &AttackEvent{}
		if json.Unmarshal(raw, ev.Attack) != nil {
			return Event{}, false
		}
	case "LogPlayerPosition":
		ev.Kind = KindPosition
		ev.Position = &PositionEvent{}
		if json.Unmarshal(raw, ev.Position) != nil {
			return Event{}, false
		}
	case "LogGameStatePeriodic":
		ev.Kind = KindGameState
		ev.GameState = &GameStateEvent{}
		if json.Unmarshal(raw, ev.GameState) != nil {
			return Event{}, false
		}
	case "LogParachuteLanding":
		ev.Kind = KindLanding
		ev.Landing = &LandingEvent{}
		if json.Unmarshal(raw, ev.Landing) != nil {
			return Event{}, false
		}
	default:
		ev.Kind = KindOther
		ev.Raw = raw
	}
	return ev, true
}
