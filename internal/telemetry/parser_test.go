package telemetry

import (
	"bytes"
	"compress/gzip"
	"testing"
	"time"
)

func gzipJSON(t *testing.T, body string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(body)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return &buf
}

func TestParseDecodesKnownEvents(t *testing.T) {
	body := `[
		{"_T": "LogPlayerKillV2", "_D": "2025-06-01T12:00:05.000Z",
		 "victim": {"name": "Victim", "teamId": 2},
		 "killer": {"name": "Killer", "teamId": 1},
		 "finishDamageInfo": {"damageCauserName": "WeapHK416_C", "damageReason": "HeadShot", "distance": 12345}},
		{"_T": "LogSomethingNew", "_D": "2025-06-01T12:00:06.000Z", "payload": 1},
		{"_T": "LogParachuteLanding", "_D": "2025-06-01T12:00:01.000Z",
		 "character": {"name": "Victim", "teamId": 2, "location": {"x": 1, "y": 2, "z": 3}}}
	]`

	res, err := Parse(gzipJSON(t, body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
	if len(res.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(res.Events))
	}

	// Events arrive unordered and must come back sorted by timestamp.
	if res.Events[0].Kind != KindLanding {
		t.Errorf("first event kind = %v, want landing", res.Events[0].Kind)
	}
	kill := res.Events[1]
	if kill.Kind != KindKill {
		t.Fatalf("second event kind = %v, want kill", kill.Kind)
	}
	if kill.Kill.Victim.Name != "Victim" || kill.Kill.Killer.Name != "Killer" {
		t.Errorf("kill actors = %q/%q", kill.Kill.Killer.Name, kill.Kill.Victim.Name)
	}
	if kill.Kill.FinishDamageInfo.Distance != 12345 {
		t.Errorf("distance = %v", kill.Kill.FinishDamageInfo.Distance)
	}
	if res.Events[2].Kind != KindOther || res.Events[2].Type != "LogSomethingNew" {
		t.Errorf("unknown event not preserved: %+v", res.Events[2])
	}
}

func TestParseSkipsMalformedEvents(t *testing.T) {
	body := `[
		{"_T": "LogPlayerKillV2", "_D": "not-a-timestamp"},
		{"no_type": true},
		{"_T": "LogParachuteLanding", "_D": "2025-06-01T12:00:01.000Z", "character": {"name": "P"}}
	]`

	res, err := Parse(gzipJSON(t, body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if len(res.Events) != 1 {
		t.Errorf("events = %d, want 1", len(res.Events))
	}
}

func TestParseRejectsNonGzip(t *testing.T) {
	if _, err := Parse(bytes.NewBufferString(`[]`)); err == nil {
		t.Error("expected error for plain JSON input")
	}
}

func TestParseTimestampPrecision(t *testing.T) {
	body := `[{"_T": "LogParachuteLanding", "_D": "2025-06-01T12:00:01.5Z", "character": {"name": "P"}}]`
	res, err := Parse(gzipJSON(t, body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, 6, 1, 12, 0, 1, 500000000, time.UTC)
	if !res.Events[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", res.Events[0].Timestamp, want)
	}
}
