package backfill

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/telemetry"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/workers"
)

type mockBackfillStore struct {
	items []db.BackfillItem

	flags      []string
	skipped    []string
	failed     []string
	killRows   []telemetry.KillRow
	damageErr  error
	enqueueLen int
}

func (m *mockBackfillStore) EnqueueBackfill(ctx context.Context, playerName string, window time.Duration) (int, error) {
	return m.enqueueLen, nil
}

func (m *mockBackfillStore) PendingBackfill(ctx context.Context, limit, maxRetries int) ([]db.BackfillItem, error) {
	return m.items, nil
}

func (m *mockBackfillStore) SetBackfillFlag(ctx context.Context, id int64, flag string) error {
	m.flags = append(m.flags, flag)
	return nil
}

func (m *mockBackfillStore) FailBackfill(ctx context.Context, id int64, reason string, maxRetries int) error {
	m.failed = append(m.failed, reason)
	return nil
}

func (m *mockBackfillStore) SkipBackfill(ctx context.Context, id int64, reason string) error {
	m.skipped = append(m.skipped, reason)
	return nil
}

func (m *mockBackfillStore) GetMatch(ctx context.Context, matchID string) (*db.MatchRecord, error) {
	return &db.MatchRecord{MatchID: matchID, MapName: "Baltic_Main", GameMode: "squad", GameType: "official"}, nil
}

func (m *mockBackfillStore) InsertKills(ctx context.Context, rows []telemetry.KillRow) error {
	m.killRows = append(m.killRows, rows...)
	return nil
}

func (m *mockBackfillStore) InsertDamage(ctx context.Context, rows []telemetry.DamageRow) error {
	return m.damageErr
}

func (m *mockBackfillStore) InsertWeaponDistribution(ctx context.Context, rows []telemetry.WeaponDistRow) error {
	return nil
}

func (m *mockBackfillStore) InsertCircles(ctx context.Context, rows []telemetry.CircleRow) error {
	return nil
}

// writeTrace drops a gzipped trace with kills by two unrelated pairs so the
// per-player narrowing is observable.
func writeTrace(t *testing.T, root string) {
	t.Helper()
	path := workers.TracePath(root, "m1")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gz := gzip.NewWriter(f)
	trace := `[
		{"_T": "LogPlayerKillV2", "_D": "2025-06-01T12:00:05.000Z",
		 "victim": {"name": "Bravo", "teamId": 2},
		 "killer": {"name": "Alpha", "teamId": 1},
		 "finishDamageInfo": {"damageCauserName": "WeapHK416_C", "damageReason": "HeadShot", "distance": 1000}},
		{"_T": "LogPlayerKillV2", "_D": "2025-06-01T12:00:06.000Z",
		 "victim": {"name": "Delta", "teamId": 4},
		 "killer": {"name": "Charlie", "teamId": 3},
		 "finishDamageInfo": {"damageCauserName": "WeapAK47_C", "damageReason": "TorsoShot", "distance": 500}}
	]`
	if _, err := gz.Write([]byte(trace)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunOnceAdvancesAllFlags(t *testing.T) {
	root := t.TempDir()
	writeTrace(t, root)
	store := &mockBackfillStore{items: []db.BackfillItem{
		{ID: 1, PlayerName: "Alpha", MatchID: "m1", Status: db.BackfillProcessing},
	}}

	o := New(store, root, 180*24*time.Hour, 3, 1)
	n, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}

	want := []string{db.BackfillFlagKills, db.BackfillFlagDamage, db.BackfillFlagWeapons, db.BackfillFlagCircles}
	if len(store.flags) != len(want) {
		t.Fatalf("flags = %v, want %v", store.flags, want)
	}
	for i := range want {
		if store.flags[i] != want[i] {
			t.Errorf("flag[%d] = %q, want %q", i, store.flags[i], want[i])
		}
	}

	// Only the Alpha/Bravo kill survives the narrowing; Charlie/Delta does not
	// involve the backfilled player.
	if len(store.killRows) != 1 {
		t.Fatalf("kill rows = %d, want 1", len(store.killRows))
	}
	if store.killRows[0].VictimName != "Bravo" {
		t.Errorf("kill victim = %q", store.killRows[0].VictimName)
	}
	if len(store.failed) != 0 || len(store.skipped) != 0 {
		t.Errorf("unexpected failures %v or skips %v", store.failed, store.skipped)
	}
}

func TestRetriedRowResumesAtIncompleteStep(t *testing.T) {
	root := t.TempDir()
	writeTrace(t, root)
	store := &mockBackfillStore{items: []db.BackfillItem{
		{ID: 1, PlayerName: "Alpha", MatchID: "m1", RetryCount: 1, KillsProcessed: true, DamageProcessed: true},
	}}

	o := New(store, root, 180*24*time.Hour, 3, 1)
	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.killRows) != 0 {
		t.Errorf("completed kills step reran: %d rows", len(store.killRows))
	}
	want := []string{db.BackfillFlagWeapons, db.BackfillFlagCircles}
	if len(store.flags) != len(want) || store.flags[0] != want[0] || store.flags[1] != want[1] {
		t.Errorf("flags = %v, want %v", store.flags, want)
	}
}

func TestMissingTraceSkipsRow(t *testing.T) {
	store := &mockBackfillStore{items: []db.BackfillItem{
		{ID: 1, PlayerName: "Alpha", MatchID: "m1"},
	}}

	o := New(store, t.TempDir(), 180*24*time.Hour, 3, 1)
	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.skipped) != 1 || !strings.Contains(store.skipped[0], "trace not on disk") {
		t.Errorf("skipped = %v", store.skipped)
	}
	if len(store.flags) != 0 {
		t.Errorf("flags advanced on skipped row: %v", store.flags)
	}
	if len(store.failed) != 0 {
		t.Errorf("skip counted as failure: %v", store.failed)
	}
}

func TestProcessorFailureRecordsRetry(t *testing.T) {
	root := t.TempDir()
	writeTrace(t, root)
	store := &mockBackfillStore{
		items:     []db.BackfillItem{{ID: 1, PlayerName: "Alpha", MatchID: "m1"}},
		damageErr: errors.New("db down"),
	}

	o := New(store, root, 180*24*time.Hour, 3, 1)
	if _, err := o.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(store.failed) != 1 || !strings.Contains(store.failed[0], "db down") {
		t.Fatalf("failed = %v", store.failed)
	}
	// The kills step completed before the damage step broke.
	if len(store.flags) != 1 || store.flags[0] != db.BackfillFlagKills {
		t.Errorf("flags = %v", store.flags)
	}
}
