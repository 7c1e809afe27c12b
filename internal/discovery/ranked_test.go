package discovery

import (
	"context"
	"testing"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

type mockRankedUpstream struct {
	seasons []pubg.Season
	stats   map[string][]pubg.RankedStats

	statsCalls []string
}

func (m *mockRankedUpstream) ListSeasons(ctx context.Context) ([]pubg.Season, error) {
	return m.seasons, nil
}

func (m *mockRankedUpstream) GetRankedStats(ctx context.Context, accountID, seasonID string) ([]pubg.RankedStats, error) {
	m.statsCalls = append(m.statsCalls, accountID)
	s, ok := m.stats[accountID]
	if !ok {
		return nil, pubg.ErrNotFound
	}
	return s, nil
}

type mockRankedStore struct {
	players []db.TrackedPlayer

	seasonsUpserted []pubg.Season
	statsUpserted   map[string]string // account id -> season id
}

func (m *mockRankedStore) ListTrackedPlayers(ctx context.Context, limit int) ([]db.TrackedPlayer, error) {
	return m.players, nil
}

func (m *mockRankedStore) UpsertSeasons(ctx context.Context, seasons []pubg.Season) error {
	m.seasonsUpserted = seasons
	return nil
}

func (m *mockRankedStore) UpsertRankedStats(ctx context.Context, accountID, seasonID string, stats []pubg.RankedStats) error {
	if m.statsUpserted == nil {
		m.statsUpserted = map[string]string{}
	}
	m.statsUpserted[accountID] = seasonID
	return nil
}

func TestRankedRefreshPullsCurrentSeason(t *testing.T) {
	upstream := &mockRankedUpstream{
		seasons: []pubg.Season{
			{ID: "division.bro.official.pc-2018-35", IsCurrent: false},
			{ID: "division.bro.official.pc-2018-36", IsCurrent: true},
		},
		stats: map[string][]pubg.RankedStats{
			"acc-1": {{GameMode: "squad", CurrentTier: "Diamond", Rounds: 120}},
		},
	}
	store := &mockRankedStore{players: []db.TrackedPlayer{
		{PlayerName: "Alpha", AccountID: "acc-1"},
		{PlayerName: "Bravo", AccountID: "acc-2"}, // unranked this season
		{PlayerName: "Charlie"},                   // account id never resolved
	}}

	r := NewRankedRefresher(upstream, store, logging.Logger())
	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n != 1 {
		t.Errorf("refreshed = %d, want 1", n)
	}

	if len(store.seasonsUpserted) != 2 {
		t.Errorf("seasons upserted = %d, want 2", len(store.seasonsUpserted))
	}
	// Charlie has no account id, so only two upstream pulls happen.
	if len(upstream.statsCalls) != 2 {
		t.Errorf("stats calls = %v", upstream.statsCalls)
	}
	if store.statsUpserted["acc-1"] != "division.bro.official.pc-2018-36" {
		t.Errorf("stats upserted = %v", store.statsUpserted)
	}
	if _, ok := store.statsUpserted["acc-2"]; ok {
		t.Error("unranked player got an upsert")
	}
}

func TestRankedRefreshNoCurrentSeason(t *testing.T) {
	upstream := &mockRankedUpstream{
		seasons: []pubg.Season{{ID: "division.bro.official.pc-2018-35", IsCurrent: false}},
	}
	store := &mockRankedStore{players: []db.TrackedPlayer{{PlayerName: "Alpha", AccountID: "acc-1"}}}

	r := NewRankedRefresher(upstream, store, logging.Logger())
	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n != 0 {
		t.Errorf("refreshed = %d, want 0", n)
	}
	if len(upstream.statsCalls) != 0 {
		t.Errorf("stats pulled with no current season: %v", upstream.statsCalls)
	}
	if len(store.seasonsUpserted) != 1 {
		t.Errorf("season catalog not synced: %v", store.seasonsUpserted)
	}
}
