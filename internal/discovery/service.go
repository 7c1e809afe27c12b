// Package discovery sweeps the tracked-player roster for new matches and
// seeds the processing pipeline.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/dedup"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/pubg"
)

const (
	lookupChunkSize = 10
	knownWindow     = 14 * 24 * time.Hour
)

// Upstream is the slice of the API client discovery needs.
type Upstream interface {
	GetPlayersByNames(ctx context.Context, names []string) (map[string]pubg.PlayerInfo, error)
	GetMatch(ctx context.Context, matchID string) (*pubg.Match, error)
}

// Store is the slice of the store gateway discovery needs.
type Store interface {
	Ping(ctx context.Context) error
	ListTrackedPlayers(ctx context.Context, limit int) ([]db.TrackedPlayer, error)
	KnownMatchIDs(ctx context.Context, window time.Duration) (map[string]bool, error)
	InsertMatch(ctx context.Context, m *db.MatchRecord) (bool, error)
	UpdatePlayerAccountID(ctx context.Context, playerName, accountID string) error
}

// Publisher is the slice of the broker client discovery needs.
type Publisher interface {
	Healthcheck(ctx context.Context) error
	Publish(ctx context.Context, routingKey string, payload any) error
}

// SweepStats summarizes one sweep for the log line at sweep end.
type SweepStats struct {
	PlayersScanned    int
	MatchesSeen       int
	MatchesDiscovered int
	Elapsed           time.Duration
}

// Service discovers new matches for tracked players.
type Service struct {
	upstream Upstream
	store    Store
	pub      Publisher
	cache    *dedup.Cache
	logger   logging.Interface

	// Tournament sweeps use a dedicated roster and tag their matches so
	// downstream queues can prioritize them.
	discoveredBy string
	priority     int
}

// New builds a discovery service for the standard tracked-player roster.
func New(upstream Upstream, store Store, pub Publisher, cache *dedup.Cache, logger logging.Interface) *Service {
	return &Service{
		upstream:     upstream,
		store:        store,
		pub:          pub,
		cache:        cache,
		logger:       logger,
		discoveredBy: "discovery",
	}
}

// NewTournament builds the tournament-mode variant. Matches it discovers are
// tagged and carry a discovery priority.
func NewTournament(upstream Upstream, store Store, pub Publisher, cache *dedup.Cache, logger logging.Interface) *Service {
	s := New(upstream, store, pub, cache, logger)
	s.discoveredBy = "tournament"
	s.priority = 10
	return s
}

// Run sweeps continuously until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if stats, err := s.Sweep(ctx); err != nil {
			s.logger.Errorf("sweep failed: %v", err)
			metrics.WorkerErrors.WithLabelValues("discovery").Inc()
		} else {
			s.logger.Infof("sweep complete: players=%d seen=%d discovered=%d elapsed=%s",
				stats.PlayersScanned, stats.MatchesSeen, stats.MatchesDiscovered, stats.Elapsed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep performs one discovery pass. Pre-flight failures abort the sweep
// before any side effects.
func (s *Service) Sweep(ctx context.Context) (SweepStats, error) {
	start := time.Now()
	var stats SweepStats

	if err := s.store.Ping(ctx); err != nil {
		return stats, fmt.Errorf("store pre-flight: %w", err)
	}
	if err := s.pub.Healthcheck(ctx); err != nil {
		return stats, fmt.Errorf("broker pre-flight: %w", err)
	}

	players, err := s.store.ListTrackedPlayers(ctx, 0)
	if err != nil {
		return stats, err
	}
	stats.PlayersScanned = len(players)
	if len(players) == 0 {
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	known, err := s.store.KnownMatchIDs(ctx, knownWindow)
	if err != nil {
		return stats, err
	}

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.PlayerName
	}

	// seen dedupes within the sweep; a match observed under several tracked
	// players is fetched exactly once.
	seen := make(map[string]bool)
	for from := 0; from < len(names); from += lookupChunkSize {
		to := from + lookupChunkSize
		if to > len(names) {
			to = len(names)
		}

		infos, err := s.upstream.GetPlayersByNames(ctx, names[from:to])
		if errors.Is(err, pubg.ErrNotFound) {
			continue
		}
		if err != nil {
			// One bad chunk must not starve the rest of the roster.
			s.logger.Errorf("player lookup (%d-%d): %v", from, to, err)
			metrics.WorkerErrors.WithLabelValues("discovery").Inc()
			continue
		}

		for _, info := range infos {
			if err := s.store.UpdatePlayerAccountID(ctx, info.Name, info.AccountID); err != nil {
				s.logger.Warnf("account id update for %s: %v", info.Name, err)
			}
			for _, matchID := range info.MatchIDs {
				if seen[matchID] {
					continue
				}
				seen[matchID] = true
				stats.MatchesSeen++

				if known[matchID] || s.cache.Seen(ctx, matchID) {
					continue
				}
				discovered, err := s.discover(ctx, matchID)
				if err != nil {
					s.logger.Errorf("discover match %s: %v", matchID, err)
					metrics.WorkerErrors.WithLabelValues("discovery").Inc()
					continue
				}
				if discovered {
					stats.MatchesDiscovered++
					metrics.MatchesDiscovered.Inc()
				}
			}
		}
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// discover fetches one match, inserts its row, and publishes match.discovered.
// The insert is the idempotence gate; a lost race against another sweep means
// no publish.
func (s *Service) discover(ctx context.Context, matchID string) (bool, error) {
	match, err := s.upstream.GetMatch(ctx, matchID)
	if err != nil {
		return false, err
	}

	rec := &db.MatchRecord{
		MatchID:           match.MatchID,
		MapName:           match.MapName,
		GameMode:          match.GameMode,
		GameType:          match.MatchType,
		TelemetryURL:      match.TelemetryURL,
		CreatedAt:         match.CreatedAt,
		DiscoveredBy:      s.discoveredBy,
		DiscoveryPriority: s.priority,
		IsTournamentMatch: s.discoveredBy == "tournament",
	}
	inserted, err := s.store.InsertMatch(ctx, rec)
	if err != nil {
		return false, err
	}
	if err := s.cache.MarkSeen(ctx, matchID); err != nil {
		s.logger.Warnf("dedup cache: %v", err)
	}
	if !inserted {
		return false, nil
	}

	msg := broker.MatchDiscovered{
		MessageID:    uuid.NewString(),
		MatchID:      match.MatchID,
		MapName:      match.MapName,
		GameMode:     match.GameMode,
		GameType:     match.MatchType,
		TelemetryURL: match.TelemetryURL,
		CreatedAt:    match.CreatedAt,
	}
	if err := s.pub.Publish(ctx, broker.KeyMatchDiscovered, msg); err != nil {
		return true, fmt.Errorf("publish discovered %s: %w", matchID, err)
	}
	return true, nil
}
