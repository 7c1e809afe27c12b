// Package pubg implements the rate-managed upstream API client: a credential
// pool with proactive pacing and typed methods over the game API's JSON:API
// endpoints.
package pubg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// Error kinds surfaced to callers; check with errors.Is.
var (
	ErrNotFound    = errors.New("pubg: not found")
	ErrRateLimited = errors.New("pubg: rate limited")
	ErrUpstream    = errors.New("pubg: upstream error")
)

const (
	defaultBaseURL   = "https://api.pubg.com"
	apiTimeout       = 10 * time.Second
	telemetryTimeout = 5 * time.Minute
	maxLookupNames   = 10
)

// Retry schedule for transient upstream errors.
var backoffSchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Client is the typed upstream API client. API endpoints are paced through
// the key pool; the event-trace endpoint is unmetered and uses a long timeout.
type Client struct {
	pool       *KeyPool
	rankedPool *KeyPool
	platform   string
	baseURL    string

	httpClient      *http.Client
	telemetryClient *http.Client
	logger          logging.Interface

	// sleep is injectable for tests of the 429 path.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option adjusts client construction.
type Option func(*Client)

// WithBaseURL overrides the upstream base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the API transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient builds a client over the configured credentials. A ranked key, if
// present, gets its own single-credential pool so ranked-stats traffic does
// not consume discovery budget.
func NewClient(keys []config.APIKey, rankedKey *config.APIKey, platform string, opts ...Option) (*Client, error) {
	pool, err := NewKeyPool(keys)
	if err != nil {
		return nil, err
	}
	c := &Client{
		pool:            pool,
		platform:        platform,
		baseURL:         defaultBaseURL,
		httpClient:      &http.Client{Timeout: apiTimeout},
		telemetryClient: &http.Client{Timeout: telemetryTimeout},
		logger:          logging.Component("pubg-client"),
		sleep:           sleepCtx,
	}
	if rankedKey != nil {
		rp, err := NewKeyPool([]config.APIKey{*rankedKey})
		if err != nil {
			return nil, err
		}
		c.rankedPool = rp
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetPlayersByNames resolves up to 10 display names to account ids and
// recent match ids. Callers with more names must chunk before calling.
func (c *Client) GetPlayersByNames(ctx context.Context, names []string) (map[string]PlayerInfo, error) {
	if len(names) == 0 {
		return map[string]PlayerInfo{}, nil
	}
	if len(names) > maxLookupNames {
		return nil, fmt.Errorf("player lookup accepts at most %d names, got %d", maxLookupNames, len(names))
	}

	path := fmt.Sprintf("/shards/%s/players?filter[playerNames]=%s",
		c.platform, url.QueryEscape(strings.Join(names, ",")))
	body, err := c.doPaced(ctx, c.pool, path)
	if err != nil {
		return nil, err
	}

	var env playersEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode players response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("no players resolved: %w", ErrNotFound)
	}

	out := make(map[string]PlayerInfo, len(env.Data))
	for _, p := range env.Data {
		info := PlayerInfo{AccountID: p.ID, Name: p.Attributes.Name}
		for _, m := range p.Relationships.Matches.Data {
			info.MatchIDs = append(info.MatchIDs, m.ID)
		}
		out[p.Attributes.Name] = info
	}
	return out, nil
}

// GetMatch fetches one match by id. The match endpoint is a separate,
// unmetered endpoint class, so it bypasses credential pacing.
func (c *Client) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	path := fmt.Sprintf("/shards/%s/matches/%s", c.platform, matchID)
	cred := c.pool.creds[0]
	body, err := c.do(ctx, cred, path)
	if err != nil {
		return nil, err
	}
	var env matchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	return parseMatchEnvelope(&env)
}

// GetRankedStats returns per-game-mode ranked records for one player and season.
func (c *Client) GetRankedStats(ctx context.Context, accountID, seasonID string) ([]RankedStats, error) {
	pool := c.rankedPool
	if pool == nil {
		pool = c.pool
	}
	path := fmt.Sprintf("/shards/%s/players/%s/seasons/%s/ranked", c.platform, accountID, seasonID)
	body, err := c.doPaced(ctx, pool, path)
	if err != nil {
		return nil, err
	}

	var env rankedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode ranked stats: %w", err)
	}
	var out []RankedStats
	for mode, s := range env.Data.Attributes.RankedGameModeStats {
		out = append(out, RankedStats{
			GameMode:     mode,
			CurrentTier:  s.CurrentTier.Tier,
			CurrentSub:   s.CurrentTier.SubTier,
			CurrentPoint: s.CurrentRankPoint,
			BestTier:     s.BestTier.Tier,
			BestPoint:    s.BestRankPoint,
			Rounds:       s.RoundsPlayed,
			Wins:         s.Wins,
			Kills:        s.Kills,
			Deaths:       s.Deaths,
			KDA:          s.KDA,
			AvgRank:      s.AvgRank,
			Top10Ratio:   s.Top10Ratio,
			DamageDealt:  s.DamageDealt,
		})
	}
	return out, nil
}

// ListSeasons returns the season catalog for the configured platform.
func (c *Client) ListSeasons(ctx context.Context) ([]Season, error) {
	body, err := c.doPaced(ctx, c.pool, fmt.Sprintf("/shards/%s/seasons", c.platform))
	if err != nil {
		return nil, err
	}
	var env seasonsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode seasons: %w", err)
	}
	out := make([]Season, 0, len(env.Data))
	for _, s := range env.Data {
		out = append(out, Season{
			ID:          s.ID,
			IsCurrent:   s.Attributes.IsCurrentSeason,
			IsOffseason: s.Attributes.IsOffseason,
		})
	}
	return out, nil
}

// FetchEventTrace opens the event-trace blob at the given signed URL. The
// returned body is the raw gzip stream; content delivery is unmetered so no
// credential is consumed. The caller must close the reader.
func (c *Client) FetchEventTrace(ctx context.Context, traceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, traceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	// Ask for gzip explicitly so the transport hands us the compressed
	// stream instead of decompressing it; we persist the blob as-is.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.telemetryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch event trace: %w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("event trace %d: %w", resp.StatusCode, ErrNotFound)
		}
		return nil, fmt.Errorf("event trace %d: %w", resp.StatusCode, ErrUpstream)
	}
	return resp.Body, nil
}

// doPaced acquires a credential from the pool, then issues the request.
func (c *Client) doPaced(ctx context.Context, pool *KeyPool, path string) ([]byte, error) {
	cred, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, cred, path)
}

// do issues one API request. Transient errors retry with exponential
// backoff, a 429 sleeps to window expiry and retries once, other 4xx is
// terminal.
func (c *Client) do(ctx context.Context, cred *Credential, path string) ([]byte, error) {
	var lastErr error
	ratelimitRetried := false

	for attempt := 0; ; attempt++ {
		body, status, err := c.roundTrip(ctx, cred, path)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		case status == http.StatusTooManyRequests:
			if ratelimitRetried {
				return nil, fmt.Errorf("%s: %w", path, ErrRateLimited)
			}
			ratelimitRetried = true
			wait := retryAfter(body)
			c.logger.Warnf("rate limited on %s, sleeping %s", cred.ID(), wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		case status >= 500:
			lastErr = fmt.Errorf("%s returned %d: %w", path, status, ErrUpstream)
		default:
			return nil, fmt.Errorf("%s returned %d: %w", path, status, ErrUpstream)
		}

		if attempt >= len(backoffSchedule) {
			return nil, lastErr
		}
		if err := c.sleep(ctx, backoffSchedule[attempt]); err != nil {
			return nil, err
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, cred *Credential, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key())
	req.Header.Set("Accept", "application/vnd.api+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(cred.ID()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(cred.ID(), "network_error").Inc()
		return nil, 0, fmt.Errorf("request %s: %w: %v", path, ErrUpstream, err)
	}
	defer resp.Body.Close()
	metrics.APIRequests.WithLabelValues(cred.ID(), strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response %s: %w: %v", path, ErrUpstream, err)
	}
	return body, resp.StatusCode, nil
}

// retryAfter returns how long to sleep after a 429. The upstream does not
// send Retry-After, so fall back to one full sliding window.
func retryAfter(_ []byte) time.Duration {
	return slidingWindow
}
