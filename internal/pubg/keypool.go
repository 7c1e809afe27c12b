package pubg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
)

const slidingWindow = 60 * time.Second

// Credential is an API key together with its per-minute budget and the
// sliding window of timestamps at which requests were issued on it.
type Credential struct {
	id     string
	key    string
	rpm    int
	issued []time.Time
}

// ID returns a short stable label for the credential, used in metrics.
func (c *Credential) ID() string { return c.id }

// Key returns the bearer token.
func (c *Credential) Key() string { return c.key }

// prune drops window entries older than 60 seconds.
func (c *Credential) prune(now time.Time) {
	cutoff := now.Add(-slidingWindow)
	i := 0
	for i < len(c.issued) && !c.issued[i].After(cutoff) {
		i++
	}
	c.issued = c.issued[i:]
}

// nextEligible returns the earliest instant at which issuing a request on
// this credential keeps its 60-second window within budget.
func (c *Credential) nextEligible(now time.Time) time.Time {
	c.prune(now)
	if len(c.issued) < c.rpm {
		return now
	}
	// The oldest entry that must expire before a new slot opens.
	return c.issued[len(c.issued)-c.rpm].Add(slidingWindow)
}

// KeyPool paces requests across a set of credentials. Acquire hands out the
// credential whose next send-slot is soonest and enforces a fleet-wide
// minimum gap of 60s / sum(budgets) between any two successful acquisitions,
// so issuance converges to the combined budget without bursts.
type KeyPool struct {
	mu        sync.Mutex
	creds     []*Credential
	interval  time.Duration
	lastIssue time.Time

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewKeyPool builds a pool from configured credentials.
func NewKeyPool(keys []config.APIKey) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("key pool requires at least one credential")
	}
	p := &KeyPool{
		now:   time.Now,
		sleep: sleepCtx,
	}
	total := 0
	for i, k := range keys {
		if k.RPM <= 0 {
			return nil, fmt.Errorf("credential %d has non-positive budget %d", i, k.RPM)
		}
		p.creds = append(p.creds, &Credential{
			id:  fmt.Sprintf("key-%d", i+1),
			key: k.Key,
			rpm: k.RPM,
		})
		total += k.RPM
	}
	p.interval = slidingWindow / time.Duration(total)
	return p, nil
}

// Acquire blocks until a request may be issued and returns the credential to
// use. The issuance timestamp is recorded before returning; the caller is
// expected to send exactly one request per acquisition.
func (p *KeyPool) Acquire(ctx context.Context) (*Credential, error) {
	// The lock is held across the pacing sleep so concurrent callers
	// serialize and the fleet-wide gap holds between any two acquisitions.
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()

	best := p.creds[0]
	bestAt := best.nextEligible(now)
	for _, c := range p.creds[1:] {
		if at := c.nextEligible(now); at.Before(bestAt) {
			best, bestAt = c, at
		}
	}

	target := bestAt
	if !p.lastIssue.IsZero() {
		if paced := p.lastIssue.Add(p.interval); paced.After(target) {
			target = paced
		}
	}

	if wait := target.Sub(now); wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
		now = p.now()
	}

	best.issued = append(best.issued, now)
	p.lastIssue = now
	return best, nil
}

// Interval returns the fleet-wide minimum gap between acquisitions.
func (p *KeyPool) Interval() time.Duration { return p.interval }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
