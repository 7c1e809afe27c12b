package pubg

import (
	"context"
	"testing"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
)

// fakeClock advances the pool's notion of time instead of sleeping.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) wire(p *KeyPool) {
	p.now = func() time.Time { return f.now }
	p.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		f.now = f.now.Add(d)
		return nil
	}
}

func TestKeyPoolInterval(t *testing.T) {
	tests := []struct {
		name string
		keys []config.APIKey
		want time.Duration
	}{
		{
			name: "single key",
			keys: []config.APIKey{{Key: "a", RPM: 10}},
			want: 6 * time.Second,
		},
		{
			name: "two keys of ten",
			keys: []config.APIKey{{Key: "a", RPM: 10}, {Key: "b", RPM: 10}},
			want: 3 * time.Second,
		},
		{
			name: "uneven budgets",
			keys: []config.APIKey{{Key: "a", RPM: 10}, {Key: "b", RPM: 50}},
			want: time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewKeyPool(tt.keys)
			if err != nil {
				t.Fatalf("NewKeyPool: %v", err)
			}
			if got := p.Interval(); got != tt.want {
				t.Errorf("Interval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyPoolRejectsBadConfig(t *testing.T) {
	if _, err := NewKeyPool(nil); err == nil {
		t.Error("expected error for empty key list")
	}
	if _, err := NewKeyPool([]config.APIKey{{Key: "a", RPM: 0}}); err == nil {
		t.Error("expected error for zero budget")
	}
}

func TestKeyPoolPacesAcquisitions(t *testing.T) {
	p, err := NewKeyPool([]config.APIKey{{Key: "a", RPM: 10}, {Key: "b", RPM: 10}})
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.wire(p)

	// First acquisition is immediate; every following one waits the fleet gap.
	for i := 0; i < 4; i++ {
		if _, err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if len(clock.sleeps) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != 3*time.Second {
			t.Errorf("sleep %d = %v, want 3s", i, d)
		}
	}
}

func TestKeyPoolSpillsToSoonestCredential(t *testing.T) {
	// Budget-1 keys saturate after one issue each, so acquisitions must
	// spill from the exhausted credential to the still-eligible one.
	p, err := NewKeyPool([]config.APIKey{{Key: "a", RPM: 1}, {Key: "b", RPM: 1}})
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.wire(p)

	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		cred, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		seen[cred.ID()]++
	}
	if seen["key-1"] != 1 || seen["key-2"] != 1 {
		t.Errorf("expected one issue per credential, got %v", seen)
	}
}

func TestKeyPoolHonorsPerKeyWindow(t *testing.T) {
	// One key with budget 2: the third acquisition must wait for the first
	// window entry to expire, not just the fleet gap.
	p, err := NewKeyPool([]config.APIKey{{Key: "a", RPM: 2}})
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	clock.wire(p)
	start := clock.now

	for i := 0; i < 3; i++ {
		if _, err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	// Third issuance lands once the first (at t=0) leaves the 60s window.
	if elapsed := clock.now.Sub(start); elapsed < 60*time.Second {
		t.Errorf("third acquisition after %v, want >= 60s", elapsed)
	}
}

func TestKeyPoolAcquireCancellation(t *testing.T) {
	p, err := NewKeyPool([]config.APIKey{{Key: "a", RPM: 1}})
	if err != nil {
		t.Fatalf("NewKeyPool: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := p.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	cancel()
	if _, err := p.Acquire(ctx); err == nil {
		t.Error("expected cancellation error on paced Acquire")
	}
}
