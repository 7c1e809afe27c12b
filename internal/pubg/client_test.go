package pubg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/config"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient([]config.APIKey{{Key: "test-key", RPM: 600}}, nil, "steam", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

const playersBody = `{
	"data": [
		{
			"type": "player",
			"id": "account.a1",
			"attributes": {"name": "PlayerOne"},
			"relationships": {"matches": {"data": [
				{"type": "match", "id": "m1"},
				{"type": "match", "id": "m2"}
			]}}
		}
	]
}`

func TestGetPlayersByNames(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(playersBody))
	}))

	infos, err := c.GetPlayersByNames(context.Background(), []string{"PlayerOne"})
	if err != nil {
		t.Fatalf("GetPlayersByNames: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	info, ok := infos["PlayerOne"]
	if !ok {
		t.Fatalf("missing PlayerOne in %v", infos)
	}
	if info.AccountID != "account.a1" {
		t.Errorf("AccountID = %q", info.AccountID)
	}
	if len(info.MatchIDs) != 2 || info.MatchIDs[0] != "m1" {
		t.Errorf("MatchIDs = %v", info.MatchIDs)
	}
}

func TestGetPlayersByNamesLimits(t *testing.T) {
	requests := 0
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(playersBody))
	}))

	names := make([]string, 11)
	for i := range names {
		names[i] = "p"
	}
	if _, err := c.GetPlayersByNames(context.Background(), names); err == nil {
		t.Error("expected error for 11 names")
	}
	if requests != 0 {
		t.Errorf("rejected lookup still issued %d requests", requests)
	}

	if _, err := c.GetPlayersByNames(context.Background(), names[:10]); err != nil {
		t.Errorf("10 names should be accepted: %v", err)
	}
}

func TestGetPlayersByNamesNoneResolved(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))

	_, err := c.GetPlayersByNames(context.Background(), []string{"ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetMatch(context.Background(), "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRateLimitRetriesOnce(t *testing.T) {
	requests := 0
	c, sleeps := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(playersBody))
	}))

	if _, err := c.GetPlayersByNames(context.Background(), []string{"PlayerOne"}); err != nil {
		t.Fatalf("expected recovery after 429: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 60*time.Second {
		t.Errorf("sleeps = %v, want one 60s wait", *sleeps)
	}
}

func TestRateLimitTerminalOnSecond429(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.GetPlayersByNames(context.Background(), []string{"PlayerOne"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestServerErrorBacksOff(t *testing.T) {
	requests := 0
	c, sleeps := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(playersBody))
	}))

	if _, err := c.GetPlayersByNames(context.Background(), []string{"PlayerOne"}); err != nil {
		t.Fatalf("expected recovery after 5xx: %v", err)
	}
	if requests != 3 {
		t.Errorf("requests = %d, want 3", requests)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
}

func TestServerErrorExhaustsRetries(t *testing.T) {
	requests := 0
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.GetPlayersByNames(context.Background(), []string{"PlayerOne"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	if requests != 4 {
		t.Errorf("requests = %d, want initial try plus three retries", requests)
	}
}
