package workers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
)

type mockTraceFetcher struct {
	body string
	err  error
}

func (m *mockTraceFetcher) FetchEventTrace(ctx context.Context, traceURL string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.body)), nil
}

type mockDownloadStore struct {
	flags []string
}

func (m *mockDownloadStore) SetStageFlag(ctx context.Context, matchID, flag string) error {
	m.flags = append(m.flags, flag)
	return nil
}

func summaryCompleteBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(broker.MatchSummaryComplete{
		MessageID:    "msg-1",
		MatchID:      "m1",
		TelemetryURL: "https://cdn/trace.json",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestTelemetryDownloadWritesTrace(t *testing.T) {
	root := t.TempDir()
	store := &mockDownloadStore{}
	pub := &capturingPublisher{}

	w := NewTelemetryDownload(&mockTraceFetcher{body: "gzipped-bytes"}, store, pub, root)
	if err := w.Handle(context.Background(), summaryCompleteBody(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	path := TracePath(root, "m1")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if string(data) != "gzipped-bytes" {
		t.Errorf("trace content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	if len(store.flags) != 1 || store.flags[0] != db.FlagTelemetryDownloaded {
		t.Errorf("flags = %v", store.flags)
	}
	if len(pub.keys) != 1 || pub.keys[0] != broker.KeyMatchTelemetryDownloaded {
		t.Fatalf("published = %v", pub.keys)
	}
	next := pub.payloads[0].(broker.MatchTelemetryDownloaded)
	if next.TelemetryPath != path {
		t.Errorf("payload path = %q, want %q", next.TelemetryPath, path)
	}
}

func TestTelemetryDownloadFailureLeavesNoFile(t *testing.T) {
	root := t.TempDir()
	store := &mockDownloadStore{}

	w := NewTelemetryDownload(&mockTraceFetcher{err: errors.New("upstream 503")}, store, &capturingPublisher{}, root)
	if err := w.Handle(context.Background(), summaryCompleteBody(t)); err == nil {
		t.Fatal("expected download error")
	}

	if _, err := os.Stat(TracePath(root, "m1")); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
	if len(store.flags) != 0 {
		t.Errorf("flag set despite failed download: %v", store.flags)
	}
}
