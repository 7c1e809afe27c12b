package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/TeamPew/pewstats-collectors-sub002/internal/broker"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/db"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/logging"
	"github.com/TeamPew/pewstats-collectors-sub002/internal/metrics"
)

// TraceFetcher is the API surface the download worker needs.
type TraceFetcher interface {
	FetchEventTrace(ctx context.Context, traceURL string) (io.ReadCloser, error)
}

// DownloadStore is the store surface the download worker needs.
type DownloadStore interface {
	SetStageFlag(ctx context.Context, matchID, flag string) error
}

// TelemetryDownload streams event traces to disk.
type TelemetryDownload struct {
	upstream TraceFetcher
	store    DownloadStore
	pub      Publisher
	root     string
	logger   logging.Interface
}

func NewTelemetryDownload(upstream TraceFetcher, store DownloadStore, pub Publisher, root string) *TelemetryDownload {
	return &TelemetryDownload{
		upstream: upstream,
		store:    store,
		pub:      pub,
		root:     root,
		logger:   logging.Component("telemetry-download"),
	}
}

// TracePath is the deterministic on-disk location for a match's event trace.
func TracePath(root, matchID string) string {
	return filepath.Join(root, "matchID="+matchID, "raw.json.gz")
}

// Handle processes one match.summary_complete message. A failed or partial
// download leaves no file behind; the error dead-letters the message.
func (w *TelemetryDownload) Handle(ctx context.Context, body []byte) error {
	var msg broker.MatchSummaryComplete
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode match.summary_complete: %w", err)
	}

	path := TracePath(w.root, msg.MatchID)
	if err := w.download(ctx, msg.TelemetryURL, path); err != nil {
		metrics.WorkerErrors.WithLabelValues("telemetry-download").Inc()
		return fmt.Errorf("download trace for %s: %w", msg.MatchID, err)
	}

	if err := w.store.SetStageFlag(ctx, msg.MatchID, db.FlagTelemetryDownloaded); err != nil {
		return err
	}
	next := broker.MatchTelemetryDownloaded{
		MessageID:     uuid.NewString(),
		MatchID:       msg.MatchID,
		MapName:       msg.MapName,
		GameMode:      msg.GameMode,
		TelemetryPath: path,
		CreatedAt:     msg.CreatedAt,
	}
	if err := w.pub.Publish(ctx, broker.KeyMatchTelemetryDownloaded, next); err != nil {
		return err
	}
	w.logger.Infof("downloaded trace for %s to %s", msg.MatchID, path)
	return nil
}

func (w *TelemetryDownload) download(ctx context.Context, traceURL, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	body, err := w.upstream.FetchEventTrace(ctx, traceURL)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
