package broker

import "time"

// Routing keys of the pipeline's topic exchange. Each worker queue binds to
// exactly one key.
const (
	KeyMatchDiscovered          = "match.discovered"
	KeyMatchSummaryComplete     = "match.summary_complete"
	KeyMatchTelemetryDownloaded = "match.telemetry_downloaded"
	KeyMatchProcessingComplete  = "match.processing_complete"

	keyHealthcheck = "healthcheck"
)

// MatchDiscovered is published by the discovery service for every newly
// inserted match.
type MatchDiscovered struct {
	MessageID    string    `json:"message_id"`
	MatchID      string    `json:"match_id"`
	MapName      string    `json:"map"`
	GameMode     string    `json:"mode"`
	GameType     string    `json:"game_type"`
	TelemetryURL string    `json:"telemetry_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// MatchSummaryComplete is published after participant summaries are written.
type MatchSummaryComplete struct {
	MessageID    string    `json:"message_id"`
	MatchID      string    `json:"match_id"`
	MapName      string    `json:"map"`
	GameMode     string    `json:"mode"`
	TelemetryURL string    `json:"telemetry_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// MatchTelemetryDownloaded is published once the event trace is on disk.
type MatchTelemetryDownloaded struct {
	MessageID     string    `json:"message_id"`
	MatchID       string    `json:"match_id"`
	MapName       string    `json:"map"`
	GameMode      string    `json:"mode"`
	TelemetryPath string    `json:"telemetry_path"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchProcessingComplete is published after all telemetry processors finish.
type MatchProcessingComplete struct {
	MessageID string `json:"message_id"`
	MatchID   string `json:"match_id"`
}
