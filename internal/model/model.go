package model

import (
	"strings"
	"time"
)

// Model is a tracked broadcaster plus its recording configuration.
// Username is the identity and is always stored case-folded.
type Model struct {
	Username      string    `json:"username"`
	AddedAt       time.Time `json:"addedAt"`
	RecordQuality string    `json:"recordQuality"`
	RetentionDays int       `json:"retentionDays"`
	AutoRecord    bool      `json:"autoRecord"`
}

// Key returns the canonical (case-folded, trimmed) form of a username.
func Key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ModelStatus is the ephemeral liveness probe result for one model.
// Superseded on every refresh; lives only as long as its cache TTL.
type ModelStatus struct {
	Username        string `json:"username"`
	IsOnline        bool   `json:"isOnline"`
	Viewers         int    `json:"viewers"`
	Thumbnail       string `json:"thumbnail"`
	RecordingsCount int    `json:"recordingsCount"`
}

// RecordingSession is a backend-managed recording process.
// The backend guarantees at most one Running=true session per person.
type RecordingSession struct {
	ID          string    `json:"id"`
	Person      string    `json:"person"`
	Running     bool      `json:"running"`
	RecordPath  string    `json:"record_path"`
	PlaybackURL string    `json:"playback_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// SnapshotModel is one row of the dashboard snapshot: Model joined with
// its latest status, as returned by GET /api/dashboard.
type SnapshotModel struct {
	Model
	IsOnline        bool   `json:"isOnline"`
	Viewers         int    `json:"viewers"`
	Thumbnail       string `json:"thumbnail"`
	IsRecording     bool   `json:"isRecording"`
	RecordingsCount int    `json:"recordingsCount"`
}

// DashboardSnapshot is the preferred single-round-trip payload joining
// models, per-model status and the active session list.
type DashboardSnapshot struct {
	Models   []SnapshotModel    `json:"models"`
	Sessions []RecordingSession `json:"sessions"`
}
