// Package model defines the persisted data model: recording options, session
// metadata, sessions, segments, blobs, recovery checkpoints and settings.
package model

import (
	"time"

	"taverntapesd/internal/ids"
)

// Format is the container an Encoder writes.
type Format string

const (
	FormatWAV        Format = "wav"
	FormatCompressed Format = "compressed"
	FormatUnknown    Format = "unknown"
)

// RecordingOptions configures a single recording session.
type RecordingOptions struct {
	Format               Format
	QualityKbps          int    // [64, 320] step 32
	SplitIntervalMinutes int    // [1, 120]; 0 means unset
	SplitSizeMB          int64  // >=1; 0 means unset
	InputDeviceID        string // "default" if unset
}

// SessionMetadata is the point-in-time summary of a session's recording
// parameters and progress.
type SessionMetadata struct {
	SessionName    string    `json:"session_name"`
	StartTime      time.Time `json:"start_time"`
	DurationSeconds float64  `json:"duration_seconds"`
	FileSizeBytes  int64     `json:"file_size_bytes"`
	Format         Format    `json:"format"`
	QualityKbps    int       `json:"quality_kbps"`
}

// SegmentRef references a single durable segment blob belonging to a
// session.
type SegmentRef struct {
	ID            ids.SegmentId   `json:"id"`
	Path          string          `json:"path"`
	Metadata      SessionMetadata `json:"metadata"`
	SequenceIndex int             `json:"sequence_index"`
}

// Session is the logical unit of one recorded gathering, potentially split
// across several segments.
type Session struct {
	ID        ids.SessionId   `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  SessionMetadata `json:"metadata"`
	Segments  []SegmentRef    `json:"segments"`
	Notes     []string        `json:"notes"`
	Tags      []string        `json:"tags"`
}

// Blob is an opaque byte sequence stored content-addressed by SegmentId.
type Blob struct {
	ID    ids.SegmentId `json:"id"`
	Bytes []byte        `json:"bytes"`
	Path  string        `json:"path"`
}

// RecoveryCheckpoint is the single-slot durable snapshot of a live
// recording, used to offer crash recovery on the next startup.
type RecoveryCheckpoint struct {
	SessionName       string           `json:"session_name"`
	StartTime         time.Time        `json:"start_time"`
	DurationSeconds   float64          `json:"duration_seconds"`
	IsPaused          bool             `json:"is_paused"`
	CurrentSegmentRef *SegmentRef      `json:"current_segment_ref,omitempty"`
	Metadata          SessionMetadata  `json:"metadata"`
}

// RecoveryCheckpointID is the fixed key for the single recovery slot.
const RecoveryCheckpointID = "current"

// RecoveryStaleness is the window beyond which a stray checkpoint is purged
// rather than offered for recovery.
const RecoveryStaleness = 24 * time.Hour

// Settings is the canonical, typed view over process-wide settings. Aliased
// keys (format/audio_format, quality/audio_quality) are reconciled onto
// Format/QualityKbps by the settings codec in internal/store.
type Settings struct {
	Theme                string `json:"theme"`
	Format               Format `json:"format"`
	QualityKbps          int    `json:"quality_kbps"`
	AutoSplitEnabled     bool   `json:"auto_split_enabled"`
	SplitIntervalMinutes int    `json:"split_interval_minutes"`
	SplitSizeMB          int64  `json:"split_size_mb"`
	StorageLocation      string `json:"storage_location"`
	InputDeviceID        string `json:"input_device_id"`

	// Unknown settings keys preserved verbatim on write-back for forward
	// compatibility (spec §6.1).
	Unknown map[string]string `json:"unknown,omitempty"`
}

// DefaultSettings returns the settings defaults per spec §6.1.
func DefaultSettings() Settings {
	return Settings{
		Theme:                "dark",
		Format:               FormatWAV,
		QualityKbps:          320,
		AutoSplitEnabled:     true,
		SplitIntervalMinutes: 30,
		SplitSizeMB:          500,
		StorageLocation:      "TavernTapes_Recordings",
		InputDeviceID:        "default",
	}
}
