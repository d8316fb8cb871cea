package config

import "time"

// Stream and polling constants
const (
	// MaxReconnectAttempts bounds consecutive stream reconnects before the
	// workflow is declared failed
	MaxReconnectAttempts = 3

	// ReconnectBackoff is the fixed wait between stream reconnect attempts
	ReconnectBackoff = 1 * time.Second

	// StatusPollInterval is how often the reconciliation poller re-queries
	// status after a stream reports completion
	StatusPollInterval = 2 * time.Second

	// DashboardTick is the TUI refresh interval
	DashboardTick = 500 * time.Millisecond
)

// Upload constraints, mirroring what the backend enforces
const (
	// MaxUploadSize is the largest accepted video file (500MB)
	MaxUploadSize = 500 * 1024 * 1024
)

// AllowedVideoExtensions lists the upload formats the backend accepts
var AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// FontSizePresets are the subtitle sizes the dashboard offers
var FontSizePresets = []int{16, 20, 24, 28, 32}

// DefaultFontSize is used when no preset is chosen
const DefaultFontSize = 20

// DefaultTargetLanguage is used when no language is chosen
const DefaultTargetLanguage = "en"

// IsAllowedVideoExtension checks an extension (with leading dot) against the
// accepted upload formats
func IsAllowedVideoExtension(ext string) bool {
	for _, allowed := range AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsFontSizePreset reports whether size is one of the recognized presets
func IsFontSizePreset(size int) bool {
	for _, preset := range FontSizePresets {
		if size == preset {
			return true
		}
	}
	return false
}
