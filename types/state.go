package types

import "time"

// State identifies where a workflow is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether the state accepts no further stream events.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// WorkflowState is the single source of truth for one video workflow.
// It is owned by the workflow machine; everything else reads snapshots.
type WorkflowState struct {
	Status           State     `json:"status"`
	Progress         int       `json:"progress"`
	VideoID          string    `json:"video_id,omitempty"`
	CurrentStep      string    `json:"current_step,omitempty"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	DownloadURL      string    `json:"download_url,omitempty"`
	Err              string    `json:"error,omitempty"`
}

// LogEntry is a single timestamped line in the machine's log ring.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
