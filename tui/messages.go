package tui

import "time"

// Messages for the tea program (polling-based)

// TickMsg is sent periodically to refresh the machine snapshot
type TickMsg struct {
	Time time.Time
}

// WorkflowDoneMsg is sent when a start or regenerate command finishes
type WorkflowDoneMsg struct {
	URL string
	Err error
}

// DownloadDoneMsg is sent when a download finishes
type DownloadDoneMsg struct {
	Path string
	Err  error
}
