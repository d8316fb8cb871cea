package tui

// UI Text Constants
const (
	// Footer
	TextFooterIdle      = "Press 's' to start | 'x' to reset | 'q' or Ctrl+C to quit"
	TextFooterRunning   = "Workflow running | Press 'q' or Ctrl+C to quit"
	TextFooterCompleted = "Press 'd' to download | 'r' to regenerate | 's' to restart | 'q' to quit"
)
