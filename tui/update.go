package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"subgen/types"
	"subgen/workflow"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		m.State = m.Machine.Snapshot()
		m.Logs = m.Machine.Logs()
		return m, tickCmd()
	case WorkflowDoneMsg:
		return m.handleWorkflowDone(msg)
	case DownloadDoneMsg:
		return m.handleDownloadDone(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.Machine.Reset()
		return m, tea.Quit
	case "s", "S":
		if m.busy || m.FilePath == "" {
			return m, nil
		}
		if m.State.Status == types.StateIdle || m.State.Status.Terminal() {
			m.busy = true
			m.Err = nil
			m.ResultURL = ""
			m.DownloadedPath = ""
			return m, startWorkflow(m)
		}
	case "r", "R":
		if m.busy {
			return m, nil
		}
		videoID, segments := m.regenerateTarget()
		if videoID == "" || len(segments) == 0 {
			return m, nil
		}
		m.busy = true
		m.Err = nil
		m.ResultURL = ""
		m.DownloadedPath = ""
		return m, regenerateWorkflow(m, videoID, segments)
	case "d", "D":
		if m.State.Status == types.StateCompleted && m.DownloadedPath == "" {
			return m, downloadVideo(m, m.State.VideoID)
		}
	case "x", "X":
		if !m.busy {
			m.Machine.Reset()
			m.State = m.Machine.Snapshot()
			m.Err = nil
			m.ResultURL = ""
			m.DownloadedPath = ""
		}
	}
	return m, nil
}

// regenerateTarget picks the video and segments to re-render: the live
// workflow if it completed, else the remembered last upload.
func (m Model) regenerateTarget() (string, []types.Segment) {
	if m.State.Status == types.StateCompleted && m.State.VideoID != "" {
		return m.State.VideoID, m.State.Segments
	}
	if m.Session != nil {
		if last := m.Session.LastUpload(); last != nil {
			return last.VideoID, m.State.Segments
		}
	}
	return "", nil
}

// handleWorkflowDone processes start/regenerate completion
func (m Model) handleWorkflowDone(msg WorkflowDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.Err, workflow.ErrSuperseded) {
		// A newer workflow replaced this one, its result is stale.
		return m, nil
	}
	m.busy = false
	m.State = m.Machine.Snapshot()
	m.Logs = m.Machine.Logs()
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.ResultURL = msg.URL
	return m, nil
}

// handleDownloadDone processes download completion
func (m Model) handleDownloadDone(msg DownloadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.DownloadedPath = msg.Path
	return m, nil
}
