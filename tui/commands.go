package tui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"subgen/config"
	"subgen/types"
)

// tickCmd creates a command that ticks on the dashboard refresh interval
func tickCmd() tea.Cmd {
	return tea.Tick(config.DashboardTick, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// startWorkflow runs the full upload-and-process workflow
func startWorkflow(m Model) tea.Cmd {
	return func() tea.Msg {
		url, err := m.Machine.Start(context.Background(), m.FilePath, m.TargetLanguage, m.FontSize)
		if err == nil && m.Session != nil {
			st := m.Machine.Snapshot()
			_ = m.Session.SetLastUpload(types.NewUploadDescriptor(st.VideoID, m.FilePath))
		}
		return WorkflowDoneMsg{URL: url, Err: err}
	}
}

// regenerateWorkflow re-renders the current video with its current segments
func regenerateWorkflow(m Model, videoID string, segments []types.Segment) tea.Cmd {
	return func() tea.Msg {
		url, err := m.Machine.Regenerate(context.Background(), videoID, segments, m.FontSize, m.TargetLanguage)
		return WorkflowDoneMsg{URL: url, Err: err}
	}
}

// downloadVideo fetches the finished artifact next to the source file
func downloadVideo(m Model, videoID string) tea.Cmd {
	return func() tea.Msg {
		name := "subtitled_" + filepath.Base(m.FilePath)
		if m.FilePath == "" {
			name = "subtitled_" + videoID + ".mp4"
		}
		dst := filepath.Join(downloadDir(m.FilePath), name)
		if err := m.Client.Download(context.Background(), videoID, dst); err != nil {
			return DownloadDoneMsg{Err: err}
		}
		return DownloadDoneMsg{Path: dst}
	}
}

func downloadDir(filePath string) string {
	if strings.TrimSpace(filePath) == "" {
		return "."
	}
	return filepath.Dir(filePath)
}
