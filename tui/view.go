package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"subgen/config"
	"subgen/types"
)

const (
	progressBarWidth   = 30
	maxVisibleSegments = 5
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render("🎬 SubGen Dashboard"))
	b.WriteString("\n\n")

	// Selected file and options
	if m.FilePath != "" {
		info := fmt.Sprintf("📁 %s → %s, font %d",
			filepath.Base(m.FilePath), m.TargetLanguage, m.FontSize)
		b.WriteString(InfoStyle.Render(info))
		b.WriteString("\n\n")
	}

	// Current state
	b.WriteString(m.stateText())
	b.WriteString("\n")

	// Progress bar
	if m.State.Status == types.StateProcessing || m.State.Status == types.StateCompleted {
		b.WriteString(renderProgressBar(m.State.Progress))
		b.WriteString("\n")
		if m.State.CurrentStep != "" {
			b.WriteString(InfoStyle.Render("   " + m.State.CurrentStep))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	// Detected language and segments
	if m.State.DetectedLanguage != "" {
		detected := fmt.Sprintf("🌐 Detected language: %s", config.NormalizeLang(m.State.DetectedLanguage))
		b.WriteString(InfoStyle.Render(detected))
		b.WriteString("\n")
	}
	if len(m.State.Segments) > 0 {
		stats := fmt.Sprintf("💬 Subtitle segments: %d", len(m.State.Segments))
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n")
		for i, seg := range m.State.Segments {
			if i >= maxVisibleSegments {
				b.WriteString(InfoStyle.Render(fmt.Sprintf("   … %d more", len(m.State.Segments)-i)))
				b.WriteString("\n")
				break
			}
			line := fmt.Sprintf("   %6.1fs-%.1fs  %s", seg.Start, seg.End, seg.Text)
			b.WriteString(InfoStyle.Render(line))
			b.WriteString("\n")
		}
	}

	// Logs
	if len(m.Logs) > 0 {
		b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		logs := m.Logs
		if len(logs) > 8 {
			logs = logs[len(logs)-8:]
		}
		for _, entry := range logs {
			b.WriteString(InfoStyle.Render("   " + entry.Message))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Results
	if m.State.Status == types.StateCompleted && m.ResultURL != "" {
		result := "✅ Subtitled video ready\n" + m.ResultURL
		if m.DownloadedPath != "" {
			result += "\nSaved to " + m.DownloadedPath
		}
		b.WriteString(BoxStyle.Render(result))
		b.WriteString("\n\n")
	}

	// Errors surfaced outside the workflow state
	if m.Err != nil {
		b.WriteString(ErrorStyle.Render("⚠️  " + m.Err.Error()))
		b.WriteString("\n\n")
	}

	// Help text
	b.WriteString(m.footerText())

	return b.String()
}

// stateText returns a styled one-line description of the workflow state.
func (m Model) stateText() string {
	st := m.State
	switch st.Status {
	case types.StateIdle:
		return InfoStyle.Render("💤 Idle")
	case types.StateUploading:
		return StatusStyle.Render("⬆️  Uploading video...")
	case types.StateProcessing:
		return StatusStyle.Render("⚙️  Processing...")
	case types.StateCompleted:
		return StatusStyle.Render("✅ Completed")
	case types.StateFailed:
		msg := "❌ Failed"
		if st.Err != "" {
			msg += ": " + st.Err
		}
		return ErrorStyle.Render(msg)
	default:
		return InfoStyle.Render(string(st.Status))
	}
}

func (m Model) footerText() string {
	switch {
	case m.busy:
		return InfoStyle.Render(TextFooterRunning)
	case m.State.Status == types.StateCompleted:
		return HighlightStyle.Render(TextFooterCompleted)
	default:
		return InfoStyle.Render(TextFooterIdle)
	}
}

// renderProgressBar draws a fixed-width bar for a 0-100 value.
func renderProgressBar(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * progressBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return ProgressStyle.Render(fmt.Sprintf("   [%s] %d%%", bar, progress))
}
