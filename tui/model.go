// Package tui is the terminal dashboard: a thin presentation layer over the
// workflow machine. It polls state snapshots, renders them, and issues
// commands; it never mutates workflow state directly.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"subgen/client"
	"subgen/session"
	"subgen/types"
	"subgen/workflow"
)

// Model holds the dashboard's local view of the workflow.
type Model struct {
	Machine *workflow.Machine
	Client  *client.Client
	Session *session.Store

	// Workflow inputs
	FilePath       string
	TargetLanguage string
	FontSize       int

	// Latest snapshot from the machine
	State types.WorkflowState
	Logs  []types.LogEntry

	// Command results
	ResultURL      string
	DownloadedPath string
	Err            error

	busy bool
}

// NewModel creates the dashboard model. filePath may be empty when the
// session remembers a previous upload to regenerate.
func NewModel(machine *workflow.Machine, c *client.Client, sess *session.Store, filePath, targetLanguage string, fontSize int) Model {
	return Model{
		Machine:        machine,
		Client:         c,
		Session:        sess,
		FilePath:       filePath,
		TargetLanguage: targetLanguage,
		FontSize:       fontSize,
		State:          machine.Snapshot(),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tickCmd()
}
