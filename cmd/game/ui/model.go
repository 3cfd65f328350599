package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"storyloop/internal/debug"
)

// Turn is what the UI needs from one narrated turn.
type Turn struct {
	Text      string
	Escalated bool
	Outcome   string
	Location  string
	Health    int
	Alive     bool
}

// Snapshot is the slice of world state shown by /world.
type Snapshot struct {
	Location       string
	Health         int
	Alive          bool
	Inventory      []string
	Locations      []string
	Conditions     map[string]string
	ActiveTriggers []string
}

// Backend runs turns either in process or against a remote server.
type Backend interface {
	Narrate(ctx context.Context, action string) (Turn, error)
	Snapshot(ctx context.Context) (Snapshot, error)
}

type Model struct {
	messages       []string
	input          string
	width          int
	height         int
	loading        bool
	animationFrame int
	backend        Backend
	debug          *debug.Logger
	sessionID      string
	status         Snapshot
}

func NewModel(backend Backend, debugLogger *debug.Logger, sessionID string, initial Snapshot) Model {
	messages := []string{}
	if debugLogger.IsEnabled() {
		messages = append(messages, fmt.Sprintf("[DEBUG] Session %s", sessionID))
		messages = append(messages, "[DEBUG] Commands: /world, /help")
		messages = append(messages, "")
	}

	return Model{
		messages:  messages,
		backend:   backend,
		debug:     debugLogger,
		sessionID: sessionID,
		status:    initial,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

type animationTickMsg struct{}

type narrativeMsg struct {
	action string
	turn   Turn
	err    error
}

type snapshotMsg struct {
	snapshot Snapshot
	err      error
}
