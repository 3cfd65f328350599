package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyloop/internal/debug"
)

// turnTimeout bounds one turn including generation retries.
const turnTimeout = 30 * time.Second

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func narrateCmd(backend Backend, action string, debugLogger *debug.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		debugLogger.Printf("Narrating action %q", action)
		turn, err := backend.Narrate(ctx, action)
		if err != nil {
			debugLogger.Printf("Narration failed: %v", err)
		}
		return narrativeMsg{action: action, turn: turn, err: err}
	}
}

func snapshotCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		snap, err := backend.Snapshot(ctx)
		return snapshotMsg{snapshot: snap, err: err}
	}
}
