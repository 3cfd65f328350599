package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyloop/cmd/game/ui"
	"storyloop/internal/config"
	"storyloop/internal/debug"
	"storyloop/internal/mcp"
)

func playCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return runRemotePlay(cmd.Context())
			}
			return runPlay(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "run the engine in a spawned MCP server process")
	return cmd
}

func runPlay(ctx context.Context) error {
	a, err := createApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := uuid.NewString()
	a.debug.Printf("Starting storyloop session %s", sessionID)
	backend := &localBackend{engine: a.engine, sessionID: sessionID}
	return runProgram(ctx, backend, a.debug, sessionID)
}

func runRemotePlay(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	debugLogger, err := debug.NewLogger(cfg.Debug, cfg.DebugLog)
	if err != nil {
		return err
	}
	defer debugLogger.Close()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	client := mcp.NewClient(version, debugLogger)
	if err := client.ConnectCommand(ctx, self, "mcp"); err != nil {
		return err
	}
	defer client.Close()

	sessionID := uuid.NewString()
	backend := &remoteBackend{client: client, sessionID: sessionID}
	return runProgram(ctx, backend, debugLogger, sessionID)
}

func runProgram(ctx context.Context, backend ui.Backend, debugLogger *debug.Logger, sessionID string) error {
	initial, err := backend.Snapshot(ctx)
	if err != nil {
		return err
	}
	model := ui.NewModel(backend, debugLogger, sessionID, initial)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
