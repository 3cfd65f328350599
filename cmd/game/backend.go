package main

import (
	"context"
	"fmt"

	"storyloop/cmd/game/ui"
	"storyloop/internal/engine"
	"storyloop/internal/mcp"
)

// localBackend runs turns on an in-process engine.
type localBackend struct {
	engine    *engine.Engine
	sessionID string
}

func (b *localBackend) Narrate(ctx context.Context, action string) (ui.Turn, error) {
	player, ok := b.engine.Player()
	if !ok {
		return ui.Turn{}, fmt.Errorf("world has no player character")
	}
	res, err := b.engine.Turn(ctx, engine.TurnRequest{
		Action:    action,
		Location:  player.Location,
		SessionID: b.sessionID,
	})
	if err != nil {
		return ui.Turn{}, err
	}
	return ui.Turn{
		Text:      res.Text,
		Escalated: res.Escalated(),
		Outcome:   string(res.Outcome.Kind),
		Location:  res.Actor.Location,
		Health:    res.Actor.Health,
		Alive:     res.Actor.Alive,
	}, nil
}

func (b *localBackend) Snapshot(ctx context.Context) (ui.Snapshot, error) {
	state := b.engine.State()
	snap := ui.Snapshot{
		Conditions:     make(map[string]string, len(state.Conditions)),
		ActiveTriggers: state.ActiveTriggers,
	}
	for _, loc := range state.Locations {
		snap.Locations = append(snap.Locations, loc.Name)
	}
	for _, c := range state.Characters {
		if c.Player {
			snap.Location = c.Location
			snap.Health = c.Health
			snap.Alive = c.Alive
			snap.Inventory = c.Inventory
		}
	}
	for k, v := range state.Conditions {
		snap.Conditions[k] = fmt.Sprint(v)
	}
	return snap, nil
}

// remoteBackend drives a storyloop MCP server.
type remoteBackend struct {
	client    *mcp.Client
	sessionID string
}

func (b *remoteBackend) Narrate(ctx context.Context, action string) (ui.Turn, error) {
	snap, err := b.Snapshot(ctx)
	if err != nil {
		return ui.Turn{}, err
	}
	out, err := b.client.GenerateNarrative(ctx, mcp.GenerateNarrativeInput{
		Action:    action,
		Location:  snap.Location,
		SessionID: b.sessionID,
	})
	if err != nil {
		return ui.Turn{}, err
	}
	return ui.Turn{
		Text:      out.Text,
		Escalated: out.Escalated,
		Outcome:   out.Outcome,
		Location:  out.Location,
		Health:    out.Health,
		Alive:     out.Alive,
	}, nil
}

func (b *remoteBackend) Snapshot(ctx context.Context) (ui.Snapshot, error) {
	state, err := b.client.WorldState(ctx, "")
	if err != nil {
		return ui.Snapshot{}, err
	}
	snap := ui.Snapshot{
		Conditions:     state.Conditions,
		ActiveTriggers: state.ActiveTriggers,
	}
	for _, loc := range state.Locations {
		snap.Locations = append(snap.Locations, loc.Name)
	}
	for _, c := range state.Characters {
		if c.Player {
			snap.Location = c.Location
			snap.Health = c.Health
			snap.Alive = c.Alive
			snap.Inventory = c.Inventory
		}
	}
	if snap.Location == "" {
		return ui.Snapshot{}, fmt.Errorf("remote world has no player character")
	}
	return snap, nil
}
