package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storyloop/internal/engine"
	"storyloop/internal/escalation"
	"storyloop/internal/game"
	"storyloop/internal/game/events"
	"storyloop/internal/risk"
)

const (
	ToolGenerateNarrative = "generate_narrative"
	ToolGetWorldState     = "get_world_state"
)

type GenerateNarrativeInput struct {
	Action     string            `json:"action" jsonschema:"free-text player action"`
	Location   string            `json:"location" jsonschema:"location the action happens in"`
	Actor      string            `json:"actor,omitempty" jsonschema:"acting character, defaults to the player"`
	Signals    map[string]any    `json:"signals,omitempty" jsonschema:"risk signals overriding the derived ones"`
	Escalation map[string]string `json:"escalation,omitempty" jsonschema:"escalation context such as escalation_type"`
	SessionID  string            `json:"session_id,omitempty" jsonschema:"session identifier for tracing"`
}

type GenerateNarrativeOutput struct {
	Text      string  `json:"text"`
	Escalated bool    `json:"escalated"`
	Outcome   string  `json:"outcome"`
	Message   string  `json:"message,omitempty"`
	Score     float64 `json:"score"`
	EventID   string  `json:"event_id"`
	Category  string  `json:"category"`
	Actor     string  `json:"actor"`
	Location  string  `json:"location"`
	Health    int     `json:"health"`
	Alive     bool    `json:"alive"`
}

type GetWorldStateInput struct {
	Location string `json:"location,omitempty" jsonschema:"only return events seen from this location, defaults to the player's"`
}

type LocationOutput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Connections []string `json:"connections"`
	Creatures   []string `json:"creatures,omitempty"`
	Items       []string `json:"items,omitempty"`
}

type CharacterOutput struct {
	Name      string         `json:"name"`
	Location  string         `json:"location"`
	Health    int            `json:"health"`
	Alive     bool           `json:"alive"`
	Inventory []string       `json:"inventory"`
	Stats     map[string]int `json:"stats,omitempty"`
	Player    bool           `json:"player,omitempty"`
}

type EventOutput struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Actor    string `json:"actor,omitempty"`
	Location string `json:"location,omitempty"`
	Content  string `json:"content,omitempty"`
}

type WorldStateOutput struct {
	Locations      []LocationOutput  `json:"locations"`
	Characters     []CharacterOutput `json:"characters"`
	Conditions     map[string]string `json:"conditions"`
	ActiveTriggers []string          `json:"active_triggers"`
	RecentEvents   []EventOutput     `json:"recent_events"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        ToolGenerateNarrative,
		Description: "Run one narrative turn for an action and return the rendered text or escalation outcome",
	}, s.handleGenerateNarrative)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        ToolGetWorldState,
		Description: "Return locations, characters, conditions and recent events",
	}, s.handleGetWorldState)
}

func (s *Server) handleGenerateNarrative(ctx context.Context, req *sdk.CallToolRequest, input GenerateNarrativeInput) (*sdk.CallToolResult, GenerateNarrativeOutput, error) {
	if strings.TrimSpace(input.Action) == "" {
		return nil, GenerateNarrativeOutput{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, GenerateNarrativeOutput{}, fmt.Errorf("location is required")
	}

	res, err := s.narrator.Turn(ctx, engine.TurnRequest{
		Actor:      input.Actor,
		Action:     input.Action,
		Location:   input.Location,
		Signals:    risk.Signals(input.Signals),
		Escalation: escalation.Context(input.Escalation),
		SessionID:  input.SessionID,
	})
	if err != nil {
		return nil, GenerateNarrativeOutput{}, err
	}
	return nil, narrativeOutputFromTurn(res), nil
}

func (s *Server) handleGetWorldState(ctx context.Context, req *sdk.CallToolRequest, input GetWorldStateInput) (*sdk.CallToolResult, WorldStateOutput, error) {
	state := s.narrator.State()

	location := input.Location
	player := ""
	for _, c := range state.Characters {
		if c.Player {
			player = c.Name
			if location == "" {
				location = c.Location
			}
		}
	}
	if input.Location != "" && !hasLocation(state.Locations, input.Location) {
		return nil, WorldStateOutput{}, fmt.Errorf("location %q not found", input.Location)
	}

	return nil, worldStateOutput(state, events.FilterByLocation(location, player, state.RecentEvents)), nil
}

func narrativeOutputFromTurn(res engine.TurnResult) GenerateNarrativeOutput {
	return GenerateNarrativeOutput{
		Text:      res.Text,
		Escalated: res.Escalated(),
		Outcome:   string(res.Outcome.Kind),
		Message:   res.Outcome.Message,
		Score:     res.Assessment.Score,
		EventID:   res.Event.ID,
		Category:  string(res.Event.Category),
		Actor:     res.Actor.Name,
		Location:  res.Actor.Location,
		Health:    res.Actor.Health,
		Alive:     res.Actor.Alive,
	}
}

func worldStateOutput(state engine.WorldState, evs []events.WorldEvent) WorldStateOutput {
	out := WorldStateOutput{
		Locations:      make([]LocationOutput, 0, len(state.Locations)),
		Characters:     make([]CharacterOutput, 0, len(state.Characters)),
		Conditions:     make(map[string]string, len(state.Conditions)),
		ActiveTriggers: append([]string{}, state.ActiveTriggers...),
		RecentEvents:   make([]EventOutput, 0, len(evs)),
	}
	for _, loc := range state.Locations {
		out.Locations = append(out.Locations, LocationOutput{
			Name:        loc.Name,
			Description: loc.Description,
			Connections: append([]string{}, loc.Connections...),
			Creatures:   append([]string{}, loc.Creatures...),
			Items:       append([]string{}, loc.Items...),
		})
	}
	for _, c := range state.Characters {
		out.Characters = append(out.Characters, CharacterOutput{
			Name:      c.Name,
			Location:  c.Location,
			Health:    c.Health,
			Alive:     c.Alive,
			Inventory: append([]string{}, c.Inventory...),
			Stats:     c.Stats,
			Player:    c.Player,
		})
	}
	// Conditions are flattened to strings so the output schema stays closed.
	for k, v := range state.Conditions {
		out.Conditions[k] = fmt.Sprint(v)
	}
	for _, e := range evs {
		out.RecentEvents = append(out.RecentEvents, EventOutput{
			ID:       e.ID,
			Type:     string(e.Type),
			Actor:    e.Actor,
			Location: e.Location,
			Content:  e.Content,
		})
	}
	return out
}

func hasLocation(locs []game.Location, name string) bool {
	for _, l := range locs {
		if l.Name == name {
			return true
		}
	}
	return false
}
