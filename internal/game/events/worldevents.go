package events

import (
	"fmt"
	"time"
)

// WorldEventType represents the canonical type of a recorded change.
type WorldEventType string

const (
	EventEncounter  WorldEventType = "encounter"
	EventMovement   WorldEventType = "movement"
	EventInventory  WorldEventType = "inventory"
	EventHealth     WorldEventType = "health"
	EventStatChange WorldEventType = "stat_change"
	EventTrigger    WorldEventType = "trigger"
	EventQuiet      WorldEventType = "quiet"
)

// WorldEvent is the canonical record of something that happened in the world.
type WorldEvent struct {
	ID        string         `json:"id"`
	Type      WorldEventType `json:"type"`
	Actor     string         `json:"actor,omitempty"`
	Target    string         `json:"target,omitempty"`
	Location  string         `json:"location,omitempty"`
	Content   string         `json:"content,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Records flattens an event into one WorldEvent per consequence. An event
// with no consequences still yields a single record so quiet turns are logged.
func Records(actor, location string, ev Event, ts time.Time) []WorldEvent {
	if len(ev.Consequences) == 0 {
		return []WorldEvent{{
			ID:        ev.ID + "_0",
			Type:      EventQuiet,
			Actor:     actor,
			Location:  location,
			Content:   ev.Description,
			Meta:      map[string]any{"category": string(ev.Category)},
			Timestamp: ts,
		}}
	}

	out := make([]WorldEvent, 0, len(ev.Consequences))
	for i, c := range ev.Consequences {
		rec := WorldEvent{
			ID:        fmt.Sprintf("%s_%d", ev.ID, i),
			Actor:     actor,
			Location:  location,
			Content:   fmt.Sprintf("%s: %s", actor, c),
			Meta:      map[string]any{"category": string(ev.Category), "kind": string(c.Kind())},
			Timestamp: ts,
		}
		switch v := c.(type) {
		case HealthChange:
			rec.Type = EventHealth
			if ev.Category == CategoryEncounterCreature {
				rec.Type = EventEncounter
				rec.Target = ev.Subject
			}
			rec.Meta["amount"] = v.Amount
		case ItemAdd:
			rec.Type = EventInventory
			rec.Target = v.Item
		case MoveLocation:
			rec.Type = EventMovement
			rec.Target = v.Target
		case TriggerEvent:
			rec.Type = EventTrigger
			rec.Target = string(v.Nested)
		case ChangeStat:
			rec.Type = EventStatChange
			rec.Target = v.Stat
			rec.Meta["amount"] = v.Amount
		}
		out = append(out, rec)
	}
	return out
}
