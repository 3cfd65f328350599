package director

import (
	"context"
	"fmt"

	"storyloop/internal/game/events"
)

type HealthChangeApplier struct{}

func (a *HealthChangeApplier) Kind() events.ConsequenceKind { return events.KindHealthChange }

func (a *HealthChangeApplier) Apply(ctx context.Context, turn *Turn, c events.Consequence) error {
	hc := c.(events.HealthChange)
	wasAlive := turn.Actor.Alive
	turn.Actor.AdjustHealth(hc.Amount)
	if wasAlive && !turn.Actor.Alive {
		turn.director.debugLogger.Printf("%s has fallen at %s", turn.Actor.Name, turn.Location)
	}
	return nil
}

func (a *HealthChangeApplier) SuccessMessage(turn *Turn, c events.Consequence) string {
	return fmt.Sprintf("%s health is now %d", turn.Actor.Name, turn.Actor.Health)
}

type ItemAddApplier struct{}

func (a *ItemAddApplier) Kind() events.ConsequenceKind { return events.KindItemAdd }

func (a *ItemAddApplier) Apply(ctx context.Context, turn *Turn, c events.Consequence) error {
	item := c.(events.ItemAdd).Item
	if item == "" {
		return fmt.Errorf("item_add requires an item")
	}
	turn.Actor.AddItem(item)
	return nil
}

func (a *ItemAddApplier) SuccessMessage(turn *Turn, c events.Consequence) string {
	return fmt.Sprintf("%s picked up %s", turn.Actor.Name, c.(events.ItemAdd).Item)
}

type MoveLocationApplier struct{}

func (a *MoveLocationApplier) Kind() events.ConsequenceKind { return events.KindMoveLocation }

// Apply looks the target up again instead of trusting the generator.
func (a *MoveLocationApplier) Apply(ctx context.Context, turn *Turn, c events.Consequence) error {
	return turn.World.MovePlayer(turn.Actor, c.(events.MoveLocation).Target)
}

func (a *MoveLocationApplier) SuccessMessage(turn *Turn, c events.Consequence) string {
	return fmt.Sprintf("%s moved to %s", turn.Actor.Name, c.(events.MoveLocation).Target)
}

type TriggerEventApplier struct{}

func (a *TriggerEventApplier) Kind() events.ConsequenceKind { return events.KindTriggerEvent }

// Apply generates the nested event and applies its consequences in the same
// pass. Triggers inside a nested event are not expanded.
func (a *TriggerEventApplier) Apply(ctx context.Context, turn *Turn, c events.Consequence) error {
	if turn.Depth >= MaxNestingDepth {
		return fmt.Errorf("nested trigger %s ignored past depth %d", c.(events.TriggerEvent).Nested, MaxNestingDepth)
	}
	loc := turn.World.Locations[turn.Location]
	nested := turn.director.generator.GenerateNested(c.(events.TriggerEvent).Nested, turn.Actor, loc)
	turn.result.Nested = append(turn.result.Nested, nested)

	inner := &Turn{
		World:    turn.World,
		Actor:    turn.Actor,
		Location: turn.Location,
		Depth:    turn.Depth + 1,
		director: turn.director,
		result:   turn.result,
	}
	turn.director.applyBatch(ctx, inner, nested.Consequences)
	return nil
}

func (a *TriggerEventApplier) SuccessMessage(turn *Turn, c events.Consequence) string {
	return fmt.Sprintf("%s triggered a %s event", turn.Actor.Name, c.(events.TriggerEvent).Nested)
}

type ChangeStatApplier struct{}

func (a *ChangeStatApplier) Kind() events.ConsequenceKind { return events.KindChangeStat }

func (a *ChangeStatApplier) Apply(ctx context.Context, turn *Turn, c events.Consequence) error {
	cs := c.(events.ChangeStat)
	if cs.Stat == "" {
		return fmt.Errorf("change_stat requires a stat name")
	}
	turn.Actor.ChangeStat(cs.Stat, cs.Amount)
	return nil
}

func (a *ChangeStatApplier) SuccessMessage(turn *Turn, c events.Consequence) string {
	cs := c.(events.ChangeStat)
	return fmt.Sprintf("%s %s is now %d", turn.Actor.Name, cs.Stat, turn.Actor.Stats[cs.Stat])
}
