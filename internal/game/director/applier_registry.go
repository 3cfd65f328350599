package director

import (
	"context"

	"storyloop/internal/errs"
	"storyloop/internal/game"
	"storyloop/internal/game/events"
)

// Applier applies one consequence variant to an actor.
type Applier interface {
	Kind() events.ConsequenceKind
	Apply(ctx context.Context, turn *Turn, c events.Consequence) error
	SuccessMessage(turn *Turn, c events.Consequence) string
}

// Turn is the state an applier may touch while a batch runs.
type Turn struct {
	World    *game.World
	Actor    *game.Actor
	Location string
	Depth    int
	director *Director
	result   *Result
}

func defaultAppliers() []Applier {
	return []Applier{
		&HealthChangeApplier{},
		&ItemAddApplier{},
		&MoveLocationApplier{},
		&TriggerEventApplier{},
		&ChangeStatApplier{},
	}
}

// RegisterApplier replaces the applier for its consequence kind.
func (d *Director) RegisterApplier(a Applier) error {
	if a == nil {
		return errs.Configuration("director", "nil applier")
	}
	d.appliers[a.Kind()] = a
	return nil
}

func (d *Director) GetApplier(kind events.ConsequenceKind) (Applier, bool) {
	a, exists := d.appliers[kind]
	return a, exists
}
