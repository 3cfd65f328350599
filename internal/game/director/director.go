package director

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/game"
	"storyloop/internal/game/events"
	"storyloop/internal/observability"
)

// MaxNestingDepth bounds how far a TriggerEvent consequence may expand.
const MaxNestingDepth = 1

// Director applies event consequences to actors. It is the only writer of
// actor state during a turn.
type Director struct {
	world       *game.World
	generator   *events.Generator
	debugLogger *debug.Logger
	tracer      trace.Tracer
	appliers    map[events.ConsequenceKind]Applier
}

// NewDirector creates a Director over world. The generator is used to expand
// nested trigger consequences.
func NewDirector(world *game.World, generator *events.Generator, debugLogger *debug.Logger) *Director {
	if debugLogger == nil {
		debugLogger = debug.Nop()
	}
	d := &Director{
		world:       world,
		generator:   generator,
		debugLogger: debugLogger,
		tracer:      otel.Tracer("director"),
		appliers:    make(map[events.ConsequenceKind]Applier),
	}
	for _, a := range defaultAppliers() {
		d.appliers[a.Kind()] = a
	}
	return d
}

// Result summarises a consequence batch.
type Result struct {
	Successes []string
	Failures  []string
	// Nested holds events generated by TriggerEvent consequences.
	Nested []events.Event
}

// Apply runs consequences against actor strictly in order. Death does not
// stop the batch. A failed consequence is logged and skipped; it never
// aborts the rest. Callers must hold the actor's turn lock.
func (d *Director) Apply(ctx context.Context, consequences []events.Consequence, actor *game.Actor, location string) Result {
	attrs := []attribute.KeyValue{
		attribute.Int("consequence_count", len(consequences)),
		attribute.String("actor", actor.Name),
		attribute.String("location", location),
	}
	if sessionID := observability.GetSessionIDFromContext(ctx); sessionID != "" {
		attrs = append(attrs, attribute.String("session.id", sessionID))
	}

	ctx, span := d.tracer.Start(ctx, "director.apply_consequences", trace.WithAttributes(attrs...))
	defer span.End()

	result := &Result{}
	turn := &Turn{
		World:    d.world,
		Actor:    actor,
		Location: location,
		director: d,
		result:   result,
	}
	d.applyBatch(ctx, turn, consequences)

	if len(result.Failures) > 0 {
		d.debugLogger.Printf("%d consequences failed for %s", len(result.Failures), actor.Name)
		span.SetAttributes(
			attribute.Int("failure_count", len(result.Failures)),
			attribute.StringSlice("failures", result.Failures),
		)
	}
	span.SetAttributes(
		attribute.Int("success_count", len(result.Successes)),
		attribute.Int("health", actor.Health),
		attribute.Bool("alive", actor.Alive),
	)
	return *result
}

func (d *Director) applyBatch(ctx context.Context, turn *Turn, consequences []events.Consequence) {
	for i, c := range consequences {
		_, cSpan := d.tracer.Start(ctx, "director.apply",
			trace.WithAttributes(
				attribute.String("kind", string(c.Kind())),
				attribute.Int("index", i),
				attribute.Int("depth", turn.Depth),
			),
		)

		applier, exists := d.GetApplier(c.Kind())
		if !exists {
			failure := fmt.Sprintf("No applier for %s", c.Kind())
			turn.result.Failures = append(turn.result.Failures, failure)
			cSpan.SetAttributes(attribute.String("error_type", "applier_not_found"))
			cSpan.End()
			continue
		}

		if err := applier.Apply(ctx, turn, c); err != nil {
			failure := fmt.Sprintf("Failed to apply %s: %v", c, err)
			turn.result.Failures = append(turn.result.Failures, failure)
			errorType := "apply_failed"
			if errors.Is(err, errs.ErrLocationNotFound) {
				errorType = "location_not_found"
			}
			d.debugLogger.Printf("%s", failure)
			cSpan.SetAttributes(attribute.String("error_type", errorType))
			cSpan.RecordError(err)
		} else {
			turn.result.Successes = append(turn.result.Successes, applier.SuccessMessage(turn, c))
			cSpan.SetAttributes(attribute.String("result", "success"))
		}
		cSpan.End()
	}
}
