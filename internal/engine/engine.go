// Package engine runs the narrative pipeline: event, consequences, risk,
// escalation, structuring and rendering, one synchronous pass per action.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/escalation"
	"storyloop/internal/game"
	"storyloop/internal/game/director"
	"storyloop/internal/game/events"
	"storyloop/internal/game/narration"
	"storyloop/internal/llm"
	"storyloop/internal/logging"
	"storyloop/internal/observability"
	"storyloop/internal/risk"
)

const (
	historySize      = 20
	recentEventLimit = 100
	frequencyWindow  = time.Minute
)

// AuditLog receives one record per completed turn.
type AuditLog interface {
	RecordTurn(ctx context.Context, rec logging.TurnRecord) error
}

// Options wires the pipeline stages. Only World is required; every other
// stage falls back to its default.
type Options struct {
	World      *game.World
	Generator  *events.Generator
	Assessor   *risk.Assessor
	Controller *escalation.Controller
	Triggers   *narration.TriggerRegistry
	Structurer *narration.Structurer
	Composer   *narration.Composer
	Dialogue   *narration.DialogueManager
	Lore       narration.LoreProvider
	Audit      AuditLog
	History    *game.History
	Logger     *debug.Logger
	Now        func() time.Time
}

type Engine struct {
	world      *game.World
	generator  *events.Generator
	director   *director.Director
	assessor   *risk.Assessor
	controller *escalation.Controller
	triggers   *narration.TriggerRegistry
	structurer *narration.Structurer
	composer   *narration.Composer
	dialogue   *narration.DialogueManager
	lore       narration.LoreProvider
	audit      AuditLog
	history    *game.History
	logger     *debug.Logger
	now        func() time.Time
	tracer     trace.Tracer

	// worldMu guards trigger evaluation and world conditions. It is always
	// taken after an actor lock, never before.
	worldMu    sync.Mutex
	locksMu    sync.Mutex
	actorLocks map[string]*sync.Mutex

	eventsMu sync.Mutex
	recent   []events.WorldEvent
}

func New(opts Options) (*Engine, error) {
	if opts.World == nil {
		return nil, errs.Configuration("engine", "world is required")
	}
	e := &Engine{
		world:      opts.World,
		generator:  opts.Generator,
		assessor:   opts.Assessor,
		controller: opts.Controller,
		triggers:   opts.Triggers,
		structurer: opts.Structurer,
		composer:   opts.Composer,
		dialogue:   opts.Dialogue,
		lore:       opts.Lore,
		audit:      opts.Audit,
		history:    opts.History,
		logger:     opts.Logger,
		now:        opts.Now,
		tracer:     otel.Tracer("engine"),
		actorLocks: map[string]*sync.Mutex{},
	}
	if e.logger == nil {
		e.logger = debug.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.generator == nil {
		e.generator = events.NewGenerator(nil)
	}
	if e.history == nil {
		e.history = game.NewHistory(historySize)
	}
	if e.structurer == nil {
		e.structurer = narration.NewStructurer(e.logger)
	}
	if e.composer == nil {
		e.composer = narration.NewComposer(e.logger)
	}
	if e.dialogue == nil {
		e.dialogue = narration.NewDialogueManager(narration.NewPromptManager(), e.composer)
	}
	var err error
	if e.assessor == nil {
		if e.assessor, err = risk.NewAssessor(risk.DefaultBaseRisk, nil); err != nil {
			return nil, err
		}
	}
	if e.controller == nil {
		if e.controller, err = escalation.NewController(escalation.DefaultThreshold, nil, e.logger); err != nil {
			return nil, err
		}
	}
	if e.triggers == nil {
		if e.triggers, err = narration.DefaultTriggers(narration.EffectRerun, e.logger); err != nil {
			return nil, err
		}
	}
	e.director = director.NewDirector(e.world, e.generator, e.logger)
	return e, nil
}

// TurnRequest is one player action. Actor defaults to the world's player.
// Signals supplied here override the derived ones key by key.
type TurnRequest struct {
	Actor      string
	Action     string
	Location   string
	Signals    risk.Signals
	Escalation escalation.Context
	// Category forces the event category instead of drawing one.
	Category  events.Category
	SessionID string
}

type TurnResult struct {
	Actor        game.Actor           `json:"actor"`
	Event        events.Event         `json:"event"`
	Consequences director.Result      `json:"consequences"`
	Assessment   risk.Assessment      `json:"assessment"`
	Outcome      escalation.Outcome   `json:"outcome"`
	Structure    *narration.Structure `json:"structure,omitempty"`
	Dialogue     string               `json:"dialogue,omitempty"`
	Text         string               `json:"text"`
}

func (r TurnResult) Escalated() bool { return r.Outcome.Escalated() }

// GenerateNarrative runs one turn for the player and returns the rendered
// text, or the escalation confirmation when the turn was escalated.
func (e *Engine) GenerateNarrative(ctx context.Context, action, location string) (string, error) {
	res, err := e.Turn(ctx, TurnRequest{Action: action, Location: location})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Turn runs the full pipeline for req. Validation and configuration errors
// are returned before any state changes.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if req.SessionID != "" {
		ctx = observability.WithSessionID(ctx, req.SessionID)
	}
	ctx, span := e.tracer.Start(ctx, "engine.generate_narrative",
		trace.WithAttributes(
			attribute.String("action", req.Action),
			attribute.String("location", req.Location),
		),
	)
	defer span.End()

	actor, loc, err := e.validate(req)
	if err != nil {
		span.RecordError(err)
		e.logger.Printf("turn rejected: %v", err)
		return TurnResult{}, err
	}

	lock := e.actorLock(actor.Name)
	lock.Lock()
	defer lock.Unlock()

	e.logger.Printf("=== TURN START === actor=%s action=%q location=%s", actor.Name, req.Action, loc.Name)
	span.SetAttributes(attribute.String("actor", actor.Name))
	ctx = observability.WithGameContext(ctx, map[string]any{"actor": actor.Name, "location": loc.Name})

	now := e.now()
	e.history.AddPlayerAction(actor.Name, req.Action, now)

	ev := e.generateEvent(ctx, req, actor, loc)
	applied := e.director.Apply(ctx, ev.Consequences, actor, loc.Name)
	e.remember(actor.Name, loc.Name, ev, applied, now)

	assessment, outcome, err := e.assess(ctx, req, actor.Name, ev, now)
	if err != nil {
		span.RecordError(err)
		e.history.AddError(actor.Name, err, now)
		return TurnResult{}, err
	}

	result := TurnResult{
		Actor:        actor.Snapshot(),
		Event:        ev,
		Consequences: applied,
		Assessment:   assessment,
		Outcome:      outcome,
	}
	span.SetAttributes(
		attribute.String("event.category", string(ev.Category)),
		attribute.Float64("risk.score", assessment.Score),
		attribute.Bool("escalated", outcome.Escalated()),
	)

	if outcome.Escalated() {
		result.Text = outcome.Message
		e.logger.Printf("turn escalated via %s, structuring skipped", outcome.Kind)
		e.finish(ctx, req, result, now)
		return result, nil
	}

	structure := e.structure(ctx, req, actor, loc, ev, applied)
	result.Structure = &structure

	if ev.Category == events.CategoryFindItem || ev.Category == events.CategoryEncounterCreature {
		dctx := llm.WithOperationType(ctx, "narration.dialogue")
		result.Dialogue = e.dialogue.Respond(dctx, actor.Name, ev.Subject)
	}

	_, composeSpan := e.tracer.Start(ctx, "engine.compose")
	worldContext := game.BuildWorldContext(e.world, result.Actor, loc.Name, e.history.GetEntries())
	result.Text = e.composer.Compose(llm.WithOperationType(ctx, "narration.setup"), structure, result.Dialogue, worldContext)
	composeSpan.End()

	e.finish(ctx, req, result, now)
	e.logger.Printf("=== TURN END === health=%d alive=%v", result.Actor.Health, result.Actor.Alive)
	return result, nil
}

func (e *Engine) validate(req TurnRequest) (*game.Actor, *game.Location, error) {
	if strings.TrimSpace(req.Action) == "" {
		return nil, nil, errs.Validation("action", "must not be empty")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, nil, errs.Validation("location", "must not be empty")
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, nil, errs.Validation("category", "unknown event category "+string(req.Category))
	}
	loc, err := e.world.LocationDetails(req.Location)
	if err != nil {
		return nil, nil, err
	}

	var actor *game.Actor
	if req.Actor == "" {
		player, ok := e.world.Player()
		if !ok {
			return nil, nil, errs.Validation("actor", "world has no characters")
		}
		actor = player
	} else {
		a, ok := e.world.Characters[req.Actor]
		if !ok {
			return nil, nil, errs.Validation("actor", "unknown character "+req.Actor)
		}
		actor = a
	}

	// Signals and the escalation kind are checked here so a bad request never
	// mutates the world.
	if _, err := e.assessor.Assess(req.Signals); err != nil {
		return nil, nil, err
	}
	if err := e.controller.Validate(req.Escalation); err != nil {
		return nil, nil, err
	}
	return actor, loc, nil
}

func (e *Engine) generateEvent(ctx context.Context, req TurnRequest, actor *game.Actor, loc *game.Location) events.Event {
	_, span := e.tracer.Start(ctx, "engine.generate_event")
	defer span.End()

	var ev events.Event
	if req.Category != "" {
		ev = e.generator.GenerateCategory(req.Category, actor, loc)
	} else {
		category, _ := narration.ParseAction(req.Action)
		ev = e.generator.Generate(category, actor, loc)
	}
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.category", string(ev.Category)),
		attribute.Int("event.consequences", len(ev.Consequences)),
	)
	e.logger.Printf("event %s: %s (%d consequences)", ev.Category, ev.Description, len(ev.Consequences))
	return ev
}

func (e *Engine) assess(ctx context.Context, req TurnRequest, actor string, ev events.Event, now time.Time) (risk.Assessment, escalation.Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "engine.assess_risk")
	defer span.End()

	signals := e.deriveSignals(actor, ev, now)
	for k, v := range req.Signals {
		signals[k] = v
	}
	assessment, err := e.assessor.Assess(signals)
	if err != nil {
		return risk.Assessment{}, escalation.Outcome{}, err
	}

	escCtx := escalation.Context{}
	for k, v := range req.Escalation {
		escCtx[k] = v
	}
	if _, ok := escCtx[escalation.KeyEventID]; !ok {
		escCtx[escalation.KeyEventID] = ev.ID
	}
	outcome, assessment, err := e.controller.Decide(ctx, assessment, escCtx)
	if err != nil {
		return assessment, escalation.Outcome{}, err
	}
	span.SetAttributes(
		attribute.Float64("risk.score", assessment.Score),
		attribute.String("outcome", string(outcome.Kind)),
	)
	return assessment, outcome, nil
}

// deriveSignals fills the interaction signals from the turn itself.
func (e *Engine) deriveSignals(actor string, ev events.Event, now time.Time) risk.Signals {
	tone := 0.0
	switch ev.Category {
	case events.CategoryEncounterCreature:
		tone = -1
	case events.CategoryFindItem:
		tone = 1
	}
	duration := 0.0
	if first, ok := e.history.FirstSeen(actor); ok {
		duration = now.Sub(first).Minutes()
	}
	return risk.Signals{
		risk.SignalEmotionalTone:        tone,
		risk.SignalInteractionFrequency: float64(e.history.ActionsSince(actor, now.Add(-frequencyWindow))),
		risk.SignalInteractionDuration:  duration,
		risk.SignalSensitiveInformation: false,
	}
}

func (e *Engine) structure(ctx context.Context, req TurnRequest, actor *game.Actor, loc *game.Location, ev events.Event, applied director.Result) narration.Structure {
	_, span := e.tracer.Start(ctx, "engine.structure")
	defer span.End()

	lines := []string{}
	if ev.Description != "" {
		lines = append(lines, ev.Description)
	}
	lines = append(lines, applied.Successes...)
	for _, nested := range applied.Nested {
		if nested.Description != "" {
			lines = append(lines, nested.Description)
		}
	}

	e.worldMu.Lock()
	s := e.structurer.Structure(narration.Request{
		Action:   req.Action,
		Location: loc.Name,
		Actors:   []game.Actor{actor.Snapshot()},
		World:    e.world,
		Lore:     e.lore,
		Triggers: e.triggers,
		Events:   lines,
	})
	e.worldMu.Unlock()

	span.SetAttributes(attribute.StringSlice("active_triggers", s.ActiveTriggers))
	return s
}

func (e *Engine) remember(actor, location string, ev events.Event, applied director.Result, at time.Time) {
	records := events.Records(actor, location, ev, at)
	for _, nested := range applied.Nested {
		records = append(records, events.Records(actor, location, nested, at)...)
	}

	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	e.recent = append(e.recent, records...)
	if over := len(e.recent) - recentEventLimit; over > 0 {
		e.recent = append([]events.WorldEvent{}, e.recent[over:]...)
	}
}

func (e *Engine) finish(ctx context.Context, req TurnRequest, res TurnResult, at time.Time) {
	e.history.AddNarratorResponse(res.Actor.Name, res.Text, at)
	if e.audit == nil {
		return
	}
	rec := logging.TurnRecord{
		SessionID: observability.GetSessionIDFromContext(ctx),
		Actor:     res.Actor.Name,
		Action:    req.Action,
		Location:  req.Location,
		EventID:   res.Event.ID,
		Category:  string(res.Event.Category),
		Score:     res.Assessment.Score,
		Escalated: res.Escalated(),
		Outcome:   string(res.Outcome.Kind),
		Text:      res.Text,
	}
	if err := e.audit.RecordTurn(ctx, rec); err != nil {
		e.logger.Printf("failed to record turn: %v", err)
	}
}

func (e *Engine) actorLock(name string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.actorLocks[name]
	if !ok {
		l = &sync.Mutex{}
		e.actorLocks[name] = l
	}
	return l
}

// WorldState is a consistent copy of the world for read-only callers.
type WorldState struct {
	Locations      []game.Location     `json:"locations"`
	Characters     []game.Actor        `json:"characters"`
	Conditions     map[string]any      `json:"conditions"`
	ActiveTriggers []string            `json:"active_triggers"`
	RecentEvents   []events.WorldEvent `json:"recent_events"`
}

// State snapshots the world. Actor locks are taken in name order before the
// world lock, matching the order a turn uses.
func (e *Engine) State() WorldState {
	names := e.world.CharacterNames()
	locks := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		l := e.actorLock(name)
		l.Lock()
		locks = append(locks, l)
	}
	defer func() {
		for _, l := range locks {
			l.Unlock()
		}
	}()

	e.worldMu.Lock()
	defer e.worldMu.Unlock()

	state := WorldState{
		Conditions:     make(map[string]any, len(e.world.Conditions)),
		ActiveTriggers: e.triggers.Active(),
	}
	for _, name := range e.world.LocationNames() {
		state.Locations = append(state.Locations, *e.world.Locations[name])
	}
	for _, name := range names {
		state.Characters = append(state.Characters, e.world.Characters[name].Snapshot())
	}
	for k, v := range e.world.Conditions {
		state.Conditions[k] = v
	}
	state.RecentEvents = e.RecentEvents(0)
	return state
}

// RecentEvents returns up to limit of the latest world events, oldest
// first. A limit of zero returns all that are kept.
func (e *Engine) RecentEvents(limit int) []events.WorldEvent {
	e.eventsMu.Lock()
	defer e.eventsMu.Unlock()
	start := 0
	if limit > 0 && len(e.recent) > limit {
		start = len(e.recent) - limit
	}
	return append([]events.WorldEvent{}, e.recent[start:]...)
}

// Player returns a snapshot of the player character.
func (e *Engine) Player() (game.Actor, bool) {
	p, ok := e.world.Player()
	if !ok {
		return game.Actor{}, false
	}
	lock := e.actorLock(p.Name)
	lock.Lock()
	defer lock.Unlock()
	return p.Snapshot(), true
}

// SetCondition sets a world condition consulted by the triggers.
func (e *Engine) SetCondition(key string, value any) {
	e.worldMu.Lock()
	defer e.worldMu.Unlock()
	e.world.Conditions[key] = value
}

func (e *Engine) Controller() *escalation.Controller { return e.controller }
