package events

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyloop/internal/game"
)

const placeholderCreature = "mysterious figure"

var defaultTemplates = []string{
	"{player} stumbles upon a hidden path leading deeper into {location}.",
	"A {creature} suddenly appears, blocking {player}'s path!",
	"{player} finds a {item} lying on the ground.",
	"The ground begins to shake, and a deep rumble echoes through {location}.",
}

var defaultItemCatalog = []string{"rusty sword", "healing potion", "ancient map"}

var nestedCandidates = []Category{CategoryFindItem, CategoryEncounterCreature, CategoryNothing}

// Generator turns an action label into an Event. It never fails: missing
// location content degrades the event to CategoryNothing.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	actions     map[string][]Category
	templates   []string
	itemCatalog []string
}

// NewGenerator returns a generator drawing from rng. A nil rng is seeded
// from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		rng: rng,
		actions: map[string][]Category{
			"explore": {
				CategoryFindItem,
				CategoryEncounterCreature,
				CategoryMoveLocation,
				CategoryTriggerEvent,
				CategoryNothing,
			},
		},
		templates:   append([]string{}, defaultTemplates...),
		itemCatalog: append([]string{}, defaultItemCatalog...),
	}
}

// RegisterAction maps an action label to its candidate categories.
func (g *Generator) RegisterAction(action string, candidates []Category) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions[normalizeAction(action)] = append([]Category{}, candidates...)
}

// Candidates returns the categories an action may produce. Unknown actions
// only produce CategoryNothing.
func (g *Generator) Candidates(action string) []Category {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.actions[normalizeAction(action)]; ok {
		return append([]Category{}, c...)
	}
	return []Category{CategoryNothing}
}

func (g *Generator) Generate(action string, actor *game.Actor, loc *game.Location) Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	cat := CategoryNothing
	if candidates, ok := g.actions[normalizeAction(action)]; ok && len(candidates) > 0 {
		cat = candidates[g.rng.Intn(len(candidates))]
	}
	return g.build(cat, actor, loc)
}

// GenerateCategory builds an event with the category forced.
func (g *Generator) GenerateCategory(cat Category, actor *game.Actor, loc *game.Location) Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !cat.Valid() {
		cat = CategoryNothing
	}
	return g.build(cat, actor, loc)
}

// GenerateNested builds the event behind a TriggerEvent consequence. Nesting
// stops at one level, so a nested trigger degrades to CategoryNothing.
func (g *Generator) GenerateNested(cat Category, actor *game.Actor, loc *game.Location) Event {
	if cat == CategoryTriggerEvent {
		cat = CategoryNothing
	}
	return g.GenerateCategory(cat, actor, loc)
}

func (g *Generator) build(cat Category, actor *game.Actor, loc *game.Location) Event {
	if loc == nil {
		loc = &game.Location{}
	}
	name := ""
	if actor != nil {
		name = actor.Name
	}

	creature := placeholderCreature
	if len(loc.Creatures) > 0 {
		creature = g.pick(loc.Creatures)
	}
	tmpl := g.pick(g.templates)
	flavorItem := g.pick(g.itemCatalog)

	ev := Event{
		ID:       uuid.NewString(),
		Category: cat,
		Description: strings.NewReplacer(
			"{player}", name,
			"{location}", loc.Name,
			"{creature}", creature,
			"{item}", flavorItem,
		).Replace(tmpl),
		Consequences: []Consequence{},
	}

	switch cat {
	case CategoryEncounterCreature:
		ev.Subject = creature
		ev.Consequences = append(ev.Consequences, HealthChange{Amount: -10})
	case CategoryFindItem:
		if len(loc.Items) == 0 {
			ev.Category = CategoryNothing
			break
		}
		item := g.pick(loc.Items)
		ev.Subject = item
		ev.Consequences = append(ev.Consequences, ItemAdd{Item: item})
	case CategoryMoveLocation:
		if len(loc.Connections) == 0 {
			ev.Category = CategoryNothing
			break
		}
		ev.Consequences = append(ev.Consequences, MoveLocation{Target: g.pick(loc.Connections)})
	case CategoryTriggerEvent:
		nested := nestedCandidates[g.rng.Intn(len(nestedCandidates))]
		ev.Consequences = append(ev.Consequences, TriggerEvent{Nested: nested})
	case CategoryChangeStat:
		ev.Consequences = append(ev.Consequences, ChangeStat{Stat: "strength", Amount: 5})
	}
	return ev
}

func (g *Generator) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[g.rng.Intn(len(options))]
}

func normalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}
