package game

import (
	"sort"

	"storyloop/internal/errs"
)

const (
	MinHealth = 0
	MaxHealth = 100
)

// Motivation is a named drive with an urgency used for ordering.
type Motivation struct {
	Name    string `json:"name"`
	Urgency int    `json:"urgency"`
}

// Actor is a character in the world. Actors are never removed, only marked
// not alive once their health reaches zero.
type Actor struct {
	Name        string         `json:"name"`
	Health      int            `json:"health"`
	Alive       bool           `json:"alive"`
	Inventory   []string       `json:"inventory"`
	Stats       map[string]int `json:"stats"`
	Motivations []Motivation   `json:"motivations"`
	Location    string         `json:"location"`
	Backstory   string         `json:"backstory,omitempty"`
	Player      bool           `json:"player,omitempty"`
}

func NewActor(name, location string) *Actor {
	return &Actor{
		Name:      name,
		Health:    MaxHealth,
		Alive:     true,
		Inventory: []string{},
		Stats:     map[string]int{},
		Location:  location,
	}
}

// AdjustHealth adds delta, clamps to [MinHealth, MaxHealth] and marks the
// actor dead when the result is zero.
func (a *Actor) AdjustHealth(delta int) int {
	h := a.Health + delta
	if h < MinHealth {
		h = MinHealth
	}
	if h > MaxHealth {
		h = MaxHealth
	}
	a.Health = h
	if h == MinHealth {
		a.Alive = false
	}
	return h
}

func (a *Actor) AddItem(item string) {
	a.Inventory = append(a.Inventory, item)
}

// ChangeStat adds delta to the named stat, starting from zero if absent.
func (a *Actor) ChangeStat(stat string, delta int) int {
	if a.Stats == nil {
		a.Stats = map[string]int{}
	}
	a.Stats[stat] += delta
	return a.Stats[stat]
}

// SetMotivation inserts or updates a motivation, keeping the list ordered by
// urgency descending. Ties keep insertion order.
func (a *Actor) SetMotivation(name string, urgency int) {
	for i := range a.Motivations {
		if a.Motivations[i].Name == name {
			a.Motivations = append(a.Motivations[:i], a.Motivations[i+1:]...)
			break
		}
	}
	a.Motivations = append(a.Motivations, Motivation{Name: name, Urgency: urgency})
	sort.SliceStable(a.Motivations, func(i, j int) bool {
		return a.Motivations[i].Urgency > a.Motivations[j].Urgency
	})
}

func (a *Actor) TopMotivation() (string, bool) {
	if len(a.Motivations) == 0 {
		return "", false
	}
	return a.Motivations[0].Name, true
}

// Snapshot returns a deep copy safe to hand to readers outside the turn lock.
func (a *Actor) Snapshot() Actor {
	cp := *a
	cp.Inventory = append([]string{}, a.Inventory...)
	cp.Motivations = append([]Motivation{}, a.Motivations...)
	cp.Stats = make(map[string]int, len(a.Stats))
	for k, v := range a.Stats {
		cp.Stats[k] = v
	}
	return cp
}

type Location struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Connections []string `json:"connections"`
	Creatures   []string `json:"creatures"`
	Items       []string `json:"items"`
}

// World owns every location and character. Conditions is free-form state
// consulted by world triggers.
type World struct {
	Locations            map[string]*Location
	Characters           map[string]*Actor
	Conditions           map[string]any
	ResolutionConditions string
	OpposingForce        string
}

func NewWorld() *World {
	return &World{
		Locations:  map[string]*Location{},
		Characters: map[string]*Actor{},
		Conditions: map[string]any{},
	}
}

func (w *World) AddLocation(loc *Location) {
	w.Locations[loc.Name] = loc
}

func (w *World) AddCharacter(a *Actor) {
	w.Characters[a.Name] = a
}

func (w *World) LocationDetails(name string) (*Location, error) {
	loc, ok := w.Locations[name]
	if !ok {
		return nil, &errs.LocationNotFoundError{Location: name}
	}
	return loc, nil
}

// MovePlayer re-checks the target against the current world before moving.
// A missing target leaves the actor where it was.
func (w *World) MovePlayer(a *Actor, target string) error {
	if _, err := w.LocationDetails(target); err != nil {
		return err
	}
	a.Location = target
	return nil
}

// Player returns the character flagged as the player, falling back to the
// first character by name.
func (w *World) Player() (*Actor, bool) {
	names := w.CharacterNames()
	for _, name := range names {
		if w.Characters[name].Player {
			return w.Characters[name], true
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	return w.Characters[names[0]], true
}

func (w *World) CharacterNames() []string {
	names := make([]string, 0, len(w.Characters))
	for name := range w.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *World) LocationNames() []string {
	names := make([]string, 0, len(w.Locations))
	for name := range w.Locations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewDefaultWorld() *World {
	w := NewWorld()
	w.AddLocation(&Location{
		Name:        "forest",
		Description: "A dense forest where the canopy swallows the light",
		Connections: []string{"cave"},
		Creatures:   []string{"wolf"},
		Items:       []string{"healing potion"},
	})
	w.AddLocation(&Location{
		Name:        "cave",
		Description: "A damp cave that hums with distant water",
		Connections: []string{"forest", "village"},
		Creatures:   []string{"goblin"},
		Items:       []string{"rusty sword"},
	})
	w.AddLocation(&Location{
		Name:        "village",
		Description: "A quiet village of thatched roofs and wary faces",
		Connections: []string{"cave"},
		Items:       []string{"ancient map"},
	})

	hero := NewActor("Aria", "forest")
	hero.Player = true
	hero.Backstory = "a wandering cartographer"
	hero.SetMotivation("discovery", 3)
	hero.SetMotivation("safety", 1)
	w.AddCharacter(hero)

	w.ResolutionConditions = "a hidden passage"
	return w
}
