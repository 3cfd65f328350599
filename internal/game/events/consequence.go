package events

import "fmt"

// ConsequenceKind tags each Consequence variant.
type ConsequenceKind string

const (
	KindHealthChange ConsequenceKind = "health_change"
	KindItemAdd      ConsequenceKind = "item_add"
	KindMoveLocation ConsequenceKind = "move_location"
	KindTriggerEvent ConsequenceKind = "trigger_event"
	KindChangeStat   ConsequenceKind = "change_stat"
)

// Consequence is a state change attached to an event. The set of variants is
// closed: only the types in this file implement it.
type Consequence interface {
	Kind() ConsequenceKind
	String() string
	consequence()
}

type HealthChange struct {
	Amount int `json:"amount"`
}

type ItemAdd struct {
	Item string `json:"item"`
}

type MoveLocation struct {
	Target string `json:"target"`
}

// TriggerEvent asks for a nested event of the given category.
type TriggerEvent struct {
	Nested Category `json:"nested"`
}

type ChangeStat struct {
	Stat   string `json:"stat"`
	Amount int    `json:"amount"`
}

func (HealthChange) Kind() ConsequenceKind { return KindHealthChange }
func (ItemAdd) Kind() ConsequenceKind      { return KindItemAdd }
func (MoveLocation) Kind() ConsequenceKind { return KindMoveLocation }
func (TriggerEvent) Kind() ConsequenceKind { return KindTriggerEvent }
func (ChangeStat) Kind() ConsequenceKind   { return KindChangeStat }

func (c HealthChange) String() string { return fmt.Sprintf("health %+d", c.Amount) }
func (c ItemAdd) String() string      { return "gain " + c.Item }
func (c MoveLocation) String() string { return "move to " + c.Target }
func (c TriggerEvent) String() string { return "trigger " + string(c.Nested) }
func (c ChangeStat) String() string   { return fmt.Sprintf("%s %+d", c.Stat, c.Amount) }

func (HealthChange) consequence() {}
func (ItemAdd) consequence()      {}
func (MoveLocation) consequence() {}
func (TriggerEvent) consequence() {}
func (ChangeStat) consequence()   {}

// Kinds lists every consequence variant.
func Kinds() []ConsequenceKind {
	return []ConsequenceKind{KindHealthChange, KindItemAdd, KindMoveLocation, KindTriggerEvent, KindChangeStat}
}
