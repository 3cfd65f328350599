package events

// Category is the kind of event the generator produced.
type Category string

const (
	CategoryEncounterCreature Category = "encounter_creature"
	CategoryFindItem          Category = "find_item"
	CategoryMoveLocation      Category = "move_location"
	CategoryTriggerEvent      Category = "trigger_event"
	CategoryChangeStat        Category = "change_stat"
	CategoryNothing           Category = "nothing"
)

func Categories() []Category {
	return []Category{
		CategoryEncounterCreature,
		CategoryFindItem,
		CategoryMoveLocation,
		CategoryTriggerEvent,
		CategoryChangeStat,
		CategoryNothing,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Event is produced per action and consumed immediately.
type Event struct {
	ID           string        `json:"id"`
	Category     Category      `json:"category"`
	Description  string        `json:"description"`
	Consequences []Consequence `json:"consequences"`
	// Subject is the creature met or item found, empty otherwise.
	Subject string `json:"subject,omitempty"`
}
