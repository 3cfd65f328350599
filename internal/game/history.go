package game

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Entry struct {
	Actor string
	Text  string
	At    time.Time
}

// History is a bounded log of recent turns. It also remembers when each
// actor first acted so interaction duration survives trimming.
type History struct {
	mu        sync.Mutex
	exchanges []Entry
	firstSeen map[string]time.Time
	maxSize   int
}

func NewHistory(maxSize int) *History {
	return &History{
		exchanges: make([]Entry, 0, maxSize),
		firstSeen: map[string]time.Time{},
		maxSize:   maxSize,
	}
}

func (h *History) AddPlayerAction(actor, input string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.firstSeen[actor]; !ok {
		h.firstSeen[actor] = at
	}
	h.add(Entry{Actor: actor, Text: "Player: " + input, At: at})
}

func (h *History) AddNarratorResponse(actor, response string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(Entry{Actor: actor, Text: "Narrator: " + response, At: at})
}

func (h *History) AddError(actor string, err error, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(Entry{Actor: actor, Text: "Error: " + err.Error(), At: at})
}

func (h *History) add(entry Entry) {
	h.exchanges = append(h.exchanges, entry)

	if len(h.exchanges) > h.maxSize {
		h.exchanges = h.exchanges[len(h.exchanges)-h.maxSize:]
	}
}

func (h *History) GetEntries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]string, len(h.exchanges))
	for i, e := range h.exchanges {
		result[i] = e.Text
	}
	return result
}

// ActionsSince counts the actor's player actions at or after since.
func (h *History) ActionsSince(actor string, since time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.exchanges {
		if e.Actor == actor && strings.HasPrefix(e.Text, "Player: ") && !e.At.Before(since) {
			n++
		}
	}
	return n
}

func (h *History) FirstSeen(actor string) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.firstSeen[actor]
	return t, ok
}

// BuildWorldContext formats the actor's surroundings and recent history for
// a text generation prompt.
func BuildWorldContext(world *World, actor Actor, location string, gameHistory []string) string {
	var context strings.Builder

	context.WriteString("WORLD STATE:\n")
	if loc, ok := world.Locations[location]; ok {
		context.WriteString(fmt.Sprintf("%s Location: %s\n", actor.Name, loc.Name))
		if loc.Description != "" {
			context.WriteString(loc.Description + "\n")
		}
		context.WriteString(fmt.Sprintf("Creatures Here: %v\n", loc.Creatures))
		context.WriteString(fmt.Sprintf("Items Here: %v\n", loc.Items))
		context.WriteString(fmt.Sprintf("Connections: %v\n", loc.Connections))
	} else {
		context.WriteString(fmt.Sprintf("%s Location: %s (uncharted)\n", actor.Name, location))
	}
	context.WriteString(fmt.Sprintf("Health: %d\n", actor.Health))
	context.WriteString(fmt.Sprintf("Inventory: %v\n", actor.Inventory))

	if len(gameHistory) > 0 {
		context.WriteString("RECENT TURNS:\n")
		for _, exchange := range gameHistory {
			context.WriteString(exchange + "\n")
		}
		context.WriteString("\n")
	}

	return context.String()
}
