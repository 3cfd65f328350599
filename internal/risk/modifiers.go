package risk

import (
	"sort"
	"sync"

	"storyloop/internal/errs"
)

const (
	SignalEmotionalTone        = "emotionalTone"
	SignalInteractionFrequency = "interactionFrequency"
	SignalSensitiveInformation = "sensitiveInformationPresent"
	SignalInteractionDuration  = "interactionDurationMinutes"
)

// NumericModifier maps a numeric signal to a score delta.
type NumericModifier func(v float64) float64

// FlagModifier maps a boolean signal to a score delta.
type FlagModifier func(present bool) float64

type modifier struct {
	numeric NumericModifier
	flag    FlagModifier
}

// Registry maps signal names to modifiers. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	mods map[string]modifier
}

func NewRegistry() *Registry {
	return &Registry{mods: map[string]modifier{}}
}

// DefaultRegistry returns a registry holding the four standard modifiers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mods[SignalEmotionalTone] = modifier{numeric: EmotionalTone}
	r.mods[SignalInteractionFrequency] = modifier{numeric: InteractionFrequency}
	r.mods[SignalSensitiveInformation] = modifier{flag: SensitiveInformation}
	r.mods[SignalInteractionDuration] = modifier{numeric: InteractionDuration}
	return r
}

// Register adds or replaces the modifier for name. fn must be a non-nil
// NumericModifier or FlagModifier (or the equivalent plain func type);
// anything else is a configuration error.
func (r *Registry) Register(name string, fn any) error {
	if name == "" {
		return errs.Configuration("risk", "modifier name is empty")
	}
	var m modifier
	switch f := fn.(type) {
	case NumericModifier:
		m.numeric = f
	case func(float64) float64:
		m.numeric = f
	case FlagModifier:
		m.flag = f
	case func(bool) float64:
		m.flag = f
	default:
		return errs.Configuration("risk", "modifier %q has unsupported type %T", name, fn)
	}
	if m.numeric == nil && m.flag == nil {
		return errs.Configuration("risk", "modifier %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods[name] = m
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mods, name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mods))
	for name := range r.mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (modifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mods[name]
	return m, ok
}

func EmotionalTone(v float64) float64 {
	switch {
	case v < 0:
		return 0.2
	case v > 0:
		return -0.1
	}
	return 0
}

func InteractionFrequency(v float64) float64 {
	switch {
	case v > 5:
		return 0.1
	case v < 1:
		return -0.05
	}
	return 0
}

func SensitiveInformation(present bool) float64 {
	if present {
		return 0.3
	}
	return 0
}

func InteractionDuration(minutes float64) float64 {
	switch {
	case minutes > 30:
		return 0.2
	case minutes < 5:
		return -0.1
	}
	return 0
}
