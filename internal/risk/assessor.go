package risk

import (
	"fmt"
	"sort"

	"storyloop/internal/errs"
)

const DefaultBaseRisk = 0.1

// Signals holds named interaction signals. Numeric signals take float64 or
// int values, flags take bool.
type Signals map[string]any

// Assessment is a bounded risk score with the deltas that produced it.
type Assessment struct {
	Score     float64            `json:"score"`
	Base      float64            `json:"base"`
	Breakdown map[string]float64 `json:"breakdown"`
	// Threshold is the escalation threshold the score was compared against.
	Threshold float64 `json:"threshold"`
}

// Assess scores signals against registry starting from base. Signals with no
// registered modifier are ignored. Only the final score is clamped to [0,1].
func Assess(signals Signals, base float64, registry *Registry) (Assessment, error) {
	out := Assessment{Base: base, Breakdown: map[string]float64{}}
	score := base

	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m, ok := registry.lookup(name)
		if !ok {
			continue
		}
		delta, err := m.apply(name, signals[name])
		if err != nil {
			return Assessment{}, err
		}
		out.Breakdown[name] = delta
		score += delta
	}

	out.Score = clamp(score)
	return out, nil
}

func (m modifier) apply(name string, value any) (float64, error) {
	if m.flag != nil {
		b, ok := value.(bool)
		if !ok {
			return 0, errs.Validation(name, fmt.Sprintf("expected a boolean, got %T", value))
		}
		return m.flag(b), nil
	}
	f, ok := asFloat(value)
	if !ok {
		return 0, errs.Validation(name, fmt.Sprintf("expected a number, got %T", value))
	}
	return m.numeric(f), nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Assessor binds a base risk and registry for repeated use.
type Assessor struct {
	base     float64
	registry *Registry
}

func NewAssessor(base float64, registry *Registry) (*Assessor, error) {
	if base < 0 || base > 1 {
		return nil, errs.Configuration("risk", "base risk %.2f outside [0,1]", base)
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Assessor{base: base, registry: registry}, nil
}

func (a *Assessor) Registry() *Registry { return a.registry }

func (a *Assessor) Assess(signals Signals) (Assessment, error) {
	return Assess(signals, a.base, a.registry)
}
