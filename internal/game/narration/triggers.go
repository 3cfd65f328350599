package narration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/game"
)

const (
	TriggerNaturalDisaster = "natural_disaster"
	TriggerFestival        = "festival"
)

// EffectPolicy decides when an active trigger's effect runs.
type EffectPolicy string

const (
	// EffectRerun runs the effect on every evaluation while active.
	EffectRerun EffectPolicy = "rerun"
	// EffectOncePerState runs the effect once per distinct world fingerprint.
	EffectOncePerState EffectPolicy = "once"
)

func (p EffectPolicy) Valid() bool {
	return p == EffectRerun || p == EffectOncePerState
}

type Condition func(w *game.World) bool

type Effect func(w *game.World)

type trigger struct {
	name        string
	condition   Condition
	effect      Effect
	active      bool
	fingerprint string
}

// TriggerRegistry holds named world triggers. It is passed to the structurer
// explicitly; there is no package level registry.
type TriggerRegistry struct {
	mu          sync.Mutex
	policy      EffectPolicy
	order       []string
	triggers    map[string]*trigger
	debugLogger *debug.Logger
}

func NewTriggerRegistry(policy EffectPolicy, debugLogger *debug.Logger) (*TriggerRegistry, error) {
	if policy == "" {
		policy = EffectRerun
	}
	if !policy.Valid() {
		return nil, errs.Configuration("triggers", "unknown effect policy %q", policy)
	}
	return &TriggerRegistry{
		policy:      policy,
		triggers:    map[string]*trigger{},
		debugLogger: debugLogger,
	}, nil
}

// DefaultTriggers returns a registry with the natural disaster and festival
// triggers registered.
func DefaultTriggers(policy EffectPolicy, debugLogger *debug.Logger) (*TriggerRegistry, error) {
	r, err := NewTriggerRegistry(policy, debugLogger)
	if err != nil {
		return nil, err
	}
	if err := r.Register(TriggerNaturalDisaster, stormRaging, stormDamage); err != nil {
		return nil, err
	}
	if err := r.Register(TriggerFestival, festivalUnderway, raiseMorale); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *TriggerRegistry) Policy() EffectPolicy { return r.policy }

// Register adds or replaces a trigger. Both functions are required.
func (r *TriggerRegistry) Register(name string, condition Condition, effect Effect) error {
	if name == "" {
		return errs.Configuration("triggers", "trigger name is empty")
	}
	if condition == nil {
		return errs.Configuration("triggers", "trigger %q has no condition", name)
	}
	if effect == nil {
		return errs.Configuration("triggers", "trigger %q has no effect", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.triggers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.triggers[name] = &trigger{name: name, condition: condition, effect: effect}
	return nil
}

func (r *TriggerRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.triggers[name]; !exists {
		return
	}
	delete(r.triggers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Update evaluates every condition in registration order, runs effects per
// the policy and returns the names of the active triggers.
func (r *TriggerRegistry) Update(w *game.World) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := Fingerprint(w)
	active := []string{}
	for _, name := range r.order {
		t := r.triggers[name]
		if !r.evaluate(t, w) {
			t.active = false
			t.fingerprint = ""
			continue
		}
		t.active = true
		active = append(active, name)

		if r.policy == EffectOncePerState && t.fingerprint == start {
			continue
		}
		r.runEffect(t, w)
	}

	end := Fingerprint(w)
	for _, name := range active {
		r.triggers[name].fingerprint = end
	}
	return active
}

func (r *TriggerRegistry) IsActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[name]
	return ok && t.active
}

// Active lists the triggers found active by the last Update, in
// registration order.
func (r *TriggerRegistry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, name := range r.order {
		if r.triggers[name].active {
			out = append(out, name)
		}
	}
	return out
}

// TriggerEffects runs an active trigger's effect on demand, regardless of
// policy. It reports whether the effect ran.
func (r *TriggerRegistry) TriggerEffects(name string, w *game.World) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[name]
	if !ok || !t.active {
		return false
	}
	r.runEffect(t, w)
	t.fingerprint = Fingerprint(w)
	return true
}

func (r *TriggerRegistry) evaluate(t *trigger, w *game.World) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.debugLogger.Printf("trigger %s condition panicked: %v", t.name, rec)
			ok = false
		}
	}()
	return t.condition(w)
}

func (r *TriggerRegistry) runEffect(t *trigger, w *game.World) {
	defer func() {
		if rec := recover(); rec != nil {
			r.debugLogger.Printf("trigger %s effect panicked: %v", t.name, rec)
		}
	}()
	t.effect(w)
}

// Fingerprint hashes the parts of the world that triggers read and write.
func Fingerprint(w *game.World) string {
	payload := struct {
		Conditions map[string]any `json:"conditions"`
		Resolution string         `json:"resolution"`
		Opposing   string         `json:"opposing"`
	}{w.Conditions, w.ResolutionConditions, w.OpposingForce}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func stormRaging(w *game.World) bool {
	if weather, _ := w.Conditions["weather"].(string); weather == "storm" {
		return true
	}
	disaster, _ := w.Conditions["disaster"].(bool)
	return disaster
}

// stormDamage accumulates one point of storm damage per application.
func stormDamage(w *game.World) {
	if w.Conditions == nil {
		w.Conditions = map[string]any{}
	}
	n := 0
	switch v := w.Conditions["storm_damage"].(type) {
	case int:
		n = v
	case float64:
		n = int(v)
	}
	w.Conditions["storm_damage"] = n + 1
}

func festivalUnderway(w *game.World) bool {
	festival, _ := w.Conditions["festival"].(bool)
	return festival
}

func raiseMorale(w *game.World) {
	if w.Conditions == nil {
		w.Conditions = map[string]any{}
	}
	w.Conditions["morale"] = "high"
}
