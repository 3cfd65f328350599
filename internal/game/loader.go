package game

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"storyloop/internal/errs"
)

// LoadWorldFile decodes a YAML world definition and builds a World from it.
func LoadWorldFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing world file: %w", err)
	}
	w, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("loading world file %s: %w", path, err)
	}
	return w, nil
}

// Load builds a World from a pre-parsed mapping with "locations" and
// "characters" sections.
func Load(data map[string]any) (*World, error) {
	w := NewWorld()

	locations, err := section(data, "locations")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(locations) {
		attrs, err := asMap(locations[name], "locations."+name)
		if err != nil {
			return nil, err
		}
		loc := &Location{Name: name}
		if loc.Description, err = optString(attrs, "description", "locations."+name); err != nil {
			return nil, err
		}
		if loc.Connections, err = optStrings(attrs, "connections", "locations."+name); err != nil {
			return nil, err
		}
		if loc.Creatures, err = optStrings(attrs, "creatures", "locations."+name); err != nil {
			return nil, err
		}
		if loc.Items, err = optStrings(attrs, "items", "locations."+name); err != nil {
			return nil, err
		}
		w.AddLocation(loc)
	}

	characters, err := section(data, "characters")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(characters) {
		a, err := loadCharacter(name, characters[name])
		if err != nil {
			return nil, err
		}
		w.AddCharacter(a)
	}

	if w.ResolutionConditions, err = optString(data, "resolution_conditions", "world"); err != nil {
		return nil, err
	}
	if w.OpposingForce, err = optString(data, "opposing_force", "world"); err != nil {
		return nil, err
	}
	if raw, ok := data["conditions"]; ok && raw != nil {
		conds, err := asMap(raw, "conditions")
		if err != nil {
			return nil, err
		}
		w.Conditions = conds
	}
	return w, nil
}

func loadCharacter(name string, raw any) (*Actor, error) {
	path := "characters." + name
	attrs, err := asMap(raw, path)
	if err != nil {
		return nil, err
	}
	a := NewActor(name, "")
	if a.Location, err = optString(attrs, "location", path); err != nil {
		return nil, err
	}
	if a.Backstory, err = optString(attrs, "backstory", path); err != nil {
		return nil, err
	}
	if v, ok := attrs["health"]; ok {
		h, ok := asInt(v)
		if !ok {
			return nil, errs.Validation(path+".health", "expected an integer")
		}
		a.Health = MaxHealth
		a.AdjustHealth(h - MaxHealth)
	}
	if v, ok := attrs["player"]; ok {
		p, ok := v.(bool)
		if !ok {
			return nil, errs.Validation(path+".player", "expected a boolean")
		}
		a.Player = p
	}
	if a.Inventory, err = optStrings(attrs, "inventory", path); err != nil {
		return nil, err
	}
	if v, ok := attrs["stats"]; ok && v != nil {
		stats, err := asMap(v, path+".stats")
		if err != nil {
			return nil, err
		}
		for stat, raw := range stats {
			n, ok := asInt(raw)
			if !ok {
				return nil, errs.Validation(path+".stats."+stat, "expected an integer")
			}
			a.Stats[stat] = n
		}
	}
	if err := loadMotivations(a, attrs["motivations"], path+".motivations"); err != nil {
		return nil, err
	}
	return a, nil
}

// loadMotivations accepts either a list, ordered most urgent first, or a
// mapping of name to urgency.
func loadMotivations(a *Actor, raw any, path string) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		for i, m := range v {
			name, ok := m.(string)
			if !ok {
				return errs.Validation(path, "expected a list of strings")
			}
			a.SetMotivation(name, len(v)-i)
		}
	case map[string]any:
		for _, name := range sortedKeys(v) {
			urgency, ok := asInt(v[name])
			if !ok {
				return errs.Validation(path+"."+name, "expected an integer urgency")
			}
			a.SetMotivation(name, urgency)
		}
	default:
		return errs.Validation(path, "expected a list or mapping")
	}
	return nil
}

func section(data map[string]any, key string) (map[string]any, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	return asMap(raw, key)
}

func asMap(raw any, path string) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	}
	return nil, errs.Validation(path, "expected a mapping")
}

func optString(attrs map[string]any, key, path string) (string, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errs.Validation(path+"."+key, "expected a string")
	}
	return s, nil
}

func optStrings(attrs map[string]any, key, path string) ([]string, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return []string{}, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errs.Validation(path+"."+key, "expected a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errs.Validation(path+"."+key, "expected a list of strings")
}

func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
