package lore

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"storyloop/internal/errs"
)

// Character is the lore entry for one named character.
type Character struct {
	Backstory   string   `yaml:"backstory"`
	Motivations []string `yaml:"motivations"`
}

type document struct {
	Characters map[string]Character `yaml:"characters"`
	WorldRules yaml.Node            `yaml:"world_rules"`
	Advertiser map[string]any       `yaml:"advertiser"`
}

// Facts is read-only lore consulted while structuring a turn. Only the
// attached advertiser input may change after loading.
type Facts struct {
	characters map[string]Character
	rules      []string

	mu         sync.RWMutex
	advertiser *AdvertiserInput
}

func NewFacts(characters map[string]Character, rules []string) *Facts {
	f := &Facts{characters: map[string]Character{}, rules: append([]string{}, rules...)}
	for name, c := range characters {
		f.characters[name] = c
	}
	return f
}

// LoadFile reads lore from a YAML file.
func LoadFile(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lore file: %w", err)
	}
	return Parse(data)
}

// Parse decodes lore YAML. world_rules may be a mapping, kept in document
// order, or a plain list. An advertiser section is validated and attached.
func Parse(data []byte) (*Facts, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lore: %w", err)
	}
	rules, err := orderedRules(&doc.WorldRules)
	if err != nil {
		return nil, err
	}
	facts := NewFacts(doc.Characters, rules)
	if doc.Advertiser != nil {
		ad, err := ProcessAdvertiserInput(doc.Advertiser)
		if err != nil {
			return nil, fmt.Errorf("advertiser: %w", err)
		}
		facts.Attach(&ad)
	}
	return facts, nil
}

func orderedRules(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		rules := make([]string, 0, len(node.Content)/2)
		for i := 1; i < len(node.Content); i += 2 {
			var rule string
			if err := node.Content[i].Decode(&rule); err != nil {
				return nil, errs.Validation("world_rules."+node.Content[i-1].Value, "must be a string")
			}
			rules = append(rules, rule)
		}
		return rules, nil
	case yaml.SequenceNode:
		var rules []string
		if err := node.Decode(&rules); err != nil {
			return nil, errs.Validation("world_rules", "must be a list of strings")
		}
		return rules, nil
	default:
		return nil, errs.Validation("world_rules", "must be a mapping or a list")
	}
}

func (f *Facts) Backstory(name string) (string, bool) {
	c, ok := f.characters[name]
	if !ok || c.Backstory == "" {
		return "", false
	}
	return c.Backstory, true
}

func (f *Facts) Motivations(name string) []string {
	return append([]string{}, f.characters[name].Motivations...)
}

func (f *Facts) WorldRules() []string {
	return append([]string{}, f.rules...)
}

// Attach sets the advertiser input woven into setup lines. A nil input
// clears it.
func (f *Facts) Attach(ad *AdvertiserInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advertiser = ad
}

// Placement returns the advertiser sentence when an input is attached.
func (f *Facts) Placement() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.advertiser == nil {
		return "", false
	}
	return f.advertiser.Sentence(), true
}

// AdvertiserInput is a product placement request.
type AdvertiserInput struct {
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	TargetAudience     string `json:"target_audience"`
}

func (a AdvertiserInput) Sentence() string {
	desc := a.ProductDescription
	if desc == "" {
		desc = "a curious novelty"
	}
	audience := a.TargetAudience
	if audience == "" {
		audience = "every traveller"
	}
	return fmt.Sprintf("A %s (%s) is woven into the scene for %s.", a.ProductName, desc, audience)
}

// ProcessAdvertiserInput validates raw advertiser fields.
func ProcessAdvertiserInput(raw map[string]any) (AdvertiserInput, error) {
	var in AdvertiserInput
	fields := []struct {
		key string
		dst *string
	}{
		{"product_name", &in.ProductName},
		{"product_description", &in.ProductDescription},
		{"target_audience", &in.TargetAudience},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return AdvertiserInput{}, errs.Validation(f.key, fmt.Sprintf("must be a string, got %T", v))
		}
		*f.dst = strings.TrimSpace(s)
	}
	if in.ProductName == "" {
		return AdvertiserInput{}, errs.Validation("product_name", "is required")
	}
	return in, nil
}
