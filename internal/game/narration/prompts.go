package narration

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"storyloop/internal/errs"
)

const (
	ScenarioDialogue    = "dialogue"
	ScenarioAction      = "action"
	ScenarioDescription = "description"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// PromptManager fills named prompt templates. Placeholders are written as
// {name}.
type PromptManager struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewPromptManager() *PromptManager {
	return &PromptManager{templates: map[string]string{
		ScenarioDialogue:    "Character {character_name} says: {dialogue}",
		ScenarioAction:      "In the {location}, {character_name} {action_description}",
		ScenarioDescription: "The {location} is {location_description}. {character_name} observes {object_description}.",
	}}
}

// Prompt fills the template for scenario. An unknown scenario is an
// UnknownScenarioError; a placeholder with no value is a validation error.
func (p *PromptManager) Prompt(scenario string, vars map[string]string) (string, error) {
	p.mu.RLock()
	tmpl, ok := p.templates[scenario]
	p.mu.RUnlock()
	if !ok {
		return "", &errs.UnknownScenarioError{Scenario: scenario}
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", errs.Validation(scenario+" prompt", "missing "+strings.Join(missing, ", "))
	}
	return out, nil
}

// Adapt appends tone and urgency hints from feedback.
func (p *PromptManager) Adapt(prompt string, feedback map[string]string) string {
	if tone, ok := feedback["tone"]; ok && tone != "" {
		prompt += fmt.Sprintf(" [Tone: %s]", tone)
	}
	if urgency, ok := feedback["urgency"]; ok && urgency != "" {
		prompt += fmt.Sprintf(" [Urgency: %s]", urgency)
	}
	return prompt
}

func (p *PromptManager) AddTemplate(name, template string) error {
	if name == "" || strings.TrimSpace(template) == "" {
		return errs.Configuration("prompts", "template %q is empty", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates[name] = template
	return nil
}

func (p *PromptManager) RemoveTemplate(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.templates, name)
}

func (p *PromptManager) Scenarios() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.templates))
	for name := range p.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildNarrationPrompt asks for a single sentence that replaces the templated
// setup line.
func buildNarrationPrompt(s Structure, worldContext string) string {
	var eventContext string
	if len(s.Events) > 0 {
		eventContext = "\n\nEVENTS THAT JUST OCCURRED:\n- " + strings.Join(s.Events, "\n- ")
	}
	var triggerContext string
	if len(s.ActiveTriggers) > 0 {
		triggerContext = "\n\nACTIVE WORLD CONDITIONS: " + strings.Join(s.ActiveTriggers, ", ")
	}

	return fmt.Sprintf(`You are the narrator for a text adventure game.

Rewrite the scene setup below as ONE vivid sentence in present tense.

Rules:
- Keep every name, place and world rule from the setup
- Do not invent events beyond those listed
- Do not add dialogue
- Reply with the sentence only

SETUP:
%s%s%s

%s`, s.Setup, eventContext, triggerContext, worldContext)
}
