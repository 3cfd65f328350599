package narration

import (
	"fmt"
	"strings"

	"storyloop/internal/debug"
	"storyloop/internal/game"
)

const (
	defaultName        = "the wanderer"
	defaultBackstory   = "a mysterious past"
	defaultLocation    = "an unknown place"
	defaultRules       = "the old laws of the land"
	defaultAdversary   = "an unknown adversary"
	defaultMotivation  = "personal gain"
	defaultResolution  = "an unexpected turn"
	defaultDisasterEnd = "shelter"
)

// LoreProvider supplies read-only backstory and world rules.
type LoreProvider interface {
	Backstory(name string) (string, bool)
	Motivations(name string) []string
	WorldRules() []string
}

// PlacementProvider is implemented by lore sources that carry an advertiser
// placement sentence for the setup.
type PlacementProvider interface {
	Placement() (string, bool)
}

// Structure is the skeleton of one narrative turn. Every text field is
// always populated.
type Structure struct {
	Setup          string   `json:"setup"`
	Conflict       string   `json:"conflict"`
	Resolution     string   `json:"resolution"`
	BranchingPaths []string `json:"branching_paths"`
	ActiveTriggers []string `json:"active_triggers"`
	// Events are the lines rendered as bullets: what happened this turn.
	Events []string `json:"events"`
}

// Request carries everything a structuring call reads.
type Request struct {
	Action   string
	Location string
	// Actors lists the characters involved, primary first.
	Actors   []game.Actor
	World    *game.World
	Lore     LoreProvider
	Triggers *TriggerRegistry
	Events   []string
}

type branchKey struct {
	trigger string
	action  string
}

// Structurer builds a Structure from a Request.
type Structurer struct {
	triggerSentences map[string]string
	branches         map[branchKey][]string
	defaultBranches  []string
	debugLogger      *debug.Logger
}

func NewStructurer(debugLogger *debug.Logger) *Structurer {
	return &Structurer{
		triggerSentences: map[string]string{
			TriggerNaturalDisaster: "A violent storm tears across the land, sparing nothing in its path.",
			TriggerFestival:        "Lanterns and music fill the streets as a festival gets under way.",
		},
		branches: map[branchKey][]string{
			{TriggerNaturalDisaster, ""}:  {"seek_shelter", "help_survivors"},
			{TriggerFestival, "explore"}:  {"browse_festival_stalls", "follow_the_parade"},
			{TriggerFestival, ""}:         {"join_the_celebration", "slip_away_from_the_crowd"},
			{"", "explore"}:               {"discover_ancient_ruin", "find_hidden_treasure"},
			{"", "combat"}:                {"defeat_enemy", "retreat_and_regroup"},
		},
		defaultBranches: []string{"continue_journey", "seek_allies"},
		debugLogger:     debugLogger,
	}
}

// SetTriggerSentence sets the setup sentence used when trigger is active.
func (s *Structurer) SetTriggerSentence(trigger, sentence string) {
	s.triggerSentences[trigger] = sentence
}

// SetBranches overrides the branching options for a trigger and action
// category. Either may be empty to act as a wildcard.
func (s *Structurer) SetBranches(trigger, action string, paths []string) {
	s.branches[branchKey{trigger, action}] = append([]string{}, paths...)
}

// Structure evaluates the registered triggers, running their effects per the
// registry's policy, and assembles the narrative skeleton.
func (s *Structurer) Structure(req Request) Structure {
	active := []string{}
	if req.Triggers != nil && req.World != nil {
		active = req.Triggers.Update(req.World)
	}

	category, hint := ParseAction(req.Action)
	name, backstory, motivation := s.primary(req)
	rules := s.rules(req.Lore)
	disaster := contains(active, TriggerNaturalDisaster)

	out := Structure{
		Setup:          s.setup(req, name, backstory, rules, active),
		BranchingPaths: s.branching(active, category),
		ActiveTriggers: active,
		Events:         nonEmpty(req.Events),
	}

	resolution := ""
	opposing := hint
	if req.World != nil {
		resolution = req.World.ResolutionConditions
		if opposing == "" {
			opposing = req.World.OpposingForce
		}
	}
	if opposing == "" {
		opposing = defaultAdversary
	}

	if disaster {
		if resolution == "" {
			resolution = defaultDisasterEnd
		}
		out.Conflict = fmt.Sprintf("Caught in the natural disaster, %s must fight simply to survive, driven by their motivation for %s.", name, motivation)
		out.Resolution = fmt.Sprintf("As the disaster passes, %s survives to find %s, all under the shadow of the world's rules: %s.", name, resolution, rules)
	} else {
		if resolution == "" {
			resolution = defaultResolution
		}
		out.Conflict = fmt.Sprintf("The action taken by %s brings them into conflict with %s, driven by their motivation for %s.", name, opposing, motivation)
		out.Resolution = fmt.Sprintf("The conflict resolves as %s encounters %s, all under the shadow of the world's rules: %s.", name, resolution, rules)
	}

	s.debugLogger.Printf("structured %q: triggers=%v branches=%v", req.Action, active, out.BranchingPaths)
	return out
}

func (s *Structurer) primary(req Request) (name, backstory, motivation string) {
	name, backstory, motivation = defaultName, defaultBackstory, defaultMotivation
	if len(req.Actors) == 0 {
		return
	}
	actor := req.Actors[0]
	if actor.Name != "" {
		name = actor.Name
	}
	if actor.Backstory != "" {
		backstory = actor.Backstory
	}
	if top, ok := actor.TopMotivation(); ok {
		motivation = top
	}
	if req.Lore != nil {
		if b, ok := req.Lore.Backstory(actor.Name); ok && b != "" {
			backstory = b
		}
		if m := req.Lore.Motivations(actor.Name); len(m) > 0 && m[0] != "" {
			motivation = m[0]
		}
	}
	return
}

func (s *Structurer) rules(lore LoreProvider) string {
	if lore == nil {
		return defaultRules
	}
	rules := nonEmpty(lore.WorldRules())
	if len(rules) == 0 {
		return defaultRules
	}
	return strings.Join(rules, ", ")
}

func (s *Structurer) setup(req Request, name, backstory, rules string, active []string) string {
	location := req.Location
	if location == "" {
		location = defaultLocation
	}

	var b strings.Builder
	fmt.Fprintf(&b, "At the beginning of this scenario, %s, known for %s, navigates %s where %s set the stage.", name, backstory, location, rules)
	for _, trig := range active {
		if sentence, ok := s.triggerSentences[trig]; ok {
			b.WriteString(" " + sentence)
		}
	}
	if pp, ok := req.Lore.(PlacementProvider); ok {
		if placement, ok := pp.Placement(); ok {
			b.WriteString(" " + placement)
		}
	}
	return b.String()
}

// branching looks up options by active trigger and action category, falling
// back to the trigger alone, the action alone, then the default set.
func (s *Structurer) branching(active []string, category string) []string {
	for _, trig := range active {
		if paths, ok := s.branches[branchKey{trig, category}]; ok {
			return append([]string{}, paths...)
		}
		if paths, ok := s.branches[branchKey{trig, ""}]; ok {
			return append([]string{}, paths...)
		}
	}
	if paths, ok := s.branches[branchKey{"", category}]; ok {
		return append([]string{}, paths...)
	}
	return append([]string{}, s.defaultBranches...)
}

// ParseAction splits an action label of the form "category:hint". The
// category is lower cased; the hint names an opposing force.
func ParseAction(action string) (category, hint string) {
	action = strings.TrimSpace(action)
	if i := strings.Index(action, ":"); i >= 0 {
		return strings.ToLower(strings.TrimSpace(action[:i])), strings.TrimSpace(action[i+1:])
	}
	return strings.ToLower(action), ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
