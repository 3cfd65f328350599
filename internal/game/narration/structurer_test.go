package narration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/game"
)

type stubLore struct {
	backstory   map[string]string
	motivations map[string][]string
	rules       []string
	placement   string
}

func (l stubLore) Backstory(name string) (string, bool) {
	b, ok := l.backstory[name]
	return b, ok
}

func (l stubLore) Motivations(name string) []string { return l.motivations[name] }

func (l stubLore) WorldRules() []string { return l.rules }

func (l stubLore) Placement() (string, bool) { return l.placement, l.placement != "" }

func TestStructureFillsEveryFieldFromMinimalInput(t *testing.T) {
	s := NewStructurer(nil).Structure(Request{})

	assert.Contains(t, s.Setup, defaultName)
	assert.Contains(t, s.Setup, defaultBackstory)
	assert.Contains(t, s.Setup, defaultLocation)
	assert.Contains(t, s.Setup, defaultRules)
	assert.Contains(t, s.Conflict, defaultAdversary)
	assert.Contains(t, s.Conflict, defaultMotivation)
	assert.Contains(t, s.Resolution, defaultResolution)
	assert.Equal(t, []string{"continue_journey", "seek_allies"}, s.BranchingPaths)
	assert.NotNil(t, s.ActiveTriggers)
	assert.NotNil(t, s.Events)
}

func TestStructureUsesActorAndWorld(t *testing.T) {
	w := game.NewDefaultWorld()
	hero := w.Characters["Aria"]

	s := NewStructurer(nil).Structure(Request{
		Action:   "explore:the goblin king",
		Location: "forest",
		Actors:   []game.Actor{hero.Snapshot()},
		World:    w,
		Events:   []string{"Aria: health -10", " "},
	})

	assert.Equal(t,
		"At the beginning of this scenario, Aria, known for a wandering cartographer, navigates forest where the old laws of the land set the stage.",
		s.Setup)
	assert.Equal(t,
		"The action taken by Aria brings them into conflict with the goblin king, driven by their motivation for discovery.",
		s.Conflict)
	assert.Equal(t,
		"The conflict resolves as Aria encounters a hidden passage, all under the shadow of the world's rules: the old laws of the land.",
		s.Resolution)
	assert.Equal(t, []string{"discover_ancient_ruin", "find_hidden_treasure"}, s.BranchingPaths)
	assert.Equal(t, []string{"Aria: health -10"}, s.Events)
}

func TestOpposingForceFallsBackToWorld(t *testing.T) {
	w := game.NewWorld()
	w.OpposingForce = "the tide"

	s := NewStructurer(nil).Structure(Request{Action: "combat", World: w})

	assert.Contains(t, s.Conflict, "conflict with the tide")
	assert.Equal(t, []string{"defeat_enemy", "retreat_and_regroup"}, s.BranchingPaths)
}

func TestLoreOverridesActor(t *testing.T) {
	hero := game.NewActor("Aria", "forest")
	hero.Backstory = "plain"
	hero.SetMotivation("safety", 1)

	lore := stubLore{
		backstory:   map[string]string{"Aria": "the last heir of the northern keep"},
		motivations: map[string][]string{"Aria": {"revenge", "gold"}},
		rules:       []string{"magic is rare", "", "iron burns spirits"},
		placement:   "A caravan sells Sunrise Tea by the road.",
	}

	s := NewStructurer(nil).Structure(Request{
		Location: "forest",
		Actors:   []game.Actor{*hero},
		Lore:     lore,
	})

	assert.Contains(t, s.Setup, "the last heir of the northern keep")
	assert.Contains(t, s.Setup, "where magic is rare, iron burns spirits set the stage.")
	assert.Contains(t, s.Setup, "A caravan sells Sunrise Tea by the road.")
	assert.Contains(t, s.Conflict, "motivation for revenge")
	assert.Contains(t, s.Resolution, "magic is rare, iron burns spirits")
}

func TestDisasterOverridesConflictAndResolution(t *testing.T) {
	triggers, err := DefaultTriggers(EffectRerun, nil)
	require.NoError(t, err)
	w := stormyWorld()
	hero := game.NewActor("Aria", "forest")

	s := NewStructurer(nil).Structure(Request{
		Action:   "explore",
		Location: "forest",
		Actors:   []game.Actor{*hero},
		World:    w,
		Triggers: triggers,
	})

	assert.Equal(t, []string{TriggerNaturalDisaster}, s.ActiveTriggers)
	assert.Contains(t, s.Setup, "A violent storm tears across the land")
	assert.Equal(t,
		"Caught in the natural disaster, Aria must fight simply to survive, driven by their motivation for personal gain.",
		s.Conflict)
	assert.Equal(t,
		"As the disaster passes, Aria survives to find shelter, all under the shadow of the world's rules: the old laws of the land.",
		s.Resolution)
	assert.Equal(t, []string{"seek_shelter", "help_survivors"}, s.BranchingPaths)
	assert.Equal(t, 1, w.Conditions["storm_damage"])
}

func TestBranchingLookup(t *testing.T) {
	st := NewStructurer(nil)
	st.SetBranches("", "trade", []string{"haggle", "walk_away"})

	tests := []struct {
		name   string
		active []string
		action string
		want   []string
	}{
		{"festival explore", []string{TriggerFestival}, "explore", []string{"browse_festival_stalls", "follow_the_parade"}},
		{"festival other", []string{TriggerFestival}, "combat", []string{"join_the_celebration", "slip_away_from_the_crowd"}},
		{"disaster wins by order", []string{TriggerNaturalDisaster, TriggerFestival}, "explore", []string{"seek_shelter", "help_survivors"}},
		{"custom action", nil, "trade", []string{"haggle", "walk_away"}},
		{"unknown", []string{"eclipse"}, "sing", []string{"continue_journey", "seek_allies"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, st.branching(tt.active, tt.action))
		})
	}
}

func TestSetTriggerSentence(t *testing.T) {
	st := NewStructurer(nil)
	st.SetTriggerSentence(TriggerFestival, "Bells ring out.")
	triggers, err := DefaultTriggers(EffectRerun, nil)
	require.NoError(t, err)
	w := game.NewWorld()
	w.Conditions["festival"] = true

	s := st.Structure(Request{World: w, Triggers: triggers})

	assert.Contains(t, s.Setup, "Bells ring out.")
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in       string
		category string
		hint     string
	}{
		{"explore", "explore", ""},
		{" Combat : the goblin king ", "combat", "the goblin king"},
		{"talk:", "talk", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		category, hint := ParseAction(tt.in)
		assert.Equal(t, tt.category, category, tt.in)
		assert.Equal(t, tt.hint, hint, tt.in)
	}
}
