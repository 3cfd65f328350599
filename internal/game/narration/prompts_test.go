package narration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/errs"
)

func TestPromptFillsTemplates(t *testing.T) {
	pm := NewPromptManager()

	tests := []struct {
		scenario string
		vars     map[string]string
		want     string
	}{
		{
			ScenarioDialogue,
			map[string]string{"character_name": "Aria", "dialogue": "Who goes there?"},
			"Character Aria says: Who goes there?",
		},
		{
			ScenarioAction,
			map[string]string{"location": "cave", "character_name": "Aria", "action_description": "lights a torch"},
			"In the cave, Aria lights a torch",
		},
		{
			ScenarioDescription,
			map[string]string{"location": "village", "location_description": "quiet", "character_name": "Aria", "object_description": "an old well"},
			"The village is quiet. Aria observes an old well.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			got, err := pm.Prompt(tt.scenario, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptUnknownScenario(t *testing.T) {
	_, err := NewPromptManager().Prompt("battle", nil)

	var target *errs.UnknownScenarioError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "battle", target.Scenario)
}

func TestPromptMissingVariable(t *testing.T) {
	_, err := NewPromptManager().Prompt(ScenarioDialogue, map[string]string{"character_name": "Aria"})

	assert.ErrorIs(t, err, errs.ErrInputValidation)
	assert.Contains(t, err.Error(), "dialogue")
}

func TestAdaptAppendsFeedback(t *testing.T) {
	pm := NewPromptManager()

	assert.Equal(t, "Go. [Tone: grim] [Urgency: high]", pm.Adapt("Go.", map[string]string{"tone": "grim", "urgency": "high"}))
	assert.Equal(t, "Go. [Urgency: low]", pm.Adapt("Go.", map[string]string{"urgency": "low"}))
	assert.Equal(t, "Go.", pm.Adapt("Go.", nil))
}

func TestTemplateRegistration(t *testing.T) {
	pm := NewPromptManager()

	require.NoError(t, pm.AddTemplate("farewell", "{character_name} waves goodbye."))
	got, err := pm.Prompt("farewell", map[string]string{"character_name": "Aria"})
	require.NoError(t, err)
	assert.Equal(t, "Aria waves goodbye.", got)
	assert.Equal(t, []string{"action", "description", "dialogue", "farewell"}, pm.Scenarios())

	pm.RemoveTemplate("farewell")
	_, err = pm.Prompt("farewell", nil)
	assert.ErrorIs(t, err, errs.ErrUnknownScenario)

	assert.ErrorIs(t, pm.AddTemplate("blank", "  "), errs.ErrConfiguration)
}

func TestNarrationPromptCarriesContext(t *testing.T) {
	p := buildNarrationPrompt(Structure{
		Setup:          "Aria navigates the forest.",
		Events:         []string{"Aria: health -10"},
		ActiveTriggers: []string{TriggerFestival},
	}, "WORLD STATE:\nAria Location: forest\n")

	assert.Contains(t, p, "Aria navigates the forest.")
	assert.Contains(t, p, "- Aria: health -10")
	assert.Contains(t, p, "ACTIVE WORLD CONDITIONS: festival")
	assert.Contains(t, p, "WORLD STATE:")
}
