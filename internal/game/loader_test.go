package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/errs"
)

func TestLoadFromMapping(t *testing.T) {
	data := map[string]any{
		"locations": map[string]any{
			"forest": map[string]any{
				"description": "tall pines",
				"connections": []any{"cave"},
				"creatures":   []any{"wolf"},
				"items":       []any{"healing potion"},
			},
			"cave": map[string]any{},
		},
		"characters": map[string]any{
			"Aria": map[string]any{
				"health":      80,
				"location":    "forest",
				"inventory":   []any{"rope", "rope"},
				"stats":       map[string]any{"strength": 3},
				"motivations": []any{"revenge", "wealth"},
				"player":      true,
			},
		},
		"resolution_conditions": "a truce",
		"conditions":            map[string]any{"weather": "storm"},
	}

	w, err := Load(data)
	require.NoError(t, err)

	forest, err := w.LocationDetails("forest")
	require.NoError(t, err)
	assert.Equal(t, []string{"cave"}, forest.Connections)
	assert.Equal(t, []string{"wolf"}, forest.Creatures)
	assert.Empty(t, w.Locations["cave"].Items)

	aria, ok := w.Player()
	require.True(t, ok)
	assert.Equal(t, 80, aria.Health)
	assert.True(t, aria.Alive)
	assert.Equal(t, []string{"rope", "rope"}, aria.Inventory)
	assert.Equal(t, 3, aria.Stats["strength"])
	top, _ := aria.TopMotivation()
	assert.Equal(t, "revenge", top)

	assert.Equal(t, "a truce", w.ResolutionConditions)
	assert.Equal(t, "storm", w.Conditions["weather"])
}

func TestLoadRejectsMalformedSections(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"locations not a map", map[string]any{"locations": []any{"forest"}}},
		{"connections not strings", map[string]any{"locations": map[string]any{"forest": map[string]any{"connections": []any{1}}}}},
		{"health not a number", map[string]any{"characters": map[string]any{"Aria": map[string]any{"health": "lots"}}}},
		{"motivations wrong shape", map[string]any{"characters": map[string]any{"Aria": map[string]any{"motivations": 4}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.data)
			assert.ErrorIs(t, err, errs.ErrInputValidation)
		})
	}
}

func TestLoadWorldFile(t *testing.T) {
	doc := `
locations:
  forest:
    description: tall pines
    connections: [cave]
    creatures: [wolf]
  cave:
    connections: [forest]
characters:
  Aria:
    location: forest
    health: 0
    motivations:
      discovery: 2
      safety: 7
`
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	w, err := LoadWorldFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cave", "forest"}, w.LocationNames())

	aria := w.Characters["Aria"]
	assert.False(t, aria.Alive)
	top, _ := aria.TopMotivation()
	assert.Equal(t, "safety", top)
}
