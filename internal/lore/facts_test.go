package lore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/errs"
)

const sampleLore = `
characters:
  Aria:
    backstory: the last heir of the northern keep
    motivations: [revenge, gold]
  Brom:
    motivations: [ale]
world_rules:
  magic: magic is rare
  iron: iron burns spirits
  after: the dead do not rest
`

func TestParseKeepsRuleOrder(t *testing.T) {
	f, err := Parse([]byte(sampleLore))
	require.NoError(t, err)

	assert.Equal(t, []string{"magic is rare", "iron burns spirits", "the dead do not rest"}, f.WorldRules())

	b, ok := f.Backstory("Aria")
	assert.True(t, ok)
	assert.Equal(t, "the last heir of the northern keep", b)
	assert.Equal(t, []string{"revenge", "gold"}, f.Motivations("Aria"))

	_, ok = f.Backstory("Brom")
	assert.False(t, ok, "empty backstory is absent")
	_, ok = f.Backstory("Nobody")
	assert.False(t, ok)
	assert.Empty(t, f.Motivations("Nobody"))
}

func TestParseRuleList(t *testing.T) {
	f, err := Parse([]byte("world_rules: [one, two]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, f.WorldRules())
}

func TestParseRejectsBadRules(t *testing.T) {
	_, err := Parse([]byte("world_rules: just one\n"))
	assert.ErrorIs(t, err, errs.ErrInputValidation)

	_, err = Parse([]byte("world_rules:\n  nested: {a: b}\n"))
	assert.ErrorIs(t, err, errs.ErrInputValidation)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLore), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.WorldRules(), 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWorldRulesReturnsCopy(t *testing.T) {
	f := NewFacts(nil, []string{"a"})
	rules := f.WorldRules()
	rules[0] = "changed"
	assert.Equal(t, []string{"a"}, f.WorldRules())
}

func TestProcessAdvertiserInput(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    AdvertiserInput
		wantErr bool
	}{
		{
			name: "complete",
			raw:  map[string]any{"product_name": "Sunrise Tea", "product_description": "a bright herbal brew", "target_audience": "weary travellers"},
			want: AdvertiserInput{ProductName: "Sunrise Tea", ProductDescription: "a bright herbal brew", TargetAudience: "weary travellers"},
		},
		{
			name: "name only",
			raw:  map[string]any{"product_name": " Lantern Oil "},
			want: AdvertiserInput{ProductName: "Lantern Oil"},
		},
		{name: "missing name", raw: map[string]any{"target_audience": "all"}, wantErr: true},
		{name: "wrong type", raw: map[string]any{"product_name": 7}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProcessAdvertiserInput(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrInputValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlacement(t *testing.T) {
	f := NewFacts(nil, nil)
	_, ok := f.Placement()
	assert.False(t, ok)

	f.Attach(&AdvertiserInput{ProductName: "Sunrise Tea", ProductDescription: "a bright herbal brew", TargetAudience: "weary travellers"})
	s, ok := f.Placement()
	assert.True(t, ok)
	assert.Equal(t, "A Sunrise Tea (a bright herbal brew) is woven into the scene for weary travellers.", s)

	f.Attach(nil)
	_, ok = f.Placement()
	assert.False(t, ok)
}

func TestParseAttachesAdvertiser(t *testing.T) {
	f, err := Parse([]byte(`
world_rules: [the tide obeys no one]
advertiser:
  product_name: Lantern Oil
  product_description: a smokeless lamp fuel
  target_audience: night fishers
`))
	require.NoError(t, err)

	s, ok := f.Placement()
	require.True(t, ok)
	assert.Equal(t, "A Lantern Oil (a smokeless lamp fuel) is woven into the scene for night fishers.", s)

	_, err = Parse([]byte("advertiser:\n  target_audience: everyone\n"))
	assert.ErrorIs(t, err, errs.ErrInputValidation)
}
