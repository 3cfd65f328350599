package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/config"
	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/logging"
	"storyloop/internal/mcp"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		CompletionDB:        filepath.Join(t.TempDir(), "audit.db"),
		BaseRisk:            0.1,
		EscalationThreshold: 0.7,
		TriggerPolicy:       "rerun",
		GenerationTimeout:   time.Second,
		GenerationMaxTokens: 120,
	}
}

func openTestStore(t *testing.T, cfg config.Config) *logging.Store {
	t.Helper()
	store, err := logging.Open(cfg.CompletionDB)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLocalBackendRunsTurnsAndAudits(t *testing.T) {
	cfg := testConfig(t)
	store := openTestStore(t, cfg)
	eng, err := buildEngine(cfg, debug.Nop(), store)
	require.NoError(t, err)

	backend := &localBackend{engine: eng, sessionID: "s-1"}
	snap, err := backend.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forest", snap.Location)
	assert.Equal(t, 100, snap.Health)
	assert.ElementsMatch(t, []string{"cave", "forest", "village"}, snap.Locations)

	turn, err := backend.Narrate(context.Background(), "explore")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.Text)

	turns, err := store.RecentTurns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "s-1", turns[0].SessionID)
	assert.Equal(t, "explore", turns[0].Action)
}

func TestBuildEngineLoadsWorldAndLore(t *testing.T) {
	dir := t.TempDir()
	worldPath := filepath.Join(dir, "world.yaml")
	lorePath := filepath.Join(dir, "lore.yaml")
	require.NoError(t, os.WriteFile(worldPath, []byte(`
locations:
  harbor:
    description: A salt-stained harbor
characters:
  Rook:
    location: harbor
    player: true
`), 0o644))
	require.NoError(t, os.WriteFile(lorePath, []byte(`
characters:
  Rook:
    backstory: a retired smuggler
world_rules:
  - The tide obeys no one
`), 0o644))

	cfg := testConfig(t)
	cfg.WorldFile = worldPath
	cfg.LoreFile = lorePath
	eng, err := buildEngine(cfg, nil, openTestStore(t, cfg))
	require.NoError(t, err)

	player, ok := eng.Player()
	require.True(t, ok)
	assert.Equal(t, "Rook", player.Name)
	assert.Equal(t, "harbor", player.Location)
}

func TestBuildEngineRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"trigger policy", func(c *config.Config) { c.TriggerPolicy = "sometimes" }},
		{"base risk", func(c *config.Config) { c.BaseRisk = 2 }},
		{"threshold", func(c *config.Config) { c.EscalationThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := buildEngine(cfg, nil, openTestStore(t, cfg))
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}

	cfg := testConfig(t)
	cfg.WorldFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := buildEngine(cfg, nil, openTestStore(t, cfg))
	assert.Error(t, err)
}

func TestRemoteBackendOverInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := testConfig(t)
	eng, err := buildEngine(cfg, nil, openTestStore(t, cfg))
	require.NoError(t, err)

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	session, err := mcp.NewServer(eng, "test").Connect(ctx, serverTransport)
	require.NoError(t, err)
	defer session.Close()

	client := mcp.NewClient("test", nil)
	require.NoError(t, client.Connect(ctx, clientTransport))
	defer client.Close()

	backend := &remoteBackend{client: client, sessionID: "remote-1"}
	snap, err := backend.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "forest", snap.Location)

	turn, err := backend.Narrate(ctx, "rest")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.Text)
	assert.NotEmpty(t, turn.Location)
}

func TestLoreAdvertiserReachesRenderedSetup(t *testing.T) {
	lorePath := filepath.Join(t.TempDir(), "lore.yaml")
	require.NoError(t, os.WriteFile(lorePath, []byte(`
world_rules:
  - The tide obeys no one
advertiser:
  product_name: Lantern Oil
  product_description: a smokeless lamp fuel
  target_audience: night fishers
`), 0o644))

	cfg := testConfig(t)
	cfg.LoreFile = lorePath
	eng, err := buildEngine(cfg, nil, openTestStore(t, cfg))
	require.NoError(t, err)

	backend := &localBackend{engine: eng, sessionID: "ad-1"}
	turn, err := backend.Narrate(context.Background(), "rest")
	require.NoError(t, err)
	assert.False(t, turn.Escalated)
	assert.Contains(t, turn.Text, "A Lantern Oil (a smokeless lamp fuel) is woven into the scene for night fishers.")
}
