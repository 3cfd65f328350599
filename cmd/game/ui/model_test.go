package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	actions []string
	turn    Turn
	err     error
	snap    Snapshot
}

func (f *fakeBackend) Narrate(ctx context.Context, action string) (Turn, error) {
	f.actions = append(f.actions, action)
	return f.turn, f.err
}

func (f *fakeBackend) Snapshot(ctx context.Context) (Snapshot, error) {
	return f.snap, nil
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func newTestModel(b Backend) Model {
	return NewModel(b, nil, "0123456789abcdef", Snapshot{Location: "forest", Health: 100, Alive: true})
}

func TestEnterRunsTurn(t *testing.T) {
	backend := &fakeBackend{turn: Turn{Text: "The forest stirs.\n- Aria health is now 90", Health: 90, Alive: true, Location: "forest"}}
	m := newTestModel(backend)

	m = typeText(t, m, "explore")
	assert.Equal(t, "explore", m.input)

	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	assert.Contains(t, m.messages, "> explore")
	assert.Contains(t, m.messages, loadingMarker)

	msg := narrateCmd(backend, "explore", nil)()
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.False(t, m.loading)
	assert.NotContains(t, m.messages, loadingMarker)
	assert.Contains(t, m.messages, "The forest stirs.")
	assert.Contains(t, m.messages, "- Aria health is now 90")
	assert.Equal(t, 90, m.status.Health)
	assert.Equal(t, []string{"explore"}, backend.actions)
}

func TestEscalatedTurnIsFlagged(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	m.loading = true
	next, _ := m.Update(narrativeMsg{turn: Turn{Text: "Supervisor mara has been alerted to the situation.", Escalated: true, Health: 100, Alive: true}})
	m = next.(Model)
	assert.Contains(t, m.messages, "[ESCALATED] Supervisor mara has been alerted to the situation.")
}

func TestNarrationErrorIsShown(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	m.loading = true
	m.messages = append(m.messages, loadingMarker)
	next, _ := m.Update(narrativeMsg{err: errors.New("location \"moon\" not found")})
	m = next.(Model)
	assert.Contains(t, m.messages, "Error: location \"moon\" not found")
	assert.NotContains(t, m.messages, loadingMarker)
}

func TestEmptyInputAndBusyStateIgnored(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)

	m.loading = true
	m = typeText(t, m, "x")
	assert.Empty(t, m.input)
}

func TestFallenPlayerCannotAct(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(backend)
	m.status.Alive = false
	m = typeText(t, m, "explore")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, backend.actions)
}

func TestWorldCommand(t *testing.T) {
	backend := &fakeBackend{snap: Snapshot{
		Location:   "cave",
		Health:     80,
		Alive:      true,
		Locations:  []string{"cave", "forest"},
		Conditions: map[string]string{"weather": "storm"},
	}}
	m := newTestModel(backend)
	m = typeText(t, m, "/world")
	m, cmd := press(t, m, tea.KeyEnter)
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.messages, "[WORLD] Location: cave")
	assert.Contains(t, m.messages, "[WORLD] weather = storm")
	assert.Equal(t, "cave", m.status.Location)
}

func TestBackspaceAndSpace(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	m = typeText(t, m, "go")
	m, _ = press(t, m, tea.KeySpace)
	m = typeText(t, m, "northx")
	m, _ = press(t, m, tea.KeyBackspace)
	assert.Equal(t, "go north", m.input)
}

func TestWrapAndIndent(t *testing.T) {
	assert.Equal(t, " short", wrapAndIndent("short", 20, " "))
	assert.Equal(t, " one two\n three", wrapAndIndent("one two three", 9, " "))
}

func TestStatusLine(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	assert.Equal(t, " forest | health 100 (alive) | session 01234567", m.statusLine())
}
