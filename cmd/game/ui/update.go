package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const loadingMarker = "LOADING_ANIMATION"

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case narrativeMsg:
		return m.handleNarrative(msg)
	case snapshotMsg:
		return m.handleSnapshot(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case animationTickMsg:
		return m.handleAnimation(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	return m, nil
}

func (m Model) handleAnimation(msg animationTickMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		m.animationFrame++
		return m, animationTimer()
	}
	return m, nil
}

func (m Model) handleNarrative(msg narrativeMsg) (tea.Model, tea.Cmd) {
	if !m.loading {
		return m, nil
	}
	m.loading = false
	m.dropLoadingMarker()

	if msg.err != nil {
		m.messages = append(m.messages, "Error: "+msg.err.Error(), "")
		return m, nil
	}

	turn := msg.turn
	if turn.Escalated {
		m.messages = append(m.messages, "[ESCALATED] "+turn.Text)
	} else {
		m.messages = append(m.messages, strings.Split(turn.Text, "\n")...)
	}
	m.messages = append(m.messages, "")

	m.status.Health = turn.Health
	m.status.Alive = turn.Alive
	if turn.Location != "" {
		m.status.Location = turn.Location
	}
	if !turn.Alive {
		m.messages = append(m.messages, "You have fallen. Press ctrl+c to leave.", "")
	}
	return m, nil
}

func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.messages = append(m.messages, "Error: "+msg.err.Error(), "")
		return m, nil
	}
	snap := msg.snapshot
	m.status = snap
	m.messages = append(m.messages,
		fmt.Sprintf("[WORLD] Location: %s", snap.Location),
		fmt.Sprintf("[WORLD] Health: %d", snap.Health),
		fmt.Sprintf("[WORLD] Inventory: %v", snap.Inventory),
		fmt.Sprintf("[WORLD] Locations: %v", snap.Locations),
	)
	if len(snap.Conditions) > 0 {
		keys := make([]string, 0, len(snap.Conditions))
		for k := range snap.Conditions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.messages = append(m.messages, fmt.Sprintf("[WORLD] %s = %s", k, snap.Conditions[k]))
		}
	}
	if len(snap.ActiveTriggers) > 0 {
		m.messages = append(m.messages, fmt.Sprintf("[WORLD] Active: %v", snap.ActiveTriggers))
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		userInput := strings.TrimSpace(m.input)
		if userInput == "" || m.loading {
			return m, nil
		}
		m.input = ""

		if strings.HasPrefix(userInput, "/") {
			return m.handleCommand(userInput)
		}
		if !m.status.Alive {
			m.messages = append(m.messages, "Nothing answers. Your story has ended.", "")
			return m, nil
		}

		m.messages = append(m.messages, "> "+userInput, "")
		m.loading = true
		m.animationFrame = 0
		m.messages = append(m.messages, loadingMarker)
		return m, tea.Batch(narrateCmd(m.backend, userInput, m.debug), animationTimer())

	case tea.KeyBackspace:
		if len(m.input) > 0 && !m.loading {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeySpace:
		if !m.loading {
			m.input += " "
		}
		return m, nil

	case tea.KeyRunes:
		if !m.loading {
			m.input += string(msg.Runes)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleCommand(userInput string) (tea.Model, tea.Cmd) {
	m.messages = append(m.messages, "> "+userInput)
	switch strings.ToLower(userInput) {
	case "/world", "/worldstate":
		return m, snapshotCmd(m.backend)
	case "/help":
		m.messages = append(m.messages,
			"[HELP] Type an action such as 'explore', 'search' or 'rest'.",
			"[HELP] /world - show the world state",
			"[HELP] /help - show this help",
			"[HELP] esc or ctrl+c - quit",
		)
	default:
		m.messages = append(m.messages, "[HELP] Unknown command. Try /help")
	}
	m.messages = append(m.messages, "")
	return m, nil
}

func (m *Model) dropLoadingMarker() {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i] == loadingMarker {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return
		}
	}
}
