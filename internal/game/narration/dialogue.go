package narration

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

var defaultLines = map[string]string{
	"healing potion": "You find a healing potion. It might be useful later.",
	"rusty sword":    "You discover a rusty sword. It doesn't look very sharp.",
	"wolf":           "A menacing wolf growls at you.",
	"goblin":         "A mischievous goblin eyes you suspiciously.",
}

// DialogueManager produces a line of dialogue for the subject of an event.
// Canned lines cover the default world; with a generator configured on the
// composer the line is generated from the dialogue prompt instead.
type DialogueManager struct {
	mu       sync.RWMutex
	lines    map[string]string
	prompts  *PromptManager
	composer *Composer
}

func NewDialogueManager(prompts *PromptManager, composer *Composer) *DialogueManager {
	lines := make(map[string]string, len(defaultLines))
	for k, v := range defaultLines {
		lines[k] = v
	}
	return &DialogueManager{lines: lines, prompts: prompts, composer: composer}
}

// SetLine registers the canned line for subject.
func (d *DialogueManager) SetLine(subject, line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines[strings.ToLower(subject)] = line
}

// Line returns the canned line for subject, or "" when there is none.
func (d *DialogueManager) Line(subject string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lines[strings.ToLower(strings.TrimSpace(subject))]
}

// Respond returns dialogue for speaker reacting to subject. An empty string
// means the turn carries no dialogue.
func (d *DialogueManager) Respond(ctx context.Context, speaker, subject string) string {
	canned := d.Line(subject)
	if subject == "" || d.composer == nil || !d.composer.HasGenerator() || d.prompts == nil {
		return canned
	}

	prompt, err := d.prompts.Prompt(ScenarioDialogue, map[string]string{
		"character_name": speaker,
		"dialogue":       fmt.Sprintf("(reacting to the %s, one short line in character)", subject),
	})
	if err != nil {
		d.composer.debugLogger.Printf("dialogue prompt failed: %v", err)
		return canned
	}
	return d.composer.Generate(ctx, "dialogue", prompt, canned)
}
