package narration

import (
	"context"
	"errors"
	"strings"
	"time"

	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/logging"
)

const (
	DefaultTimeout   = 8 * time.Second
	DefaultMaxTokens = 120
	// generationAttempts is the first call plus one retry.
	generationAttempts = 2
)

// TextGenerator is the outbound text generation port. Implementations are
// slow and unreliable.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// CompletionRecorder persists generated text for later review.
type CompletionRecorder interface {
	LogCompletion(ctx context.Context, entry logging.Completion) error
}

type ComposerOption func(*Composer)

func WithGenerator(g TextGenerator) ComposerOption {
	return func(c *Composer) { c.generator = g }
}

func WithTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxTokens(n int) ComposerOption {
	return func(c *Composer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithRecorder(r CompletionRecorder) ComposerOption {
	return func(c *Composer) { c.recorder = r }
}

// Composer renders structures into text. Any call to the generator is
// bounded by a timeout, retried once, then replaced by templated text.
type Composer struct {
	generator   TextGenerator
	recorder    CompletionRecorder
	timeout     time.Duration
	maxTokens   int
	debugLogger *debug.Logger
}

func NewComposer(debugLogger *debug.Logger, opts ...ComposerOption) *Composer {
	c := &Composer{
		timeout:     DefaultTimeout,
		maxTokens:   DefaultMaxTokens,
		debugLogger: debugLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composer) HasGenerator() bool { return c.generator != nil }

// Render lays out setup, one bullet per event line, the quoted dialogue when
// there is any, and the resolution.
func Render(s Structure, dialogue string) string {
	lines := []string{s.Setup}
	for _, ev := range s.Events {
		lines = append(lines, "- "+ev)
	}
	if d := strings.TrimSpace(dialogue); d != "" {
		lines = append(lines, `"`+d+`"`)
	}
	lines = append(lines, s.Resolution)
	return strings.Join(lines, "\n")
}

// Compose renders the structure. With a generator configured the setup line
// is generated from worldContext, keeping the templated setup as fallback.
func (c *Composer) Compose(ctx context.Context, s Structure, dialogue, worldContext string) string {
	if c.generator != nil {
		s.Setup = c.Generate(ctx, "narration", buildNarrationPrompt(s, worldContext), s.Setup)
	}
	return Render(s, dialogue)
}

// Generate calls the generator for prompt and returns fallback if every
// attempt fails. The failure is logged and never returned.
func (c *Composer) Generate(ctx context.Context, operation, prompt, fallback string) string {
	if c.generator == nil {
		return fallback
	}
	start := time.Now()
	text, err := c.generateWithRetry(ctx, prompt)
	meta := logging.CompletionMetadata{
		Operation:    operation,
		MaxTokens:    c.maxTokens,
		ResponseTime: time.Since(start),
	}
	if err != nil {
		msg := err.Error()
		meta.Error = &msg
		c.debugLogger.Printf("%s generation fell back to template: %v", operation, err)
		c.record(ctx, prompt, fallback, meta)
		return fallback
	}
	c.record(ctx, prompt, text, meta)
	return text
}

func (c *Composer) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < generationAttempts; attempt++ {
		attempts++
		text, err := c.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.debugLogger.Printf("generation attempt %d failed: %v", attempt+1, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", &errs.GenerationServiceError{Attempts: attempts, Err: lastErr}
}

type generation struct {
	text string
	err  error
}

// generateOnce enforces the timeout even against generators that ignore
// their context.
func (c *Composer) generateOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		text, err := c.generator.Generate(callCtx, prompt, c.maxTokens)
		done <- generation{text: text, err: err}
	}()

	select {
	case <-callCtx.Done():
		return "", callCtx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return "", errors.New("empty completion")
		}
		return text, nil
	}
}

func (c *Composer) record(ctx context.Context, prompt, response string, meta logging.CompletionMetadata) {
	if c.recorder == nil {
		return
	}
	entry := logging.Completion{Prompt: prompt, Response: response, Metadata: meta}
	if err := c.recorder.LogCompletion(ctx, entry); err != nil {
		c.debugLogger.Printf("failed to log completion: %v", err)
	}
}
