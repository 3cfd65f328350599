package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", Validation("action", "must not be empty"), ErrInputValidation},
		{"location", &LocationNotFoundError{Location: "moon"}, ErrLocationNotFound},
		{"scenario", &UnknownScenarioError{Scenario: "haiku"}, ErrUnknownScenario},
		{"configuration", Configuration("escalation", "unknown kind %q", "pager"), ErrConfiguration},
		{"generation", &GenerationServiceError{Attempts: 2, Err: context.DeadlineExceeded}, ErrGenerationService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("turn failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			for _, other := range []error{ErrInputValidation, ErrLocationNotFound, ErrUnknownScenario, ErrConfiguration, ErrGenerationService} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, wrapped, other)
				}
			}
		})
	}
}

func TestGenerationServiceErrorUnwraps(t *testing.T) {
	err := &GenerationServiceError{Attempts: 2, Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "2 attempt(s)")
}

func TestConfigurationMessage(t *testing.T) {
	err := Configuration("risk", "modifier %q is nil", "emotionalTone")
	assert.Equal(t, `risk misconfigured: modifier "emotionalTone" is nil`, err.Error())

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "risk", cfgErr.Component)
}
