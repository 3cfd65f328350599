// Package errs holds the error taxonomy shared by the narrative pipeline.
// Validation and configuration errors reach the caller. Location and
// generation errors are recovered where they happen.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInputValidation   = errors.New("input validation")
	ErrLocationNotFound  = errors.New("location not found")
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrConfiguration     = errors.New("configuration")
	ErrGenerationService = errors.New("generation service")
)

// InputValidationError reports an empty or malformed caller input.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputValidationError) Is(target error) bool { return target == ErrInputValidation }

// LocationNotFoundError is returned when a location lookup misses.
type LocationNotFoundError struct {
	Location string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location %q not found", e.Location)
}

func (e *LocationNotFoundError) Is(target error) bool { return target == ErrLocationNotFound }

// UnknownScenarioError is returned for prompt scenarios with no template.
type UnknownScenarioError struct {
	Scenario string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown prompt scenario %q", e.Scenario)
}

func (e *UnknownScenarioError) Is(target error) bool { return target == ErrUnknownScenario }

// ConfigurationError marks an operator mistake: a nil handler or modifier,
// an unknown escalation kind, or an out of range setting.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s misconfigured: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// GenerationServiceError wraps a failed or timed out text generation call.
type GenerationServiceError struct {
	Attempts int
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("text generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

func (e *GenerationServiceError) Is(target error) bool { return target == ErrGenerationService }

func Validation(field, reason string) error {
	return &InputValidationError{Field: field, Reason: reason}
}

func Configuration(component, format string, args ...any) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}
