package domain

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxPathLength      = 4096
	maxSpecifierLength = 1024
	maxEventLength     = 64
)

// InputValidator validates values arriving on the dev inspection API
type InputValidator struct {
	eventPattern *regexp.Regexp
}

// NewInputValidator creates a new input validator with default settings
func NewInputValidator() *InputValidator {
	return &InputValidator{
		eventPattern: regexp.MustCompile(`^[a-z][a-z0-9_]*$`),
	}
}

// NewValidator creates a new input validator instance
func NewValidator() Validator {
	return NewInputValidator()
}

// ValidatePath checks a filesystem path submitted for classification
func (v *InputValidator) ValidatePath(path string) error {
	if err := v.validateText("path", path, maxPathLength); err != nil {
		return err
	}
	if !filepath.IsAbs(path) {
		return NewAppError(ErrValidationFailed, "Path must be absolute", 422, map[string]any{
			"field": "path",
			"value": path,
		})
	}
	return nil
}

// ValidateSpecifier checks an import specifier submitted for resolution
func (v *InputValidator) ValidateSpecifier(specifier string) error {
	if err := v.validateText("specifier", specifier, maxSpecifierLength); err != nil {
		return err
	}
	if strings.TrimSpace(specifier) != specifier {
		return NewAppError(ErrValidationFailed, "Specifier must not have surrounding whitespace", 422, map[string]any{"field": "specifier"})
	}
	return nil
}

// ValidateEvent checks a build-phase tag before it is broadcast
func (v *InputValidator) ValidateEvent(event string) error {
	if err := v.validateText("type", event, maxEventLength); err != nil {
		return err
	}
	if !v.eventPattern.MatchString(event) {
		return NewAppError(ErrValidationFailed, "Event type must be lower snake case", 422, map[string]any{
			"field": "type",
			"value": event,
		})
	}
	return nil
}

func (v *InputValidator) validateText(field, value string, maxLen int) error {
	if value == "" {
		return NewAppError(ErrValidationFailed, field+" is required", 422, map[string]any{"field": field})
	}
	if len(value) > maxLen {
		return NewAppError(ErrValidationFailed, field+" too long", 422, map[string]any{
			"field":      field,
			"length":     len(value),
			"max_length": maxLen,
		})
	}
	if !utf8.ValidString(value) {
		return NewAppError(ErrValidationFailed, field+" must be valid UTF-8", 422, map[string]any{"field": field})
	}
	if strings.ContainsRune(value, 0) {
		return NewAppError(ErrValidationFailed, field+" must not contain NUL bytes", 422, map[string]any{"field": field})
	}
	return nil
}
