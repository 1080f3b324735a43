package translator

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText           = errors.New("no text provided")
	ErrUnsupportedLanguage = errors.New("Unsupported language")
	ErrNotInitialized      = errors.New("backend not initialized")

	errEmptyOutput = errors.New("provider returned no translation")
	errReleased    = errors.New("backend released while loading")
)

// InitError is a failure to load a backend's model or credentials. It is
// remembered, so later calls fail fast with the same error.
type InitError struct {
	Backend string
	Model   string
	Cause   error
}

func (e *InitError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("failed to load %s model %s: %v", e.Backend, e.Model, e.Cause)
	}
	return fmt.Sprintf("failed to initialize %s: %v", e.Backend, e.Cause)
}

func (e *InitError) Unwrap() error {
	return e.Cause
}

// UpstreamError wraps a provider failure during an actual translation call.
type UpstreamError struct {
	Backend string
	Cause   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// unsupported is the error of the hard-failure adapters. Callers see the
// message verbatim: "Unsupported language: X".
func unsupported(lang string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}
