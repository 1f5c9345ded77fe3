package embeddings

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates an unusable spec or provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDependencyMissing indicates a backend's native dependency is not installed.
	ErrDependencyMissing = errors.New("dependency missing")

	// ErrProviderUnavailable indicates the default remote provider could not
	// be constructed (for example, no API key).
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)

// DependencyMissingError reports a missing backend dependency together with
// instructions for installing it.
type DependencyMissingError struct {
	Dependency  string // What is missing (e.g., "ONNX runtime")
	Remediation string // How to install it
	Err         error  // Underlying cause, may be nil
}

// Error implements the error interface
func (e *DependencyMissingError) Error() string {
	msg := fmt.Sprintf("%s is not available", e.Dependency)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Remediation != "" {
		msg += ". " + e.Remediation
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DependencyMissingError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDependencyMissing) match.
func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}
