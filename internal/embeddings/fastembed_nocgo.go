//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("binary built without CGO support")

// FastEmbedBackend is unavailable without CGO.
type FastEmbedBackend struct{}

// NewFastEmbedBackend always fails with *DependencyMissingError.
func NewFastEmbedBackend(_ LocalConfig) (*FastEmbedBackend, error) {
	return nil, &DependencyMissingError{
		Dependency:  "FastEmbed",
		Remediation: "Rebuild with CGO_ENABLED=1, or configure a remote provider",
		Err:         errNoCGO,
	}
}

// EmbedDocuments always fails.
func (b *FastEmbedBackend) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errNoCGO
}

// EmbedQuery always fails.
func (b *FastEmbedBackend) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoCGO
}

// ModelName returns "".
func (b *FastEmbedBackend) ModelName() string { return "" }

// Dimension returns 0.
func (b *FastEmbedBackend) Dimension() int { return 0 }

// Close is a no-op.
func (b *FastEmbedBackend) Close() error { return nil }
