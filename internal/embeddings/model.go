package embeddings

import (
	"context"
)

// Model is the canonical embedding capability set.
type Model interface {
	// TextEmbedding embeds a single document text.
	TextEmbedding(ctx context.Context, text string) ([]float32, error)

	// TextEmbeddings embeds several document texts, one vector per text.
	TextEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// QueryEmbedding embeds a search query. Some models embed queries
	// differently from documents.
	QueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// ModelName identifies the underlying model.
	ModelName() string
}

// AsyncResult carries the outcome of an asynchronous embedding call.
type AsyncResult struct {
	Embedding []float32
	Err       error
}

// TextEmbeddingAsync runs m.TextEmbedding in a goroutine. The returned
// channel receives exactly one result and is then closed.
func TextEmbeddingAsync(ctx context.Context, m Model, text string) <-chan AsyncResult {
	return runAsync(func() ([]float32, error) { return m.TextEmbedding(ctx, text) })
}

// QueryEmbeddingAsync runs m.QueryEmbedding in a goroutine. The returned
// channel receives exactly one result and is then closed.
func QueryEmbeddingAsync(ctx context.Context, m Model, query string) <-chan AsyncResult {
	return runAsync(func() ([]float32, error) { return m.QueryEmbedding(ctx, query) })
}

func runAsync(fn func() ([]float32, error)) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		vec, err := fn()
		ch <- AsyncResult{Embedding: vec, Err: err}
	}()
	return ch
}
