package embeddings

import (
	"context"
	"sync"
)

// stubModel is a Model returning fixed vectors.
type stubModel struct {
	name string
}

func (s stubModel) TextEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func (s stubModel) TextEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (s stubModel) QueryEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{4, 5, 6}, nil
}

func (s stubModel) ModelName() string { return s.name }

// fakeLegacy implements the langchaingo Embedder shape and records calls.
type fakeLegacy struct {
	mu        sync.Mutex
	name      string
	docCalls  [][]string
	queries   []string
	closed    bool
	docResult [][]float32
	err       error
}

func (f *fakeLegacy) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docCalls = append(f.docCalls, texts)
	if f.err != nil {
		return nil, f.err
	}
	if f.docResult != nil {
		return f.docResult, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	return out, nil
}

func (f *fakeLegacy) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{9, 9}, nil
}

// namedLegacy also reports a model name and can be closed.
type namedLegacy struct {
	fakeLegacy
}

func (n *namedLegacy) ModelName() string { return n.name }

func (n *namedLegacy) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}
