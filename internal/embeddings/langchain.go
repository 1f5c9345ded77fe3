package embeddings

import (
	"context"
	"fmt"
	"io"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
)

// LangchainEmbedding adapts a langchaingo embeddings.Embedder to Model.
//
// TextEmbedding and TextEmbeddings forward to EmbedDocuments; QueryEmbedding
// forwards to EmbedQuery.
type LangchainEmbedding struct {
	embedder  lcembeddings.Embedder
	modelName string
}

// namedEmbedder is implemented by embedders that know their model name.
type namedEmbedder interface {
	ModelName() string
}

const defaultLangchainModelName = "langchain"

// NewLangchainEmbedding wraps embedder. modelName may be empty, in which case
// it is taken from the embedder when available.
func NewLangchainEmbedding(embedder lcembeddings.Embedder, modelName string) *LangchainEmbedding {
	if modelName == "" {
		if named, ok := embedder.(namedEmbedder); ok {
			modelName = named.ModelName()
		}
	}
	if modelName == "" {
		modelName = defaultLangchainModelName
	}
	return &LangchainEmbedding{
		embedder:  embedder,
		modelName: modelName,
	}
}

// TextEmbedding embeds a single document.
func (l *LangchainEmbedding) TextEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := l.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", ErrEmbeddingFailed, len(vectors))
	}
	return vectors[0], nil
}

// TextEmbeddings embeds several documents.
func (l *LangchainEmbedding) TextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedder.EmbedDocuments(ctx, texts)
}

// QueryEmbedding embeds a query.
func (l *LangchainEmbedding) QueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return l.embedder.EmbedQuery(ctx, query)
}

// ModelName returns the wrapped model's name.
func (l *LangchainEmbedding) ModelName() string {
	return l.modelName
}

// Unwrap returns the wrapped langchaingo embedder.
func (l *LangchainEmbedding) Unwrap() lcembeddings.Embedder {
	return l.embedder
}

// Close releases the wrapped embedder if it holds resources.
func (l *LangchainEmbedding) Close() error {
	if c, ok := l.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
