package embeddings

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is the embedding model used when none is configured.
const DefaultOpenAIModel = "text-embedding-ada-002"

// OpenAIAPIKeyEnv is consulted when OpenAIConfig.APIKey is empty.
const OpenAIAPIKeyEnv = "OPENAI_API_KEY"

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIEmbedding implements Model using the OpenAI embeddings API.
type OpenAIEmbedding struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	metrics *Metrics
}

// NewOpenAIEmbedding creates the OpenAI provider. It fails with
// ErrProviderUnavailable when no API key is configured or in the environment.
// Construction does not call the API.
func NewOpenAIEmbedding(cfg OpenAIConfig, metrics *Metrics) (*OpenAIEmbedding, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(OpenAIAPIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no OpenAI API key (set %s)", ErrProviderUnavailable, OpenAIAPIKeyEnv)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(opts...)

	return &OpenAIEmbedding{
		client:  &cli,
		model:   openai.EmbeddingModel(model),
		metrics: metrics,
	}, nil
}

// TextEmbedding embeds a single document.
func (e *OpenAIEmbedding) TextEmbedding(ctx context.Context, text string) ([]float32, error) {
	return e.single(ctx, "text_embedding", text)
}

// TextEmbeddings embeds several documents in one request.
func (e *OpenAIEmbedding) TextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	return e.embed(ctx, "text_embeddings", texts)
}

// QueryEmbedding embeds a query.
func (e *OpenAIEmbedding) QueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return e.single(ctx, "query_embedding", query)
}

// ModelName returns the OpenAI model id.
func (e *OpenAIEmbedding) ModelName() string {
	return string(e.model)
}

func (e *OpenAIEmbedding) single(ctx context.Context, operation, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vectors, err := e.embed(ctx, operation, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedding) embed(ctx context.Context, operation string, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordGeneration(ctx, e.ModelName(), operation, time.Since(start), err)
	}()

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Data))
	}

	// Results carry an index; do not rely on response order.
	vectors = make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbeddingFailed, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
