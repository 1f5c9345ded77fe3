package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TEIConfig holds configuration for a Text Embeddings Inference server.
type TEIConfig struct {
	// BaseURL is the base URL of the TEI server (e.g. http://localhost:8080)
	BaseURL string

	// Model is reported by ModelName; TEI serves a single model per instance.
	Model string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c TEIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: TEI base URL required", ErrInvalidConfig)
	}
	return nil
}

// TEIEmbedding implements Model against a TEI /embed endpoint.
// It already satisfies Model, so resolving it returns it unchanged.
type TEIEmbedding struct {
	config  TEIConfig
	client  *http.Client
	metrics *Metrics
}

// NewTEIEmbedding creates a TEI-backed model.
func NewTEIEmbedding(config TEIConfig, metrics *Metrics) (*TEIEmbedding, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &TEIEmbedding{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		metrics: metrics,
	}, nil
}

// teiRequest is the request body for TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// TextEmbedding embeds a single document.
func (s *TEIEmbedding) TextEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.single(ctx, "text_embedding", text)
}

// TextEmbeddings embeds several documents in one request.
func (s *TEIEmbedding) TextEmbeddings(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordGeneration(ctx, s.ModelName(), "text_embeddings", time.Since(start), err)
	}()

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err = s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(vectors))
	}
	return vectors, nil
}

// QueryEmbedding embeds a query. TEI does not distinguish queries from documents.
func (s *TEIEmbedding) QueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.single(ctx, "query_embedding", query)
}

// ModelName returns the configured model name.
func (s *TEIEmbedding) ModelName() string {
	if s.config.Model == "" {
		return "tei"
	}
	return s.config.Model
}

func (s *TEIEmbedding) single(ctx context.Context, operation, text string) (vector []float32, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordGeneration(ctx, s.ModelName(), operation, time.Since(start), err)
	}()

	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

// embed posts inputs (a string or []string) to /embed.
func (s *TEIEmbedding) embed(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return vectors, nil
}
