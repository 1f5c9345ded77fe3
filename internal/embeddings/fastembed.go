//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedBackend computes embeddings locally with ONNX models via
// fastembed-go. It implements the langchaingo Embedder shape and is exposed
// as a Model through LangchainEmbedding.
type FastEmbedBackend struct {
	model     *fastembed.FlagEmbedding
	modelName string
	dimension int
	mu        sync.RWMutex
}

var errBackendClosed = fmt.Errorf("%w: backend closed", ErrEmbeddingFailed)

// fastembedModels maps accepted model names to fastembed model constants.
var fastembedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"fast-bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"fast-bge-small-en":                      fastembed.BGESmallEN,
	"fast-bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"fast-bge-base-en":                       fastembed.BGEBaseEN,
	"fast-bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
}

const passageBatchSize = 256

// NewFastEmbedBackend loads cfg.ModelName from cfg.CacheDir, downloading the
// model files on first use. It fails with *DependencyMissingError when the
// ONNX runtime cannot be found in ONNX_PATH or cfg.LibDir.
func NewFastEmbedBackend(cfg LocalConfig) (*FastEmbedBackend, error) {
	name := cfg.ModelName
	if name == "" {
		name = DefaultLocalModel
	}

	model, ok := fastembedModels[name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported local model %q", ErrInvalidConfig, name)
	}
	dimension, _ := KnownDimension(name)

	libPath := GetONNXLibraryPath(cfg.LibDir)
	if libPath == "" {
		return nil, &DependencyMissingError{
			Dependency:  "ONNX runtime",
			Remediation: onnxRemediation,
		}
	}
	if err := setONNXPathEnv(libPath); err != nil {
		return nil, fmt.Errorf("setting %s: %w", ONNXPathEnv, err)
	}

	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}
	showProgress := false

	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing FastEmbed: %w", err)
	}

	return &FastEmbedBackend{
		model:     flagEmbed,
		modelName: name,
		dimension: dimension,
	}, nil
}

// EmbedDocuments embeds texts with the "passage: " prefix BGE models expect.
func (b *FastEmbedBackend) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.model == nil {
		return nil, errBackendClosed
	}

	vectors, err := b.model.PassageEmbed(texts, passageBatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery embeds text with the "query: " prefix.
func (b *FastEmbedBackend) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.model == nil {
		return nil, errBackendClosed
	}

	vector, err := b.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// ModelName returns the requested model name.
func (b *FastEmbedBackend) ModelName() string {
	return b.modelName
}

// Dimension returns the embedding dimension of the loaded model.
func (b *FastEmbedBackend) Dimension() int {
	return b.dimension
}

// Close releases the ONNX session. Later embed calls fail with ErrEmbeddingFailed.
func (b *FastEmbedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.model == nil {
		return nil
	}
	err := b.model.Destroy()
	b.model = nil
	return err
}
