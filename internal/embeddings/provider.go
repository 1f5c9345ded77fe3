package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/embedkit/internal/cachedir"
	"github.com/fyrsmithlabs/embedkit/internal/config"
	"github.com/fyrsmithlabs/embedkit/internal/logging"
)

// knownDimensions lists output dimensions of the supported local models.
var knownDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// KnownDimension returns the embedding dimension of a supported local model.
func KnownDimension(model string) (int, bool) {
	dim, ok := knownDimensions[model]
	return dim, ok
}

// OpenAIRemoteFactory returns a RemoteFactory building an OpenAIEmbedding.
func OpenAIRemoteFactory(cfg OpenAIConfig, metrics *Metrics) RemoteFactory {
	return func(_ context.Context) (Model, error) {
		m, err := NewOpenAIEmbedding(cfg, metrics)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// TEIRemoteFactory returns a RemoteFactory building a TEIEmbedding.
func TEIRemoteFactory(cfg TEIConfig, metrics *Metrics) RemoteFactory {
	return func(_ context.Context) (Model, error) {
		m, err := NewTEIEmbedding(cfg, metrics)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return m, nil
	}
}

// FastEmbedLocalFactory returns the default LocalFactory. With
// LocalConfig.InstallRuntime set, a missing ONNX runtime is downloaded into
// LibDir before the backend is built.
func FastEmbedLocalFactory(logger *zap.Logger) LocalFactory {
	return func(ctx context.Context, cfg LocalConfig) (lcembeddings.Embedder, error) {
		if _, err := cachedir.Ensure(cfg.CacheDir); err != nil {
			return nil, err
		}
		if cfg.InstallRuntime {
			if _, err := EnsureONNXRuntime(ctx, cfg.LibDir, logger); err != nil {
				return nil, err
			}
		}
		b, err := NewFastEmbedBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// ConfiguredSpec parses embedding.model. An empty value is an absent spec.
func ConfiguredSpec(cfg *config.Config) (Spec, error) {
	if cfg.Embedding.Model == "" {
		return nil, nil
	}
	return ParseSpec(cfg.Embedding.Model)
}

// NewResolverFromConfig builds a Resolver from loaded configuration. A TEI
// base URL makes TEI the default remote provider instead of OpenAI.
func NewResolverFromConfig(cfg *config.Config, logger *logging.Logger) (*Resolver, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	root := cfg.Embedding.CacheDir
	if root == "" {
		root = cachedir.DefaultRoot()
	}
	root, err := cachedir.Ensure(root)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(logger.Underlying())

	var remote RemoteFactory
	if cfg.Embedding.TEI.BaseURL != "" {
		logger.Debug(context.Background(), "default remote provider configured",
			zap.String("provider", "tei"),
			zap.String("base_url", cfg.Embedding.TEI.BaseURL),
		)
		remote = TEIRemoteFactory(TEIConfig{
			BaseURL: cfg.Embedding.TEI.BaseURL,
			Model:   cfg.Embedding.TEI.Model,
		}, metrics)
	} else {
		logger.Debug(context.Background(), "default remote provider configured",
			zap.String("provider", "openai"),
			zap.String("model", cfg.Embedding.OpenAI.Model),
			logging.Secret("api_key", cfg.Embedding.OpenAI.APIKey),
		)
		remote = OpenAIRemoteFactory(OpenAIConfig{
			APIKey:  cfg.Embedding.OpenAI.APIKey.Value(),
			Model:   cfg.Embedding.OpenAI.Model,
			BaseURL: cfg.Embedding.OpenAI.BaseURL,
		}, metrics)
	}

	return NewResolver(ResolverConfig{
		CacheRoot:      root,
		Remote:         remote,
		MaxLength:      cfg.Embedding.MaxLength,
		InstallRuntime: cfg.Embedding.InstallRuntime,
		Logger:         logger,
		Metrics:        metrics,
	})
}
