package embeddings

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/embedkit/internal/cachedir"
	"github.com/fyrsmithlabs/embedkit/internal/logging"
)

// RemoteFactory constructs the default remote provider from ambient
// credentials. It is only consulted for an absent spec.
type RemoteFactory func(ctx context.Context) (Model, error)

// LocalFactory constructs a local embedding backend.
type LocalFactory func(ctx context.Context, cfg LocalConfig) (lcembeddings.Embedder, error)

// LocalConfig is passed to a LocalFactory.
type LocalConfig struct {
	// ModelName is never empty; "local" specs default to DefaultLocalModel.
	ModelName string

	// CacheDir is <cache root>/models.
	CacheDir string

	// LibDir is <cache root>/lib, searched for native runtimes.
	LibDir string

	// MaxLength is the maximum input sequence length, 0 for the backend default.
	MaxLength int

	// InstallRuntime allows the factory to download missing native runtimes into LibDir.
	InstallRuntime bool
}

// Fallback records that the default remote provider was unavailable and the
// local fallback model was used instead.
type Fallback struct {
	Model  string
	Reason error
}

// FallbackObserver is notified once per fallback.
type FallbackObserver func(ctx context.Context, fb Fallback)

// Resolution is the outcome of resolving a spec.
type Resolution struct {
	Model Model

	// Fallback is non-nil when an absent spec fell back to the local model.
	Fallback *Fallback
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// CacheRoot is the per-user cache base directory. Required.
	CacheRoot string

	// Remote defaults to the OpenAI provider configured from the environment.
	Remote RemoteFactory

	// Local defaults to the FastEmbed backend.
	Local LocalFactory

	// MaxLength is forwarded to local backends.
	MaxLength int

	// InstallRuntime is forwarded to local backends as LocalConfig.InstallRuntime.
	InstallRuntime bool

	// OnFallback replaces the default observer, which logs a warning.
	OnFallback FallbackObserver

	Logger  *logging.Logger
	Metrics *Metrics

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

// Resolver turns a Spec into a Model.
type Resolver struct {
	cacheRoot  string
	remote     RemoteFactory
	local      LocalFactory
	maxLength  int
	install    bool
	onFallback FallbackObserver
	logger     *logging.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewResolver creates a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.CacheRoot == "" {
		return nil, fmt.Errorf("%w: cache root required", ErrInvalidConfig)
	}
	if cfg.MaxLength < 0 {
		return nil, fmt.Errorf("%w: max length must not be negative", ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("embeddings")

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(logger.Underlying())
	}

	r := &Resolver{
		cacheRoot:  cfg.CacheRoot,
		remote:     cfg.Remote,
		local:      cfg.Local,
		maxLength:  cfg.MaxLength,
		install:    cfg.InstallRuntime,
		onFallback: cfg.OnFallback,
		logger:     logger,
		metrics:    metrics,
		tracer:     cfg.Tracer,
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(embeddingsInstrumentationName)
	}
	if r.remote == nil {
		r.remote = OpenAIRemoteFactory(OpenAIConfig{}, metrics)
	}
	if r.local == nil {
		r.local = FastEmbedLocalFactory(logger.Underlying())
	}
	if r.onFallback == nil {
		r.onFallback = r.warnFallback
	}
	return r, nil
}

// Resolve resolves spec:
//
//	nil          -> default remote provider, or the local fallback if it cannot be constructed
//	LocalSpec    -> local backend wrapped in LangchainEmbedding
//	ExternalSpec -> the Model itself
//	LegacySpec   -> the embedder wrapped in LangchainEmbedding
//
// Errors from the default remote provider are the only ones recovered.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (res Resolution, err error) {
	kind := specKind(spec)
	ctx, span := r.tracer.Start(ctx, "embeddings.Resolve", trace.WithAttributes(attribute.String("spec.kind", kind)))
	defer func() {
		if res.Model != nil {
			span.SetAttributes(attribute.String("model", res.Model.ModelName()))
		}
		span.SetAttributes(attribute.Bool("fallback", res.Fallback != nil))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.RecordResolution(ctx, kind, err)
	}()

	switch s := spec.(type) {
	case nil:
		return r.resolveAbsent(ctx)
	case LocalSpec:
		m, err := r.resolveLocal(ctx, s)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Model: m}, nil
	case ExternalSpec:
		if isNilValue(s.Model) {
			return Resolution{}, fmt.Errorf("%w: external spec without a model", ErrInvalidConfig)
		}
		r.logger.Debug(ctx, "using provided embedding model", zap.String("model", s.Model.ModelName()))
		return Resolution{Model: s.Model}, nil
	case LegacySpec:
		if isNilValue(s.Embedder) {
			return Resolution{}, fmt.Errorf("%w: legacy spec without an embedder", ErrInvalidConfig)
		}
		m := NewLangchainEmbedding(s.Embedder, "")
		r.logger.Debug(ctx, "wrapping langchain embedder", zap.String("model", m.ModelName()))
		return Resolution{Model: m}, nil
	default:
		return Resolution{}, fmt.Errorf("%w: unsupported spec %T", ErrInvalidConfig, spec)
	}
}

// ResolveModel is Resolve without the fallback details.
func (r *Resolver) ResolveModel(ctx context.Context, spec Spec) (Model, error) {
	res, err := r.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}
	return res.Model, nil
}

// Resolve converts v with SpecOf and resolves it with a Resolver built from cfg.
func Resolve(ctx context.Context, v any, cfg ResolverConfig) (Model, error) {
	spec, err := SpecOf(v)
	if err != nil {
		return nil, err
	}
	r, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	return r.ResolveModel(ctx, spec)
}

func (r *Resolver) resolveAbsent(ctx context.Context) (Resolution, error) {
	m, err := r.remote(ctx)
	if err == nil && m == nil {
		err = errors.New("remote factory returned no model")
	}
	if err == nil {
		r.logger.Debug(ctx, "using default remote embedding provider", zap.String("model", m.ModelName()))
		return Resolution{Model: m}, nil
	}

	if !errors.Is(err, ErrProviderUnavailable) {
		err = fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	fb := &Fallback{Model: DefaultLocalModel, Reason: err}
	r.metrics.RecordFallback(ctx, fb.Model)
	r.onFallback(ctx, *fb)

	local, err := r.resolveLocal(ctx, LocalSpec{ModelName: DefaultLocalModel})
	if err != nil {
		return Resolution{Fallback: fb}, err
	}
	return Resolution{Model: local, Fallback: fb}, nil
}

func (r *Resolver) resolveLocal(ctx context.Context, s LocalSpec) (Model, error) {
	cfg := LocalConfig{
		ModelName:      s.Model(),
		CacheDir:       cachedir.Models(r.cacheRoot),
		LibDir:         cachedir.Lib(r.cacheRoot),
		MaxLength:      r.maxLength,
		InstallRuntime: r.install,
	}

	backend, err := r.local(ctx, cfg)
	if err != nil {
		var missing *DependencyMissingError
		if errors.As(err, &missing) {
			return nil, err
		}
		return nil, fmt.Errorf("loading local model %q: %w", cfg.ModelName, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("loading local model %q: factory returned no backend", cfg.ModelName)
	}

	r.logger.Debug(ctx, "using local embedding model",
		zap.String("model", cfg.ModelName),
		zap.String("cache_dir", cfg.CacheDir),
	)
	return NewLangchainEmbedding(backend, cfg.ModelName), nil
}

func (r *Resolver) warnFallback(ctx context.Context, fb Fallback) {
	r.logger.Warn(ctx, "default embedding provider unavailable, falling back to local model",
		zap.String("fallback_model", fb.Model),
		zap.Error(fb.Reason),
	)
}
