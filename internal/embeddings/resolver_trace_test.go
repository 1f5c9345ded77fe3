package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/embedkit/internal/telemetry"
)

func TestResolver_Span(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	rec := &localRecorder{}
	r := newTestResolver(t, ResolverConfig{
		Remote:     unavailableRemote,
		Local:      rec.factory,
		OnFallback: func(context.Context, Fallback) {},
		Tracer:     tel.Tracer(embeddingsInstrumentationName),
	})

	_, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)

	tel.AssertSpanExists(t, "embeddings.Resolve")
	tel.AssertSpanAttribute(t, "embeddings.Resolve", "spec.kind", "absent")
	tel.AssertSpanAttribute(t, "embeddings.Resolve", "fallback", true)
	tel.AssertSpanAttribute(t, "embeddings.Resolve", "model", DefaultLocalModel)
}

func TestResolver_SpanRecordsError(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	rec := &localRecorder{err: errors.New("corrupt model")}
	r := newTestResolver(t, ResolverConfig{
		Local:  rec.factory,
		Tracer: tel.Tracer(embeddingsInstrumentationName),
	})

	_, err := r.Resolve(context.Background(), LocalSpec{})
	require.Error(t, err)

	span := tel.SpanByName("embeddings.Resolve")
	require.NotNil(t, span)
	assert.Equal(t, codes.Error, span.Status().Code)
	tel.AssertSpanAttribute(t, "embeddings.Resolve", "spec.kind", "local")
	tel.AssertSpanAttribute(t, "embeddings.Resolve", "fallback", false)
}
