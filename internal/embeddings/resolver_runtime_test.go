package embeddings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ForwardsInstallRuntime(t *testing.T) {
	rec := &localRecorder{}
	r := newTestResolver(t, ResolverConfig{Local: rec.factory, InstallRuntime: true})

	_, err := r.Resolve(context.Background(), LocalSpec{})
	require.NoError(t, err)
	require.Len(t, rec.configs, 1)
	assert.True(t, rec.configs[0].InstallRuntime)
}

func TestResolver_InstallRuntimeDownloadFails(t *testing.T) {
	if _, err := getPlatformArchive(runtime.GOOS, runtime.GOARCH); err != nil {
		t.Skipf("no ONNX runtime release for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	t.Setenv(ONNXPathEnv, "")

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	orig := onnxReleaseURL
	onnxReleaseURL = func(_, _ string) string { return srv.URL }
	t.Cleanup(func() { onnxReleaseURL = orig })

	var fallbacks int
	r := newTestResolver(t, ResolverConfig{
		Remote:         unavailableRemote,
		InstallRuntime: true,
		OnFallback:     func(context.Context, Fallback) { fallbacks++ },
	})

	res, err := r.Resolve(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), downloads.Load())
	assert.Equal(t, 1, fallbacks)
	require.NotNil(t, res.Fallback)
	assert.Nil(t, res.Model)

	var missing *DependencyMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ONNX runtime", missing.Dependency)
	assert.Equal(t, onnxRemediation, missing.Remediation)
	assert.Contains(t, err.Error(), "status 502")
}

func TestResolver_NoInstallWithoutOptIn(t *testing.T) {
	t.Setenv(ONNXPathEnv, "")

	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	orig := onnxReleaseURL
	onnxReleaseURL = func(_, _ string) string { return srv.URL }
	t.Cleanup(func() { onnxReleaseURL = orig })

	r := newTestResolver(t, ResolverConfig{})

	_, err := r.Resolve(context.Background(), LocalSpec{})
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.Zero(t, downloads.Load())
}
