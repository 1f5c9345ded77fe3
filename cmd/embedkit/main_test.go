package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/embedkit/internal/embeddings"
	"github.com/fyrsmithlabs/embedkit/internal/vectorfile"
)

// isolate points config and cache lookups at temp dirs and clears provider env.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	cache := t.TempDir()
	t.Setenv("EMBEDKIT_EMBEDDING_CACHE_DIR", cache)
	t.Setenv("EMBEDKIT_LOGGING_LEVEL", "error")
	t.Setenv(embeddings.OpenAIAPIKeyEnv, "")
	t.Setenv("EMBEDKIT_EMBEDDING_TEI_BASE_URL", "")
	return cache
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newTEIServer returns a TEI endpoint that embeds text as [len(text), 1].
func newTEIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([][]float32{{float32(len(req.Inputs)), 1}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommands_Registered(t *testing.T) {
	want := map[string]bool{"resolve": false, "embed": false, "show": false, "runtime": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		assert.True(t, found, "%s command not registered", name)
	}
}

func TestResolve_InvalidSpec(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "resolve", "remote:x")
	require.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}

func TestResolve_InvalidTelemetryConfig(t *testing.T) {
	isolate(t)
	t.Setenv("EMBEDKIT_TELEMETRY_PROTOCOL", "udp")

	_, err := execute(t, "", "resolve", "local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestResolve_ConfiguredTEI(t *testing.T) {
	isolate(t)
	srv := newTEIServer(t)
	t.Setenv("EMBEDKIT_EMBEDDING_TEI_BASE_URL", srv.URL)
	t.Setenv("EMBEDKIT_EMBEDDING_TEI_MODEL", "BAAI/bge-small-en-v1.5")

	out, err := execute(t, "", "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "model: BAAI/bge-small-en-v1.5")
	assert.Contains(t, out, "dimension: 384")
	assert.NotContains(t, out, "fallback")
}

func TestEmbedAndShow(t *testing.T) {
	isolate(t)
	srv := newTEIServer(t)
	t.Setenv("EMBEDKIT_EMBEDDING_TEI_BASE_URL", srv.URL)

	path := filepath.Join(t.TempDir(), "hello.vec")

	out, err := execute(t, "", "embed", "hello", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 values")

	vector, err := vectorfile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, vector)

	out, err = execute(t, "", "show", path)
	require.NoError(t, err)
	assert.Equal(t, "dimension: 2\n5,1\n", out)
}

func TestEmbed_Stdin(t *testing.T) {
	isolate(t)
	srv := newTEIServer(t)
	t.Setenv("EMBEDKIT_EMBEDDING_TEI_BASE_URL", srv.URL)

	path := filepath.Join(t.TempDir(), "q.vec")
	_, err := execute(t, "abc\n", "embed", "--query", "--out", path)
	require.NoError(t, err)

	vector, err := vectorfile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vector)
}

func TestEmbed_RequiresOut(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "embed", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}

func TestShow_Errors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "show", filepath.Join(t.TempDir(), "missing.vec"))
	assert.ErrorIs(t, err, vectorfile.ErrNotFound)

	bad := filepath.Join(t.TempDir(), "bad.vec")
	require.NoError(t, os.WriteFile(bad, []byte("1.0,abc"), 0644))
	_, err = execute(t, "", "show", bad)
	assert.ErrorIs(t, err, vectorfile.ErrSerialization)
}

func TestRuntimeInstall_AlreadyInstalled(t *testing.T) {
	isolate(t)
	libPath := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(libPath, []byte("fake"), 0644))
	t.Setenv(embeddings.ONNXPathEnv, libPath)

	out, err := execute(t, "", "runtime", "install")
	require.NoError(t, err)
	assert.Contains(t, out, "already installed at: "+libPath)
}

func TestRuntimeInstall_ManagedCopy(t *testing.T) {
	cache := isolate(t)
	t.Setenv(embeddings.ONNXPathEnv, "")

	libName := "libonnxruntime.so"
	if runtime.GOOS == "darwin" {
		libName = "libonnxruntime.dylib"
	}
	libDir := filepath.Join(cache, "lib")
	require.NoError(t, os.MkdirAll(libDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(libDir, libName), []byte("fake"), 0644))

	out, err := execute(t, "", "runtime", "install")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(libDir, libName))
}
