package embeddings

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlatformArchive(t *testing.T) {
	tests := []struct {
		goos   string
		goarch string
		want   string
	}{
		{"linux", "amd64", "linux-x64"},
		{"linux", "arm64", "linux-aarch64"},
		{"darwin", "amd64", "osx-x86_64"},
		{"darwin", "arm64", "osx-arm64"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := getPlatformArchive(tt.goos, tt.goarch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetPlatformArchive_Unsupported(t *testing.T) {
	_, err := getPlatformArchive("windows", "amd64")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = getPlatformArchive("linux", "riscv64")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestGetLibraryName(t *testing.T) {
	assert.Equal(t, "libonnxruntime.so", getLibraryName("linux"))
	assert.Equal(t, "libonnxruntime.dylib", getLibraryName("darwin"))
	assert.Equal(t, "libonnxruntime.so", getLibraryName("plan9"))
}

func TestGetONNXLibraryPath(t *testing.T) {
	t.Run("env override wins", func(t *testing.T) {
		t.Setenv(ONNXPathEnv, "/opt/onnx/libonnxruntime.so")
		assert.Equal(t, "/opt/onnx/libonnxruntime.so", GetONNXLibraryPath(t.TempDir()))
	})

	t.Run("managed install", func(t *testing.T) {
		t.Setenv(ONNXPathEnv, "")
		dir := t.TempDir()
		lib := filepath.Join(dir, getLibraryName(runtime.GOOS))
		require.NoError(t, os.WriteFile(lib, []byte("lib"), 0644))
		assert.Equal(t, lib, GetONNXLibraryPath(dir))
	})

	t.Run("not installed", func(t *testing.T) {
		t.Setenv(ONNXPathEnv, "")
		assert.Empty(t, GetONNXLibraryPath(t.TempDir()))
		assert.Empty(t, GetONNXLibraryPath(""))
	})
}

// buildArchive returns a release-shaped .tgz containing the given lib/ files.
func buildArchive(t *testing.T, version, platform string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	root := fmt.Sprintf("onnxruntime-%s-%s/", platform, version)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: root + "lib/", Typeflag: tar.TypeDir, Mode: 0755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: root + "README.md", Typeflag: tar.TypeReg, Mode: 0644, Size: 2}))
	_, err := tw.Write([]byte("hi"))
	require.NoError(t, err)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     root + "lib/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestDownloadONNXRuntime(t *testing.T) {
	platform, err := getPlatformArchive(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skipf("no ONNX runtime release for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	libName := getLibraryName(runtime.GOOS)

	archive := buildArchive(t, "9.9.9", platform, map[string]string{libName: "binary"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v9.9.9/"+platform {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	orig := onnxReleaseURL
	onnxReleaseURL = func(version, platform string) string {
		return srv.URL + "/v" + version + "/" + platform
	}
	t.Cleanup(func() { onnxReleaseURL = orig })

	t.Run("extracts library", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "lib")
		require.NoError(t, DownloadONNXRuntime(context.Background(), "9.9.9", dest))

		data, err := os.ReadFile(filepath.Join(dest, libName))
		require.NoError(t, err)
		assert.Equal(t, "binary", string(data))
		assert.NoFileExists(t, filepath.Join(dest, "README.md"))
	})

	t.Run("http error", func(t *testing.T) {
		err := DownloadONNXRuntime(context.Background(), "1.0.0", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}

func TestExtractTarGz_MissingLibrary(t *testing.T) {
	archive := buildArchive(t, "1.0.0", "linux-x64", map[string]string{"other.txt": "x"})
	err := extractTarGz(bytes.NewReader(archive), t.TempDir(), "1.0.0", "linux-x64")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in archive")
}

func TestEnsureONNXRuntime_AlreadyInstalled(t *testing.T) {
	t.Setenv(ONNXPathEnv, "")
	dir := t.TempDir()
	lib := filepath.Join(dir, getLibraryName(runtime.GOOS))
	require.NoError(t, os.WriteFile(lib, []byte("lib"), 0644))

	got, err := EnsureONNXRuntime(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
}

func TestEnsureONNXRuntime_DownloadFails(t *testing.T) {
	if _, err := getPlatformArchive(runtime.GOOS, runtime.GOARCH); err != nil {
		t.Skipf("no ONNX runtime release for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	t.Setenv(ONNXPathEnv, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	orig := onnxReleaseURL
	onnxReleaseURL = func(_, _ string) string { return srv.URL }
	t.Cleanup(func() { onnxReleaseURL = orig })

	_, err := EnsureONNXRuntime(context.Background(), t.TempDir(), nil)
	require.Error(t, err)

	var missing *DependencyMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ONNX runtime", missing.Dependency)
	assert.Contains(t, err.Error(), "embedkit runtime install")
	assert.ErrorIs(t, err, ErrDependencyMissing)
}
