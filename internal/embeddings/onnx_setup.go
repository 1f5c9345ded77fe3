package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// DefaultONNXRuntimeVersion is the ONNX runtime release matching the
// onnxruntime_go version pulled in by fastembed-go.
const DefaultONNXRuntimeVersion = "1.23.0"

// ONNXPathEnv points fastembed-go at the ONNX runtime shared library.
const ONNXPathEnv = "ONNX_PATH"

// ErrUnsupportedPlatform indicates the current OS/arch has no ONNX runtime release.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// platformArchMap maps GOOS/GOARCH to ONNX release archive names.
var platformArchMap = map[string]map[string]string{
	"linux": {
		"amd64": "linux-x64",
		"arm64": "linux-aarch64",
	},
	"darwin": {
		"amd64": "osx-x86_64",
		"arm64": "osx-arm64",
	},
}

var libraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

func getPlatformArchive(goos, goarch string) (string, error) {
	archMap, ok := platformArchMap[goos]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	arch, ok := archMap[goarch]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return arch, nil
}

func getLibraryName(goos string) string {
	if name, ok := libraryNames[goos]; ok {
		return name
	}
	return "libonnxruntime.so"
}

// GetONNXLibraryPath returns the ONNX runtime library path, or "" if none is
// installed. ONNX_PATH wins over the managed copy in libDir.
func GetONNXLibraryPath(libDir string) string {
	if envPath := os.Getenv(ONNXPathEnv); envPath != "" {
		return envPath
	}
	if libDir == "" {
		return ""
	}

	managedPath := filepath.Join(libDir, getLibraryName(runtime.GOOS))
	if _, err := os.Stat(managedPath); err == nil {
		return managedPath
	}
	return ""
}

// onnxReleaseURL is a var so tests can serve archives locally.
var onnxReleaseURL = func(version, platform string) string {
	return fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz",
		version, platform, version)
}

// DownloadONNXRuntime downloads the ONNX runtime for the current platform
// into destDir. An empty version means DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version, destDir string) error {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}

	platform, err := getPlatformArchive(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, onnxReleaseURL(version, platform), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := extractTarGz(resp.Body, destDir, version, platform); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}
	return nil
}

// extractTarGz copies the lib/ entries of an ONNX runtime release archive
// into destDir, flattening paths.
func extractTarGz(r io.Reader, destDir, version, platform string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, version)
	libName := getLibraryName(runtime.GOOS)
	var foundMainLib bool

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		if !strings.HasPrefix(name, prefix) || header.Typeflag == tar.TypeDir {
			continue
		}

		filename := filepath.Base(name)
		destPath := filepath.Join(destDir, filename)

		if header.Typeflag == tar.TypeSymlink {
			// Links inside the archive are relative to lib/; only keep plain names.
			if filepath.Base(header.Linkname) != header.Linkname {
				continue
			}
			_ = os.Remove(destPath)
			if err := os.Symlink(header.Linkname, destPath); err != nil {
				continue
			}
			if filename == libName {
				foundMainLib = true
			}
			continue
		}

		if err := writeArchiveFile(destPath, tr); err != nil {
			return fmt.Errorf("writing file %s: %w", filename, err)
		}
		if filename == libName || strings.HasPrefix(filename, libName+".") {
			foundMainLib = true
		}
	}

	if !foundMainLib {
		return fmt.Errorf("library %s not found in archive", libName)
	}
	return nil
}

func writeArchiveFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// setONNXPathEnv is a var so tests can observe it without mutating the process env.
var setONNXPathEnv = func(path string) error {
	return os.Setenv(ONNXPathEnv, path)
}

// EnsureONNXRuntime returns the ONNX runtime library path, downloading the
// default version into libDir first if it is not installed.
func EnsureONNXRuntime(ctx context.Context, libDir string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path := GetONNXLibraryPath(libDir); path != "" {
		return path, nil
	}

	logger.Info("ONNX runtime not found, downloading",
		zap.String("version", DefaultONNXRuntimeVersion),
		zap.String("platform", runtime.GOOS+"/"+runtime.GOARCH),
		zap.String("dir", libDir),
	)
	if err := DownloadONNXRuntime(ctx, "", libDir); err != nil {
		return "", &DependencyMissingError{
			Dependency:  "ONNX runtime",
			Remediation: onnxRemediation,
			Err:         err,
		}
	}

	path := GetONNXLibraryPath(libDir)
	if path == "" {
		return "", fmt.Errorf("ONNX runtime download completed but library not found in %s", libDir)
	}
	logger.Info("ONNX runtime installed", zap.String("path", path))
	return path, nil
}

const onnxRemediation = "Run 'embedkit runtime install' or set ONNX_PATH to an existing libonnxruntime"
