// Package cachedir resolves the per-user cache directory used for model
// files and native runtime libraries.
package cachedir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvCacheDir overrides the cache root when set.
const EnvCacheDir = "EMBEDKIT_CACHE_DIR"

const (
	appName = "embedkit"

	// ModelsDir holds downloaded embedding model files.
	ModelsDir = "models"

	// LibDir holds native runtime libraries (ONNX runtime).
	LibDir = "lib"
)

// Root returns the cache root, creating it with 0700 permissions if needed.
//
// Resolution order:
//  1. EMBEDKIT_CACHE_DIR
//  2. $XDG_CACHE_HOME/embedkit (platform default via adrg/xdg)
func Root() (string, error) {
	return Ensure(DefaultRoot())
}

// DefaultRoot returns the cache root path without touching the filesystem.
func DefaultRoot() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, appName)
}

// Ensure creates dir (and parents) if it does not exist and returns it.
func Ensure(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return dir, nil
}

// Models returns the model cache directory under root.
func Models(root string) string {
	return filepath.Join(root, ModelsDir)
}

// Lib returns the native library directory under root.
func Lib(root string) string {
	return filepath.Join(root, LibDir)
}
