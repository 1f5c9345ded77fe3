package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "EMBEDKIT_"

	appName        = "embedkit"
	configFileName = "config.yaml"
)

// defaultYAML seeds every known key so the environment transformer can map
// EMBEDKIT_EMBEDDING_OPENAI_API_KEY onto embedding.openai.api_key.
const defaultYAML = `
embedding:
  model: ""
  cache_dir: ""
  max_length: 512
  install_runtime: false
  openai:
    api_key: ""
    model: "text-embedding-ada-002"
    base_url: ""
  tei:
    base_url: ""
    model: "BAAI/bge-small-en-v1.5"
logging:
  level: "info"
  format: "json"
  output:
    otel: false
telemetry:
  enabled: false
  endpoint: "localhost:4317"
  protocol: "grpc"
  insecure: true
  service_name: "embedkit"
  sample_rate: 1.0
  metrics_interval: "15s"
  shutdown_timeout: "5s"
`

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil, false)
	if err != nil {
		// defaultYAML is a constant; failing to parse it is a programming error.
		panic(fmt.Sprintf("config: parsing defaults: %v", err))
	}
	return cfg
}

// DefaultPath returns the default config file location
// ($XDG_CONFIG_HOME/embedkit/config.yaml).
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// LoadWithFile loads configuration from YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (EMBEDKIT_EMBEDDING_MODEL, EMBEDKIT_LOGGING_LEVEL, ...)
//  2. YAML config file ($XDG_CONFIG_HOME/embedkit/config.yaml)
//  3. Built-in defaults
//
// A missing file is not an error. An existing file must live under the user
// config directory or /etc/embedkit, be at most 1MB, and have 0600 or 0400
// permissions.
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	return load(content, true)
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate using the opened descriptor to avoid a TOCTOU race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// load layers defaults, file content and, when withEnv is set, the environment.
func load(content []byte, withEnv bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if withEnv {
		known := envKeys(k.Keys())
		if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			// EMBEDKIT_EMBEDDING_OPENAI_API_KEY -> embedding_openai_api_key -> embedding.openai.api_key
			return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys maps underscore-flattened keys back to their dotted koanf paths.
// Unknown variables map to "" and are ignored by the env provider.
func envKeys(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ReplaceAll(key, ".", "_")] = key
	}
	return m
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Resolve symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	allowedDirs := []string{
		filepath.Join(xdg.ConfigHome, appName),
		filepath.Join("/etc", appName),
	}
	for _, dir := range allowedDirs {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		if strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in %s or %s", allowedDirs[0], allowedDirs[1])
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
