// Package config provides configuration loading for embedkit.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then EMBEDKIT_* environment variables.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fyrsmithlabs/embedkit/internal/telemetry"
)

// Config holds the complete embedkit configuration.
type Config struct {
	Embedding EmbeddingConfig  `koanf:"embedding"`
	Logging   LoggingConfig    `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// EmbeddingConfig holds embedding model resolution settings.
type EmbeddingConfig struct {
	// Model is the embedding spec string ("local", "local:<model>").
	// Empty means no spec was given and the default remote provider is tried.
	Model string `koanf:"model"`

	// CacheDir overrides the cache root used for local model files.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the local backend's maximum input sequence length.
	MaxLength int `koanf:"max_length" validate:"gte=0,lte=8192"`

	// InstallRuntime downloads the ONNX runtime on first local use.
	InstallRuntime bool `koanf:"install_runtime"`

	OpenAI OpenAIConfig `koanf:"openai"`
	TEI    TEIConfig    `koanf:"tei"`
}

// OpenAIConfig configures the default remote embedding provider.
type OpenAIConfig struct {
	// APIKey falls back to OPENAI_API_KEY when unset.
	APIKey  Secret `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

// TEIConfig configures a Text Embeddings Inference server.
type TEIConfig struct {
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	Model   string `koanf:"model"`
}

// LoggingConfig holds the logging knobs exposed through configuration.
type LoggingConfig struct {
	Level  string              `koanf:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string              `koanf:"format" validate:"omitempty,oneof=json console"`
	Output LoggingOutputConfig `koanf:"output"`
}

// LoggingOutputConfig selects additional log sinks.
type LoggingOutputConfig struct {
	// OTEL mirrors logs to the telemetry logger provider. Requires telemetry.enabled.
	OTEL bool `koanf:"otel"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}
