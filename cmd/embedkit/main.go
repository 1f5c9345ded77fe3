// Package main implements the embedkit CLI for resolving embedding models and
// reading and writing single-vector embedding files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/embedkit/internal/config"
	"github.com/fyrsmithlabs/embedkit/internal/logging"
	"github.com/fyrsmithlabs/embedkit/internal/telemetry"
)

var (
	// configPath overrides the default config file location
	configPath string
	// logLevel overrides logging.level from config
	logLevel string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "embedkit",
	Short: "Resolve embedding models and manage embedding files",
	Long: `embedkit resolves embedding model specs ("local", "local:<model>", or
nothing for the default remote provider) and reads and writes embedding
vectors stored as a single comma-separated line.

Configuration is read from $XDG_CONFIG_HOME/embedkit/config.yaml and
EMBEDKIT_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/embedkit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
}

// app carries the per-invocation configuration, logger and telemetry.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := newLogger(cfg.Logging, nil)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry, version, logger.Underlying())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	// Telemetry needs a logger first; rebuild with the OTEL bridge once a provider exists.
	if lp := tel.LoggerProvider(); cfg.Logging.Output.OTEL && lp != nil {
		bridged, err := newLogger(cfg.Logging, lp)
		if err != nil {
			_ = tel.Shutdown(ctx)
			_ = logger.Sync()
			return nil, err
		}
		_ = logger.Sync()
		logger = bridged
	}
	return &app{cfg: cfg, logger: logger, tel: tel}, nil
}

// newLogger logs to stderr so command output on stdout stays clean.
// A non-nil provider also receives every entry through the otelzap bridge.
func newLogger(lc config.LoggingConfig, lp log.LoggerProvider) (*logging.Logger, error) {
	lcfg := logging.NewDefaultConfig()
	lcfg.Output = logging.OutputConfig{Stderr: true, OTEL: lc.Output.OTEL}
	lcfg.Caller.Enabled = false
	if lc.Format != "" {
		lcfg.Format = lc.Format
	}
	if lc.Level != "" {
		level, err := logging.LevelFromString(lc.Level)
		if err != nil {
			return nil, err
		}
		lcfg.Level = level
	}
	logger, err := logging.NewLogger(lcfg, lp)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

func (a *app) close() {
	if err := a.tel.Shutdown(context.Background()); err != nil {
		a.logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// closeModel releases models that hold native resources.
func closeModel(m any) {
	if c, ok := m.(io.Closer); ok {
		_ = c.Close()
	}
}
