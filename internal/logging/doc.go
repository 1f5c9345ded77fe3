// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Stdout/stderr output with optional OpenTelemetry bridge
//   - Automatic trace correlation (trace_id, span_id) from context
//   - Secret redaction at the encoder level
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Warn(ctx, "falling back to local embedding model",
//	    zap.String("model", embeddings.DefaultLocalModel))
//
// # Secret Redaction
//
// Secrets are redacted at two layers:
//  1. Domain primitives (config.Secret type, logging.Secret field helper)
//  2. Encoder-level field name and value pattern filtering
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	resolver, _ := embeddings.NewResolver(embeddings.ResolverConfig{Logger: tl.Logger})
//	tl.AssertLogged(t, zapcore.WarnLevel, "falling back")
package logging
