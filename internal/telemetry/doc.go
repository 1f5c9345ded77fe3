// Package telemetry sets up OpenTelemetry tracing and metrics export.
//
// When enabled, New installs OTLP (gRPC or HTTP/protobuf) tracer and meter
// providers as the otel globals, so instruments created through otel.Meter
// and otel.Tracer elsewhere in embedkit are exported without further wiring.
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"
//	  sample_rate: 1.0
//	  metrics_interval: "15s"
//
// Failures to build exporters degrade to no-op providers rather than
// failing the command.
//
// Tests use NewTestTelemetry, which records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "op")
//	span.End()
//	tt.AssertSpanExists(t, "op")
package telemetry
