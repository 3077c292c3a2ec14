// Package telemetry provides OpenTelemetry tracing and metrics for answerd.
//
// Telemetry is off by default; a local answerd has no collector to talk to.
// When enabled, spans and metrics are exported over OTLP (grpc or
// http/protobuf) to the configured endpoint.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("answerd/resolver")
//	ctx, span := tracer.Start(ctx, "resolver.Resolve")
//	defer span.End()
//
// Failures while building exporters degrade the instance instead of failing
// startup; Tracer and Meter then hand out no-op implementations.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
