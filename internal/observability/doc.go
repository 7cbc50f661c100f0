// Package observability provides structured logging and distributed
// tracing for apimorph.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("response morphed",
//	    observability.String("format", "json"),
//	    observability.Int("bytes", 128),
//	)
//
// Components accept a Logger through a functional option and fall back to
// NopLogger when none is given.
//
// # Tracing
//
// NewTracer configures an OpenTelemetry tracer provider with an optional
// OTLP gRPC exporter. The morph pipeline and the transformer factory start
// their spans from the global provider, so installing the tracer is enough
// to get spans for every morph.
package observability
