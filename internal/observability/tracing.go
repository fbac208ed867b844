// Package observability provides OpenTelemetry integration for distributed tracing.
//
// # Architecture
//
// Spans are exported over OTLP/HTTP to a local collector rather than a
// vendor endpoint. Any OTLP-speaking collector works: Jaeger, Grafana
// Tempo via the otel-collector, or a vendor agent. A local collector
// keeps credentials out of the application and buffers spans when the
// backend is unreachable.
//
// Genkit owns the TracerProvider and already creates spans around
// flows, model calls, and embedding requests, so export is wired into
// its provider instead of installing a second one. Index runs,
// searches, and agent completions show up as traces without any
// per-call instrumentation.
//
// # Quick start with Jaeger
//
// Run Jaeger with its OTLP receiver enabled:
//
//	docker run --rm -p 16686:16686 -p 4318:4318 \
//	  jaegertracing/all-in-one:latest
//
// Enable tracing in ~/.curator/config.yaml:
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "curator"
//
// Then open http://localhost:16686 and search for service:curator.
// Traces appear after the command exits (spans flush on shutdown).
//
// # Troubleshooting
//
// Test the collector endpoint:
//
//	curl -v http://localhost:4318/v1/traces
//
// A 405 means the receiver is up (it only accepts POST). Connection
// refused means nothing is listening; spans are dropped silently in
// that case and the command still works.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Enabled turns span export on. When false Setup is a no-op.
	Enabled bool
	// Endpoint is the OTLP/HTTP collector address (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in the tracing UI
	ServiceName string
}

// DefaultEndpoint is the default OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Setup registers an OTLP/HTTP exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans. When tracing
// is disabled, or the exporter cannot be created, the returned shutdown
// is a no-op and the application runs untraced.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads service identity from OTEL env vars.
	// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly
	// once during startup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		slog.Warn("creating otlp exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("otlp tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
