// Package telemetry wires cardforge's observability hooks to OpenTelemetry.
//
// Tracing is opt-in: without an OTLP endpoint [Setup] registers nothing and
// the hooks stay no-ops.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/matzehuels/cardforge/pkg/buildinfo"
	"github.com/matzehuels/cardforge/pkg/observability"
)

// Setup initialises tracing to the OTLP/HTTP endpoint and registers hooks
// that emit spans for renders, packs and generation jobs.
//
// With an empty endpoint Setup returns a no-op shutdown function and no
// global provider or hooks are registered. The returned shutdown function
// flushes pending spans and should be deferred by the caller.
func Setup(ctx context.Context, endpoint, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if endpoint == "" {
		return noop, nil
	}
	if serviceName == "" {
		serviceName = "cardforge"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(buildinfo.Short()),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	Register(New(tp))

	return func(ctx context.Context) error {
		observability.Reset()
		return tp.Shutdown(ctx)
	}, nil
}

// Register installs h as the pipeline, generation and cache hooks.
func Register(h *Hooks) {
	observability.SetPipelineHooks(h)
	observability.SetGenerationHooks(h)
	observability.SetCacheHooks(h)
}
