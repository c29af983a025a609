package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/cardforge/pkg/observability"
)

const instrumentation = "github.com/matzehuels/cardforge"

// Hooks turns observability events into spans.
type Hooks struct {
	tracer trace.Tracer
}

// New returns hooks tracing through tp.
func New(tp trace.TracerProvider) *Hooks {
	return &Hooks{tracer: tp.Tracer(instrumentation)}
}

var (
	_ observability.PipelineHooks   = (*Hooks)(nil)
	_ observability.GenerationHooks = (*Hooks)(nil)
	_ observability.CacheHooks      = (*Hooks)(nil)
)

// OnRenderStart starts a span for one card.
func (h *Hooks) OnRenderStart(ctx context.Context, card string) context.Context {
	ctx, _ = h.tracer.Start(ctx, "render.card", trace.WithAttributes(attribute.String("card.name", card)))
	return ctx
}

// OnRenderComplete ends the card span.
func (h *Hooks) OnRenderComplete(ctx context.Context, card string, warnings int, d time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("render.warnings", warnings))
	end(span, err)
}

// OnPackStart starts a span for one document.
func (h *Hooks) OnPackStart(ctx context.Context, images int) context.Context {
	ctx, _ = h.tracer.Start(ctx, "pack.document", trace.WithAttributes(attribute.Int("pack.images", images)))
	return ctx
}

// OnPackComplete ends the document span.
func (h *Hooks) OnPackComplete(ctx context.Context, pages int, d time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("pack.pages", pages))
	end(span, err)
}

// OnJobStart starts a span covering a generation job.
func (h *Hooks) OnJobStart(ctx context.Context, jobID string, count int) context.Context {
	ctx, _ = h.tracer.Start(ctx, "generate.job", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.Int("job.count", count),
	))
	return ctx
}

// OnUnitComplete records one image as a span event.
func (h *Hooks) OnUnitComplete(ctx context.Context, jobID string, index int, d time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("image.index", index),
		attribute.Int64("image.duration_ms", d.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("image", trace.WithAttributes(attrs...))
}

// OnJobComplete ends the job span.
func (h *Hooks) OnJobComplete(ctx context.Context, jobID, state string, produced int, d time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("job.state", state),
		attribute.Int("job.produced", produced),
	)
	if state == "failed" {
		span.SetStatus(codes.Error, "generation failed")
	}
	span.End()
}

// OnCacheHit records a hit on the current span.
func (h *Hooks) OnCacheHit(ctx context.Context, keyType string) {
	cacheEvent(ctx, "cache.hit", keyType)
}

// OnCacheMiss records a miss on the current span.
func (h *Hooks) OnCacheMiss(ctx context.Context, keyType string) {
	cacheEvent(ctx, "cache.miss", keyType)
}

// OnCacheSet records a write on the current span.
func (h *Hooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	trace.SpanFromContext(ctx).AddEvent("cache.set", trace.WithAttributes(
		attribute.String("cache.key_type", keyType),
		attribute.Int("cache.size", size),
	))
}

func cacheEvent(ctx context.Context, name, keyType string) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attribute.String("cache.key_type", keyType)))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
