package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/matzehuels/cardforge/pkg/observability"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
	if _, ok := observability.Pipeline().(observability.NoopPipelineHooks); !ok {
		t.Error("Setup without endpoint registered hooks")
	}
}

func TestSetupRegistersHooks(t *testing.T) {
	// Non-routable address so no export happens.
	shutdown, err := Setup(context.Background(), "http://192.0.2.1:4318", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := observability.Pipeline().(*Hooks); !ok {
		t.Error("pipeline hooks not registered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
	if _, ok := observability.Pipeline().(*Hooks); ok {
		t.Error("shutdown left hooks registered")
	}
}

func newRecorder() (*Hooks, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return New(tp), sr
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value
		}
	}
	return attribute.Value{}
}

func TestRenderSpans(t *testing.T) {
	h, sr := newRecorder()

	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
	}{
		{"ok", nil, codes.Unset},
		{"failed", fmt.Errorf("font broken"), codes.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := h.OnRenderStart(context.Background(), "Striker")
			h.OnCacheMiss(ctx, "render")
			h.OnRenderComplete(ctx, "Striker", 2, time.Millisecond, tt.err)

			spans := sr.Ended()
			span := spans[len(spans)-1]
			if span.Name() != "render.card" || span.Status().Code != tt.wantStatus {
				t.Errorf("span = %s status %v, want render.card %v", span.Name(), span.Status().Code, tt.wantStatus)
			}
			if got := attr(span.Attributes(), "render.warnings").AsInt64(); got != 2 {
				t.Errorf("render.warnings = %d", got)
			}
			if got := attr(span.Attributes(), "card.name").AsString(); got != "Striker" {
				t.Errorf("card.name = %q", got)
			}
			if ev := span.Events(); len(ev) == 0 || ev[0].Name != "cache.miss" {
				t.Errorf("events = %v, want cache.miss first", ev)
			}
		})
	}
}

func TestJobSpan(t *testing.T) {
	h, sr := newRecorder()
	ctx := h.OnJobStart(context.Background(), "job-1", 3)
	h.OnUnitComplete(ctx, "job-1", 0, time.Second, nil)
	h.OnUnitComplete(ctx, "job-1", 1, time.Second, fmt.Errorf("oom"))
	h.OnJobComplete(ctx, "job-1", "failed", 1, 2*time.Second)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if len(span.Events()) != 2 || span.Status().Code != codes.Error {
		t.Errorf("events = %d, status = %v", len(span.Events()), span.Status().Code)
	}
	if got := attr(span.Attributes(), "job.produced").AsInt64(); got != 1 {
		t.Errorf("job.produced = %d", got)
	}
}

func TestPackSpan(t *testing.T) {
	h, sr := newRecorder()
	ctx := h.OnPackStart(context.Background(), 7)
	h.OnCacheSet(ctx, "sheet", 1024)
	h.OnPackComplete(ctx, 2, time.Millisecond, nil)

	span := sr.Ended()[0]
	if span.Name() != "pack.document" || attr(span.Attributes(), "pack.pages").AsInt64() != 2 {
		t.Errorf("span = %s %v", span.Name(), span.Attributes())
	}
}
