// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about card rendering, sheet packing, artwork generation and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages stay
// free of tracing and metrics imports.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(telemetry.PipelineHooks{})
//	    observability.SetGenerationHooks(telemetry.GenerationHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	ctx = observability.Pipeline().OnRenderStart(ctx, card.Name)
//	// ... render ...
//	observability.Pipeline().OnRenderComplete(ctx, card.Name, len(warnings), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from card rendering and page packing.
// Start events may return a derived context (e.g. carrying a span) that is
// passed to the matching complete event.
type PipelineHooks interface {
	// Render events, one pair per card
	OnRenderStart(ctx context.Context, card string) context.Context
	OnRenderComplete(ctx context.Context, card string, warnings int, duration time.Duration, err error)

	// Pack events, one pair per document
	OnPackStart(ctx context.Context, images int) context.Context
	OnPackComplete(ctx context.Context, pages int, duration time.Duration, err error)
}

// =============================================================================
// Generation Hooks
// =============================================================================

// GenerationHooks receives events from artwork generation jobs.
type GenerationHooks interface {
	// OnJobStart records a job entering the running state.
	OnJobStart(ctx context.Context, jobID string, count int) context.Context

	// OnUnitComplete records one generated image (or the failed attempt).
	OnUnitComplete(ctx context.Context, jobID string, index int, duration time.Duration, err error)

	// OnJobComplete records the terminal state of a job.
	OnJobComplete(ctx context.Context, jobID, state string, produced int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRenderStart(ctx context.Context, _ string) context.Context { return ctx }
func (NoopPipelineHooks) OnRenderComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnPackStart(ctx context.Context, _ int) context.Context      { return ctx }
func (NoopPipelineHooks) OnPackComplete(context.Context, int, time.Duration, error) {}

// NoopGenerationHooks is a no-op implementation of GenerationHooks.
type NoopGenerationHooks struct{}

func (NoopGenerationHooks) OnJobStart(ctx context.Context, _ string, _ int) context.Context {
	return ctx
}
func (NoopGenerationHooks) OnUnitComplete(context.Context, string, int, time.Duration, error) {}
func (NoopGenerationHooks) OnJobComplete(context.Context, string, string, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	generationHooks GenerationHooks = NoopGenerationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any rendering.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetGenerationHooks registers custom generation hooks.
func SetGenerationHooks(h GenerationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Generation returns the registered generation hooks.
func Generation() GenerationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	generationHooks = NoopGenerationHooks{}
	cacheHooks = NoopCacheHooks{}
}
