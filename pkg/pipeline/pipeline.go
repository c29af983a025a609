// Package pipeline provides the render and export pipeline for cardforge.
//
// This package ties the compositor, the page packer and the cache together
// so that every command renders and exports cards the same way.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Render: composite each card onto its template (cached per card)
//  2. Pack: tile rendered cards onto sheets and write a PDF (cached per deck)
//
// Each stage can be run on its own or as part of [Runner.Export].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, compositor, logger)
//	opts := pipeline.Options{Template: tmpl, OutDir: "export"}
//	deck, err := runner.RenderDeck(ctx, cards, opts)
//	for _, failed := range deck.Failed() {
//	    logger.Warn("card failed", "card", failed.Card.Name, "err", failed.Err)
//	}
//
// Rendering a deck never fails because of one card: each outcome carries its
// own error. Exporting fails as a whole if any card cannot be rendered, since
// a PDF with silently missing cards is not printable.
package pipeline

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/pack"
	"github.com/matzehuels/cardforge/pkg/template"
)

// DefaultWorkers bounds concurrent card renders.
var DefaultWorkers = min(runtime.NumCPU(), 8)

// Options configures a pipeline run.
type Options struct {
	// Template is the card layout. It is required by every operation that
	// renders; packing existing images ignores it.
	Template *template.Template
	// OutDir receives rendered PNGs. Empty keeps them in memory only.
	OutDir string
	// Workers bounds concurrent renders. Zero selects DefaultWorkers.
	Workers int
	// Sheet is the packing geometry. The zero value selects pack.DefaultSheet().
	Sheet pack.Sheet
	// Refresh skips cache reads; results are still written to the cache.
	Refresh bool
	// AssetsKey fingerprints the asset store for cache keys.
	AssetsKey string
	// Locale is recorded in cache keys, since it changes stat labels.
	Locale string
	// Logger overrides the runner logger for this run.
	Logger *log.Logger
}

// ValidateAndSetDefaults fills zero fields and rejects an unusable sheet.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Workers < 0 {
		return errors.Invalid(errors.ErrCodeInvalidInput, "workers", "must not be negative, got %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Sheet == (pack.Sheet{}) {
		o.Sheet = pack.DefaultSheet()
	}
	if _, _, _, err := o.Sheet.Grid(); err != nil {
		return err
	}
	return nil
}

// requireTemplate reports a missing layout as a RenderError.
func (o *Options) requireTemplate() error {
	if o.Template == nil {
		return errors.Render("template", errors.New(errors.ErrCodeNotFound, "no template given"))
	}
	return nil
}

// CardResult is one rendered card.
type CardResult struct {
	Card     card.Card
	PNG      []byte
	Warnings []string
	CacheHit bool
}

// CardOutcome is the result of one card in a deck render.
type CardOutcome struct {
	Index    int
	Card     card.Card
	PNG      []byte
	Warnings []string
	CacheHit bool
	// Path is where the PNG was written, if OutDir was set.
	Path string
	Err  error
}

// Stats summarizes a deck render.
type Stats struct {
	Rendered  int
	Failed    int
	CacheHits int
	Warnings  int
	Duration  time.Duration
}

// DeckResult holds the outcome of every card, in input order.
type DeckResult struct {
	Cards []CardOutcome
	Stats Stats
}

// Failed returns the outcomes that carry an error.
func (r *DeckResult) Failed() []CardOutcome {
	var out []CardOutcome
	for _, c := range r.Cards {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Paths returns the written PNG paths of the successful cards.
func (r *DeckResult) Paths() []string {
	var out []string
	for _, c := range r.Cards {
		if c.Err == nil && c.Path != "" {
			out = append(out, c.Path)
		}
	}
	return out
}

// ExportResult describes a written PDF.
type ExportResult struct {
	Deck     *DeckResult
	Pages    int
	Bytes    int
	CacheHit bool
}
