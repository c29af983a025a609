package pipeline

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/matzehuels/cardforge/pkg/cache"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/observability"
	"github.com/matzehuels/cardforge/pkg/pack"
)

// Export renders cards and writes them to w as one PDF. If any card fails to
// render, the first failure is returned and nothing is written; the deck
// result is returned either way so callers can report every failure.
func (r *Runner) Export(ctx context.Context, cards []card.Card, opts Options, w io.Writer) (*ExportResult, error) {
	if err := opts.requireTemplate(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	deck, err := r.RenderDeck(ctx, cards, opts)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{Deck: deck}
	if failed := deck.Failed(); len(failed) > 0 {
		return result, failed[0].Err
	}

	images := make([][]byte, len(deck.Cards))
	hashes := make([]string, len(deck.Cards))
	for i, o := range deck.Cards {
		images[i] = o.PNG
		hashes[i] = cache.Hash(o.PNG)
	}
	key := r.Keyer.SheetKey(hashes, sheetKeyOpts(opts.Sheet))

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeSheet)
			pages, _ := pack.Layout(len(images), opts.Sheet)
			n, err := w.Write(data)
			if err != nil {
				return result, errors.Packing(-1, err)
			}
			result.Pages, result.Bytes, result.CacheHit = len(pages), n, true
			return result, nil
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeSheet)
	}

	sources := make([]pack.Source, len(images))
	for i, data := range images {
		sources[i] = pack.FromPNG(data)
	}
	var buf bytes.Buffer
	pages, err := r.pack(ctx, sources, opts, &buf)
	if err != nil {
		return result, err
	}

	if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLSheet); err == nil {
		observability.Cache().OnCacheSet(ctx, cache.KeyTypeSheet, buf.Len())
	}
	n, err := w.Write(buf.Bytes())
	if err != nil {
		return result, errors.Packing(-1, err)
	}
	result.Pages, result.Bytes = pages, n
	return result, nil
}

// PackFiles packs already rendered images from disk into one PDF.
func (r *Runner) PackFiles(ctx context.Context, paths []string, opts Options, w io.Writer) (int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return 0, err
	}
	r.applyLogger(&opts)
	sources := make([]pack.Source, len(paths))
	for i, p := range paths {
		sources[i] = pack.FromPath(p)
	}
	return r.pack(ctx, sources, opts, w)
}

// BacksOptions configures a card-back sheet.
type BacksOptions struct {
	// Count is the number of backs to lay out.
	Count int
	// Image is a back artwork file. Empty draws a QR back from DeckName and
	// Color at the template canvas size, which then requires opts.Template.
	Image    string
	DeckName string
	Color    string
}

// ExportBacks writes count copies of a card back to w as one PDF and returns
// the page count.
func (r *Runner) ExportBacks(ctx context.Context, b BacksOptions, opts Options, w io.Writer) (int, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return 0, err
	}
	r.applyLogger(&opts)
	if b.Count < 1 {
		return 0, errors.Invalid(errors.ErrCodeInvalidInput, "count", "must be at least 1, got %d", b.Count)
	}

	src := pack.FromPath(b.Image)
	if b.Image == "" {
		if err := opts.requireTemplate(); err != nil {
			return 0, err
		}
		back, err := r.Compositor.RenderBack(b.DeckName, b.Color, opts.Template.Meta.Width, opts.Template.Meta.Height)
		if err != nil {
			return 0, err
		}
		src = pack.FromImage(back)
	}

	start := time.Now()
	pctx := observability.Pipeline().OnPackStart(ctx, b.Count)
	doc, err := pack.PackBacks(pctx, src, b.Count, opts.Sheet)
	if err == nil {
		err = doc.WritePDF(w)
	}
	pages := 0
	if doc != nil {
		pages = len(doc.Pages)
	}
	observability.Pipeline().OnPackComplete(pctx, pages, time.Since(start), err)
	if err != nil {
		return 0, err
	}
	opts.Logger.Info("packed card backs", "count", b.Count, "pages", pages)
	return pages, nil
}

// pack lays out sources and writes the PDF, reporting to hooks and the log.
func (r *Runner) pack(ctx context.Context, sources []pack.Source, opts Options, w io.Writer) (int, error) {
	start := time.Now()
	pctx := observability.Pipeline().OnPackStart(ctx, len(sources))
	doc, err := pack.Pack(pctx, sources, opts.Sheet)
	if err == nil {
		err = doc.WritePDF(w)
	}
	pages := 0
	if doc != nil {
		pages = len(doc.Pages)
	}
	observability.Pipeline().OnPackComplete(pctx, pages, time.Since(start), err)
	if err != nil {
		return 0, err
	}
	opts.Logger.Info("packed sheets", "images", len(sources), "pages", pages, "duration", time.Since(start).Round(time.Millisecond))
	return pages, nil
}

func sheetKeyOpts(s pack.Sheet) cache.SheetKeyOpts {
	return cache.SheetKeyOpts{
		Width:      s.Width,
		Height:     s.Height,
		CellWidth:  s.CellWidth,
		CellHeight: s.CellHeight,
		Margin:     s.Margin,
	}
}
