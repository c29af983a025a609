package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cardforge/pkg/cache"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/observability"
	"github.com/matzehuels/cardforge/pkg/render"
	"github.com/matzehuels/cardforge/pkg/template"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, compositor and logger - it
// doesn't store results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Compositor *render.Compositor
	Logger     *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If comp is nil, a Compositor without assets is used.
func NewRunner(c cache.Cache, keyer cache.Keyer, comp *render.Compositor, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if comp == nil {
		comp = render.New()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Compositor: comp,
		Logger:     logger,
	}
}

// cachedRender is the cache payload of one rendered card.
type cachedRender struct {
	PNG      []byte   `json:"png"`
	Warnings []string `json:"warnings,omitempty"`
}

// RenderCard renders one card to PNG, using the cache when possible. Invalid
// cards are rejected with a ValidationError before rendering.
func (r *Runner) RenderCard(ctx context.Context, c card.Card, opts Options) (*CardResult, error) {
	if err := opts.requireTemplate(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)
	return r.renderCard(ctx, c, opts, r.renderKey(c, opts))
}

func (r *Runner) renderCard(ctx context.Context, c card.Card, opts Options, key string) (*CardResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hooks := observability.Cache()
	if key != "" && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached cachedRender
			if err := json.Unmarshal(data, &cached); err == nil && len(cached.PNG) > 0 {
				hooks.OnCacheHit(ctx, cache.KeyTypeRender)
				return &CardResult{Card: c, PNG: cached.PNG, Warnings: cached.Warnings, CacheHit: true}, nil
			}
		} else if err != nil {
			opts.Logger.Debug("cache read failed", "card", c.Name, "err", err)
		}
		hooks.OnCacheMiss(ctx, cache.KeyTypeRender)
	}

	start := time.Now()
	pctx := observability.Pipeline().OnRenderStart(ctx, c.Name)
	res, err := r.Compositor.Render(pctx, c, opts.Template)
	var png []byte
	if err == nil {
		png, err = render.EncodePNG(res.Image)
		if err != nil {
			err = errors.Render(c.Name, err)
		}
	}
	warnings := 0
	if res != nil {
		warnings = len(res.Warnings)
	}
	observability.Pipeline().OnRenderComplete(pctx, c.Name, warnings, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if data, err := json.Marshal(cachedRender{PNG: png, Warnings: res.Warnings}); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err != nil {
				opts.Logger.Debug("cache write failed", "card", c.Name, "err", err)
			} else {
				hooks.OnCacheSet(ctx, cache.KeyTypeRender, len(data))
			}
		}
	}
	opts.Logger.Debug("rendered card", "card", c.Name, "warnings", warnings, "duration", time.Since(start))
	return &CardResult{Card: c, PNG: png, Warnings: res.Warnings}, nil
}

// RenderDeck renders cards concurrently, bounded by opts.Workers. A card that
// fails to render is recorded in its outcome and does not stop the others;
// the returned error is non-nil only when ctx is cancelled.
//
// With opts.OutDir set, each PNG is written to rendered_<slug>.png, names
// being assigned in input order.
func (r *Runner) RenderDeck(ctx context.Context, cards []card.Card, opts Options) (*DeckResult, error) {
	if err := opts.requireTemplate(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)
	start := time.Now()

	out := &DeckResult{Cards: make([]CardOutcome, len(cards))}
	namer := render.Namer{Dir: opts.OutDir}
	for i, c := range cards {
		out.Cards[i] = CardOutcome{Index: i, Card: c}
		if opts.OutDir != "" {
			out.Cards[i].Path = namer.Next(c.Name)
		}
	}
	if opts.OutDir != "" && len(cards) > 0 {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", opts.OutDir)
		}
	}

	templateHash := r.templateHash(opts.Template)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range cards {
		o := &out.Cards[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.renderCard(gctx, o.Card, opts, r.renderKeyWith(o.Card, templateHash, opts))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.Err = err
				o.Path = ""
				opts.Logger.Warn("card failed", "card", o.Card.Name, "err", errors.UserMessage(err))
				return nil
			}
			o.PNG, o.Warnings, o.CacheHit = res.PNG, res.Warnings, res.CacheHit
			if o.Path != "" {
				if err := (render.Artifact{Card: o.Card.Name, PNG: res.PNG, Path: o.Path}).Save(); err != nil {
					o.Err = errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", o.Path)
					o.Path = ""
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range out.Cards {
		switch {
		case o.Err != nil:
			out.Stats.Failed++
		default:
			out.Stats.Rendered++
			out.Stats.Warnings += len(o.Warnings)
			if o.CacheHit {
				out.Stats.CacheHits++
			}
		}
	}
	out.Stats.Duration = time.Since(start)
	opts.Logger.Info("rendered deck",
		"cards", len(cards),
		"failed", out.Stats.Failed,
		"cached", out.Stats.CacheHits,
		"duration", out.Stats.Duration.Round(time.Millisecond))
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) renderKey(c card.Card, opts Options) string {
	return r.renderKeyWith(c, r.templateHash(opts.Template), opts)
}

// renderKeyWith returns the cache key of c, or "" when c cannot be keyed.
func (r *Runner) renderKeyWith(c card.Card, templateHash string, opts Options) string {
	if templateHash == "" {
		return ""
	}
	cardHash, err := cache.HashJSON(struct {
		Card    card.Card
		Artwork string
	}{c, artworkStamp(r.Compositor, c.ImagePath)})
	if err != nil {
		return ""
	}
	return r.Keyer.RenderKey(cardHash, templateHash, cache.RenderKeyOpts{Assets: opts.AssetsKey, Locale: opts.Locale})
}

func (r *Runner) templateHash(t *template.Template) string {
	data, err := template.Marshal(t)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// artworkStamp stamps the card artwork file as resolved by the compositor.
func artworkStamp(comp *render.Compositor, path string) string {
	if path == "" {
		return ""
	}
	return cache.FileStamp(comp.ResolveAsset(path))
}
