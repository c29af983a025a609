package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/cardforge/pkg/cache"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/fonts"
	"github.com/matzehuels/cardforge/pkg/pack"
	"github.com/matzehuels/cardforge/pkg/render"
	"github.com/matzehuels/cardforge/pkg/template"
)

// countingCache records hits and writes on top of a FileCache.
type countingCache struct {
	cache.Cache
	mu   sync.Mutex
	hits int
	sets int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if hit {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
	}
	return data, hit, err
}

func (c *countingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Cache.Set(ctx, key, data, ttl)
}

func newRunner(t *testing.T) (*Runner, *countingCache) {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cc := &countingCache{Cache: fc}
	comp := render.New(render.WithFonts(fonts.NewLoader(nil, fonts.WithoutSystemFonts())))
	return NewRunner(cc, nil, comp, nil), cc
}

func smallTemplate() *template.Template {
	return &template.Template{
		Meta: template.Meta{Width: 60, Height: 80},
		Items: []template.Item{
			{
				Key:  "title",
				Kind: template.KindText,
				Pos:  template.Point{X: 4, Y: 4},
				Text: &template.TextSpec{Font: template.Font{Size: 10}, Color: "#FFFFFF"},
			},
			{
				Key:  "stat_atk",
				Kind: template.KindText,
				Pos:  template.Point{X: 4, Y: 60},
				Text: &template.TextSpec{Font: template.Font{Size: 8}},
			},
		},
	}
}

func deck() []card.Card {
	return []card.Card{
		card.New("Striker", card.TypeUnit, 2, "BF", &card.Stats{ATK: 3}),
		card.New("Smoke Screen", card.TypeTactic, 1, "BF", nil),
		card.New("Striker", card.TypeUnit, 3, "BF", nil),
	}
}

func TestRenderCardCache(t *testing.T) {
	r, cc := newRunner(t)
	ctx := context.Background()
	c := deck()[0]
	opts := Options{Template: smallTemplate()}

	first, err := r.RenderCard(ctx, c, opts)
	if err != nil {
		t.Fatalf("RenderCard: %v", err)
	}
	if first.CacheHit {
		t.Error("first render reported a cache hit")
	}
	second, err := r.RenderCard(ctx, c, opts)
	if err != nil {
		t.Fatalf("RenderCard: %v", err)
	}
	if !second.CacheHit || !bytes.Equal(first.PNG, second.PNG) {
		t.Errorf("second render: hit=%v, identical=%v; want cached identical bytes", second.CacheHit, bytes.Equal(first.PNG, second.PNG))
	}

	refreshed, err := r.RenderCard(ctx, c, Options{Template: smallTemplate(), Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit || !bytes.Equal(first.PNG, refreshed.PNG) {
		t.Error("refresh must re-render to the same bytes")
	}

	changed := smallTemplate()
	changed.Items[0].Pos.X = 10
	moved, err := r.RenderCard(ctx, c, Options{Template: changed})
	if err != nil {
		t.Fatal(err)
	}
	if moved.CacheHit {
		t.Error("changed template hit the cache")
	}

	relabelled, err := r.RenderCard(ctx, c, Options{Template: smallTemplate(), Locale: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if relabelled.CacheHit {
		t.Error("changed locale hit the cache")
	}
	if cc.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cc.hits)
	}
}

func TestRenderCardRejectsInvalid(t *testing.T) {
	r, _ := newRunner(t)
	bad := card.Card{Name: "Broken", Type: "spell"}
	if _, err := r.RenderCard(context.Background(), bad, Options{Template: smallTemplate()}); !errors.Is(err, errors.ErrCodeInvalidCard) {
		t.Errorf("RenderCard(invalid) error = %v, want INVALID_CARD", err)
	}
}

func TestRenderDeck(t *testing.T) {
	r, _ := newRunner(t)
	dir := filepath.Join(t.TempDir(), "export")
	cards := append(deck(), card.Card{Name: "Negative", Type: card.TypeEvent, Cost: -1})

	res, err := r.RenderDeck(context.Background(), cards, Options{Template: smallTemplate(), OutDir: dir, Workers: 2})
	if err != nil {
		t.Fatalf("RenderDeck: %v", err)
	}

	want := []string{
		filepath.Join(dir, "rendered_striker.png"),
		filepath.Join(dir, "rendered_smoke_screen.png"),
		filepath.Join(dir, "rendered_striker_2.png"),
	}
	if diff := cmp.Diff(want, res.Paths()); diff != "" {
		t.Errorf("Paths mismatch (-want +got):\n%s", diff)
	}
	for _, p := range want {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	failed := res.Failed()
	if len(failed) != 1 || failed[0].Index != 3 || !errors.Is(failed[0].Err, errors.ErrCodeInvalidCard) {
		t.Fatalf("Failed() = %+v, want the negative-cost card", failed)
	}
	if failed[0].Path != "" {
		t.Errorf("failed card has path %q", failed[0].Path)
	}
	if res.Stats.Rendered != 3 || res.Stats.Failed != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}

	again, err := r.RenderDeck(context.Background(), deck(), Options{Template: smallTemplate()})
	if err != nil {
		t.Fatal(err)
	}
	if again.Stats.CacheHits != 3 {
		t.Errorf("second deck render cache hits = %d, want 3", again.Stats.CacheHits)
	}
	if len(again.Paths()) != 0 {
		t.Error("in-memory render wrote files")
	}
}

func TestRenderDeckCancelled(t *testing.T) {
	r, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderDeck(ctx, deck(), Options{Template: smallTemplate()}); err == nil {
		t.Error("RenderDeck ignored a cancelled context")
	}
}

func countPages(pdf []byte) int {
	s := string(pdf)
	return strings.Count(s, "/Type /Page") - strings.Count(s, "/Type /Pages")
}

func TestExport(t *testing.T) {
	r, _ := newRunner(t)
	ctx := context.Background()
	sheet := pack.Sheet{Width: 160, Height: 220, CellWidth: 70, CellHeight: 100, Margin: 10}
	opts := Options{Template: smallTemplate(), Sheet: sheet}

	var cards []card.Card
	for i := 0; i < 5; i++ {
		cards = append(cards, card.New(strings.Repeat("x", i+1), card.TypeEquipment, i, "BF", nil))
	}

	var buf bytes.Buffer
	res, err := r.Export(ctx, cards, opts, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Pages != 2 || countPages(buf.Bytes()) != 2 {
		t.Errorf("pages = %d (pdf %d), want 2", res.Pages, countPages(buf.Bytes()))
	}
	if res.CacheHit || res.Bytes != buf.Len() {
		t.Errorf("result = %+v", res)
	}

	var again bytes.Buffer
	res, err = r.Export(ctx, cards, opts, &again)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit || !bytes.Equal(buf.Bytes(), again.Bytes()) || res.Pages != 2 {
		t.Errorf("second export: hit=%v pages=%d identical=%v", res.CacheHit, res.Pages, bytes.Equal(buf.Bytes(), again.Bytes()))
	}

	var failed bytes.Buffer
	broken := append(cards, card.Card{Name: "Bad", Type: "nope"})
	res, err = r.Export(ctx, broken, opts, &failed)
	if !errors.Is(err, errors.ErrCodeInvalidCard) {
		t.Errorf("Export with bad card error = %v", err)
	}
	if res == nil || len(res.Deck.Failed()) != 1 || failed.Len() != 0 {
		t.Error("failed export must report the card and write nothing")
	}

	if _, err := r.Export(ctx, nil, opts, &failed); !errors.Is(err, errors.ErrCodePacking) {
		t.Errorf("Export(no cards) error = %v, want PACKING_FAILED", err)
	}
}

func TestPackFilesAndBacks(t *testing.T) {
	r, _ := newRunner(t)
	ctx := context.Background()
	dir := t.TempDir()

	res, err := r.RenderDeck(ctx, deck(), Options{Template: smallTemplate(), OutDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	pages, err := r.PackFiles(ctx, res.Paths(), Options{}, &buf)
	if err != nil || pages != 1 || countPages(buf.Bytes()) != 1 {
		t.Errorf("PackFiles = %d pages, %v", pages, err)
	}

	buf.Reset()
	pages, err = r.ExportBacks(ctx, BacksOptions{Count: 9, DeckName: "Volia", Color: "#224488"}, Options{Template: smallTemplate()}, &buf)
	if err != nil || pages != 3 {
		t.Errorf("ExportBacks = %d pages, %v; want 3", pages, err)
	}

	if _, err := r.ExportBacks(ctx, BacksOptions{Count: 0}, Options{}, &buf); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ExportBacks(count=0) error = %v", err)
	}
	if _, err := r.ExportBacks(ctx, BacksOptions{Count: 1, Color: "red"}, Options{Template: smallTemplate()}, &buf); err == nil {
		t.Error("ExportBacks accepted an invalid colour")
	}
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Template != nil || opts.Workers != DefaultWorkers || opts.Sheet != pack.DefaultSheet() {
		t.Errorf("defaults not applied: %+v", opts)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"negative workers", Options{Workers: -1}},
		{"sheet too small", Options{Sheet: pack.Sheet{Width: 10, Height: 10, CellWidth: 70, CellHeight: 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMissingTemplate(t *testing.T) {
	r, _ := newRunner(t)
	ctx := context.Background()
	striker := card.New("Striker", card.TypeUnit, 1, "BF", nil)
	var buf bytes.Buffer

	tests := []struct {
		name string
		run  func() error
	}{
		{"RenderCard", func() error {
			_, err := r.RenderCard(ctx, striker, Options{})
			return err
		}},
		{"RenderDeck", func() error {
			_, err := r.RenderDeck(ctx, deck(), Options{OutDir: t.TempDir()})
			return err
		}},
		{"Export", func() error {
			_, err := r.Export(ctx, deck(), Options{}, &buf)
			return err
		}},
		{"ExportBacks", func() error {
			_, err := r.ExportBacks(ctx, BacksOptions{Count: 2, DeckName: "Volia", Color: "#224488"}, Options{}, &buf)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, errors.ErrCodeRender) {
				t.Fatalf("error = %v, want RENDER_FAILED", err)
			}
			if re, ok := err.(*errors.RenderError); !ok || re.Resource != "template" {
				t.Errorf("error %v does not name the template", err)
			}
		})
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes written without a template", buf.Len())
	}
}
