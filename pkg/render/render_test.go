package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/cardforge/pkg/assets"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/fonts"
	"github.com/matzehuels/cardforge/pkg/template"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func testCompositor(t *testing.T, root string, opts ...Option) *Compositor {
	t.Helper()
	base := []Option{
		WithAssets(assets.New(root)),
		WithFonts(fonts.NewLoader(nil, fonts.WithoutSystemFonts())),
	}
	return New(append(base, opts...)...)
}

func solid(t *testing.T, path string, c color.NRGBA, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(imaging.New(w, h, c), path); err != nil {
		t.Fatal(err)
	}
}

func parse(t *testing.T, raw string) *template.Template {
	t.Helper()
	tmpl, err := template.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tmpl
}

func striker() card.Card {
	return card.New("Striker", card.TypeUnit, 2, "BF", &card.Stats{ATK: 3, DEF: 1, STB: 2})
}

func TestRenderDeterministic(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	tmpl := template.Default()

	first, err := c.Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := c.Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first.Image.Pix, second.Image.Pix) {
		t.Error("two renders of the same input differ")
	}
	if got := first.Image.Bounds().Size(); got != image.Pt(744, 1038) {
		t.Errorf("size = %v, want 744x1038", got)
	}
}

func TestRenderTransparentCanvas(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	res, err := c.Render(context.Background(), striker(), parse(t, `{"meta": {"width": 20, "height": 30, "background": "#ffffff"}, "items": {}}`))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, p := range []image.Point{{0, 0}, {19, 29}, {10, 15}} {
		if a := res.Image.NRGBAAt(p.X, p.Y).A; a != 0 {
			t.Errorf("pixel %v alpha = %d, want 0", p, a)
		}
	}
}

func TestRenderPaintOrder(t *testing.T) {
	root := t.TempDir()
	solid(t, filepath.Join(root, "red.png"), red, 4, 4)
	solid(t, filepath.Join(root, "green.png"), green, 4, 4)
	solid(t, filepath.Join(root, "blue.png"), blue, 4, 4)

	tmpl := parse(t, `{"meta": {"width": 40, "height": 40}, "items": {
		"a": {"type": "image", "src": "red.png",   "pos": {"x": 0, "y": 0}, "size": {"w": 10, "h": 10}, "z": 2},
		"b": {"type": "image", "src": "blue.png",  "pos": {"x": 0, "y": 0}, "size": {"w": 20, "h": 20}, "z": 1},
		"c": {"type": "image", "src": "green.png", "pos": {"x": 0, "y": 0}, "size": {"w": 10, "h": 10}, "z": 2}
	}}`)

	res, err := testCompositor(t, root).Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	tests := []struct {
		name string
		at   image.Point
		want color.NRGBA
	}{
		{"equal z: later declaration on top", image.Pt(5, 5), green},
		{"lower z visible where uncovered", image.Pt(15, 15), blue},
		{"outside all items", image.Pt(30, 30), color.NRGBA{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := res.Image.NRGBAAt(tt.at.X, tt.at.Y); got != tt.want {
				t.Errorf("pixel %v = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestRenderOpacity(t *testing.T) {
	root := t.TempDir()
	solid(t, filepath.Join(root, "red.png"), red, 2, 2)
	tmpl := parse(t, `{"meta": {"width": 10, "height": 10}, "items": {
		"a": {"type": "image", "src": "red.png", "pos": {"x": 0, "y": 0}, "size": {"w": 10, "h": 10}, "opacity": 0.5}
	}}`)
	res, err := testCompositor(t, root).Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	px := res.Image.NRGBAAt(5, 5)
	if px.A < 126 || px.A > 129 || px.R < 250 {
		t.Errorf("pixel = %v, want half-transparent red", px)
	}
}

func TestRenderArtworkAndFrame(t *testing.T) {
	root := t.TempDir()
	solid(t, filepath.Join(root, assets.FramePath), blue, 3, 3)
	solid(t, filepath.Join(root, "art", "striker.png"), red, 7, 3)

	tmpl := parse(t, `{"meta": {"width": 50, "height": 50}, "items": {
		"artwork": {"type": "image", "pos": {"x": 10, "y": 10}, "size": {"w": 20, "h": 20}, "z": 1}
	}}`)
	cd := striker()
	cd.ImagePath = "art/striker.png"

	res, err := testCompositor(t, root).Render(context.Background(), cd, tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
	if got := res.Image.NRGBAAt(1, 1); got != blue {
		t.Errorf("frame pixel = %v, want %v", got, blue)
	}
	// Non-uniform scale fills the whole declared box.
	for _, p := range []image.Point{{11, 11}, {28, 28}, {28, 11}} {
		if got := res.Image.NRGBAAt(p.X, p.Y); got != red {
			t.Errorf("art pixel %v = %v, want %v", p, got, red)
		}
	}
}

func TestRenderDegrades(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "broken.png"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	tmpl := parse(t, `{"meta": {"width": 50, "height": 50}, "items": {
		"artwork": {"type": "image", "pos": {"x": 0, "y": 0}, "size": {"w": 20, "h": 20}},
		"logo":    {"type": "image", "src": "missing.png", "pos": {"x": 0, "y": 0}, "size": {"w": 5, "h": 5}},
		"title":   {"type": "text", "pos": {"x": 0, "y": 0}, "font": {"family": "No Such Font", "size": 10}, "icon": "icons/none.png"}
	}}`)
	cd := striker()
	cd.ImagePath = "broken.png"

	res, err := testCompositor(t, root).Render(context.Background(), cd, tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// artwork, logo, font fallback, icon
	if len(res.Warnings) != 4 {
		t.Errorf("Warnings = %q, want 4 entries", res.Warnings)
	}
}

func TestRenderFatal(t *testing.T) {
	root := t.TempDir()
	fontDir := filepath.Join(root, "fonts")
	if err := os.MkdirAll(fontDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fontDir, "Bad.ttf"), []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(WithAssets(assets.New(root)), WithFonts(fonts.NewLoader([]string{fontDir}, fonts.WithoutSystemFonts())))

	tests := []struct {
		name     string
		tmpl     *template.Template
		resource string
	}{
		{"nil template", nil, "template"},
		{"unparseable font", parse(t, `{"meta": {"width": 5, "height": 5}, "items": {
			"title": {"type": "text", "pos": {"x": 0, "y": 0}, "font": {"family": "Bad", "size": 3}}}}`), filepath.Join(fontDir, "Bad.ttf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Render(context.Background(), striker(), tt.tmpl)
			rerr, ok := err.(*errors.RenderError)
			if !ok {
				t.Fatalf("error = %T (%v), want *RenderError", err, err)
			}
			if rerr.Resource != tt.resource {
				t.Errorf("Resource = %q, want %q", rerr.Resource, tt.resource)
			}
		})
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testCompositor(t, t.TempDir()).Render(ctx, striker(), template.Default())
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// opaqueIn counts non-transparent pixels inside r.
func opaqueIn(img *image.NRGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y).A > 0 {
				n++
			}
		}
	}
	return n
}

func TestRenderStatsOnlyForUnits(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	tmpl := template.Default()
	statArea := image.Rect(70, 735, 300, 860)

	unit, err := c.Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render(unit): %v", err)
	}
	tactic := card.New("Striker", card.TypeTactic, 2, "BF", nil)
	other, err := c.Render(context.Background(), tactic, tmpl)
	if err != nil {
		t.Fatalf("Render(tactic): %v", err)
	}

	if opaqueIn(unit.Image, statArea) == 0 {
		t.Error("unit card has no stat text")
	}
	if n := opaqueIn(other.Image, statArea); n != 0 {
		t.Errorf("tactic card has %d pixels in the stat area, want 0", n)
	}
	titleArea := image.Rect(55, 35, 400, 85)
	if opaqueIn(other.Image, titleArea) == 0 {
		t.Error("tactic card has no title text")
	}
}

func TestResolveText(t *testing.T) {
	c := testCompositor(t, t.TempDir(), WithLabeler(func(s string) string { return "<" + s + ">" }))
	r := &render{Compositor: c, card: striker()}
	r.card.Description = "Hits hard."

	item := func(key, bind string) template.Item {
		return template.Item{Key: key, Bind: bind, Kind: template.KindText, Text: &template.TextSpec{Text: "literal"}}
	}
	tests := []struct {
		item   template.Item
		want   string
		wantOK bool
	}{
		{item("title", ""), "Striker", true},
		{item("heading", "name"), "Striker", true},
		{item("description", ""), "Hits hard.", true},
		{item("cost", ""), "2", true},
		{item("cost_type", ""), "BF", true},
		{item("type", ""), "UNIT", true},
		{item("stat_atk", ""), "<atk> 3", true},
		{item("x", "stat_stb"), "<stb> 2", true},
		{item("stat_luck", ""), "", false},
		{item("flavor", ""), "literal", true},
	}
	for _, tt := range tests {
		t.Run(tt.item.Key+"/"+tt.item.Bind, func(t *testing.T) {
			got, _, ok := r.resolveText(tt.item)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("resolveText = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRenderBack(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	img, err := c.RenderBack("Iron Legion", "#7B1F1F", 200, 280)
	if err != nil {
		t.Fatalf("RenderBack: %v", err)
	}
	fill := color.NRGBA{R: 0x7B, G: 0x1F, B: 0x1F, A: 255}
	if got := img.NRGBAAt(2, 2); got != fill {
		t.Errorf("corner = %v, want %v", got, fill)
	}
	white := 0
	for y := 90; y < 190; y++ {
		for x := 50; x < 150; x++ {
			if img.NRGBAAt(x, y) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("no QR code modules found in the centre")
	}

	if _, err := c.RenderBack("x", "crimson", 10, 10); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad color code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#7B1F1F", color.NRGBA{0x7B, 0x1F, 0x1F, 255}, false},
		{"#00000080", color.NRGBA{0, 0, 0, 0x80}, false},
		{"7B1F1F", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNamer(t *testing.T) {
	n := Namer{Dir: "out"}
	got := []string{n.Next("Striker"), n.Next("Iron  Wall!"), n.Next("striker"), n.Next("???")}
	want := []string{
		filepath.Join("out", "rendered_striker.png"),
		filepath.Join("out", "rendered_iron_wall.png"),
		filepath.Join("out", "rendered_striker_2.png"),
		filepath.Join("out", "rendered_card.png"),
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Next #%d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestArtifactSave(t *testing.T) {
	img := imaging.New(3, 2, red)
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	a := Artifact{Card: "x", PNG: data, Path: filepath.Join(t.TempDir(), "nested", "x.png")}
	if err := a.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, err := os.ReadFile(a.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, data) {
		t.Error("saved bytes differ from the artifact")
	}
	back, err := a.Image()
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if !bytes.Equal(back.Pix, img.Pix) {
		t.Error("decoded pixels differ")
	}

	blocked := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocked, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := (Artifact{PNG: data, Path: filepath.Join(blocked, "x.png")}).Save(); err == nil {
		t.Error("Save under a regular file succeeded")
	}
}

// inkBounds returns the bounding box of all non-transparent pixels and the
// highest alpha among them.
func inkBounds(img *image.NRGBA) (image.Rectangle, uint8) {
	var box image.Rectangle
	var maxA uint8
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := img.NRGBAAt(x, y).A
			if a == 0 {
				continue
			}
			box = box.Union(image.Rect(x, y, x+1, y+1))
			maxA = max(maxA, a)
		}
	}
	return box, maxA
}

func TestRenderTextWrap(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	cd := striker()
	cd.Description = "Strikes twice at close range and holds the line until dawn"

	draw := func(item string) image.Rectangle {
		t.Helper()
		tmpl := parse(t, `{"meta": {"width": 800, "height": 300}, "items": {`+item+`}}`)
		res, err := c.Render(context.Background(), cd, tmpl)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		box, _ := inkBounds(res.Image)
		return box
	}
	single := draw(`"description": {"type": "text", "pos": {"x": 10, "y": 10}, "font": {"size": 16}}`)
	wrapped := draw(`"description": {"type": "text", "pos": {"x": 10, "y": 10}, "font": {"size": 16}, "text_width": 120}`)

	if single.Dx() <= 120 {
		t.Fatalf("unwrapped text is only %dpx wide", single.Dx())
	}
	if wrapped.Min.X < 9 || wrapped.Max.X > 10+120+1 {
		t.Errorf("wrapped text spans x %d..%d, want inside 10..130", wrapped.Min.X, wrapped.Max.X)
	}
	if wrapped.Dy() < 2*single.Dy() {
		t.Errorf("wrapped text is %dpx tall, single line %dpx; want several lines", wrapped.Dy(), single.Dy())
	}
}

func TestRenderTextOpacity(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	tests := []struct {
		name       string
		opacity    string
		minA, maxA uint8
	}{
		{"opaque", ``, 255, 255},
		{"half", `, "opacity": 0.5`, 120, 128},
		{"hidden", `, "opacity": 0`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := parse(t, `{"meta": {"width": 300, "height": 80}, "items": {
				"title": {"type": "text", "pos": {"x": 10, "y": 10}, "font": {"size": 40}, "color": "#FF0000"`+tt.opacity+`}
			}}`)
			res, err := c.Render(context.Background(), striker(), tmpl)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if _, a := inkBounds(res.Image); a < tt.minA || a > tt.maxA {
				t.Errorf("max glyph alpha = %d, want %d..%d", a, tt.minA, tt.maxA)
			}
		})
	}
}

func TestRenderTitleOnlyCard(t *testing.T) {
	c := testCompositor(t, t.TempDir())
	tmpl := parse(t, `{"meta": {"width": 744, "height": 1038}, "items": {
		"title": {"type": "text", "pos": {"x": 60, "y": 40}, "font": {"size": 32}, "color": "#FFD700"}
	}}`)
	res, err := c.Render(context.Background(), striker(), tmpl)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	box, _ := inkBounds(res.Image)
	if box.Empty() {
		t.Fatal("nothing drawn")
	}
	if box.Min.X < 59 || box.Min.X > 70 || box.Min.Y < 40 || box.Min.Y > 40+32 {
		t.Errorf("text starts at %v, want near (60, 40)", box.Min)
	}
	if !box.In(image.Rect(59, 40, 400, 40+64)) {
		t.Errorf("ink spans %v, want only the title line", box)
	}

	gold := color.NRGBA{R: 0xFF, G: 0xD7, A: 0xFF}
	found := false
	for y := box.Min.Y; y < box.Max.Y && !found; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if res.Image.NRGBAAt(x, y) == gold {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no glyph pixel has the declared colour")
	}
}
