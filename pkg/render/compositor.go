package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/cardforge/pkg/assets"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/fonts"
	"github.com/matzehuels/cardforge/pkg/template"
)

const (
	bindArtwork = "artwork"
	statPrefix  = "stat_"
	lineSpacing = 1.2
)

// Labeler returns the display label of a stat, e.g. "ATK" for "atk".
type Labeler func(stat string) string

// Result is the output of a render.
type Result struct {
	Image *image.NRGBA
	// Warnings lists elements that were skipped or degraded.
	Warnings []string
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithAssets sets the asset store used for the frame, icons, image sources
// and relative artwork paths. Its fonts directory is searched first.
func WithAssets(s *assets.Store) Option { return func(c *Compositor) { c.assets = s } }

// WithFonts replaces the font loader.
func WithFonts(l *fonts.Loader) Option { return func(c *Compositor) { c.fonts = l } }

// WithLabeler sets how stat labels are displayed.
func WithLabeler(fn Labeler) Option { return func(c *Compositor) { c.labeler = fn } }

// WithLogger sets the logger receiving degradation warnings.
func WithLogger(l *log.Logger) Option { return func(c *Compositor) { c.logger = l } }

// Compositor renders cards. It holds no per-render state and is safe for
// concurrent use.
type Compositor struct {
	assets  *assets.Store
	fonts   *fonts.Loader
	labeler Labeler
	logger  *log.Logger
}

// New returns a Compositor. Without options it has no assets, searches system
// fonts, labels stats in upper case and discards log output.
func New(opts ...Option) *Compositor {
	c := &Compositor{}
	for _, opt := range opts {
		opt(c)
	}
	if c.assets == nil {
		c.assets = assets.New("")
	}
	if c.fonts == nil {
		c.fonts = fonts.NewLoader([]string{c.assets.FontDir()})
	}
	if c.labeler == nil {
		c.labeler = strings.ToUpper
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// ResolveAsset returns the filesystem path of an asset reference, as used
// for artwork and image items.
func (c *Compositor) ResolveAsset(path string) string {
	return c.assets.Resolve(path)
}

// render holds the state of one Render call.
type render struct {
	*Compositor
	card     card.Card
	canvas   *image.RGBA
	dc       *gg.Context
	warnings []string
}

func (r *render) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.logger.Warn(msg, "card", r.card.Name)
}

// Render composites c onto a new canvas sized by tmpl.Meta.
func (c *Compositor) Render(ctx context.Context, cd card.Card, tmpl *template.Template) (*Result, error) {
	if tmpl == nil {
		return nil, errors.Render("template", errors.New(errors.ErrCodeNotFound, "no template given"))
	}
	if tmpl.Meta.Width <= 0 || tmpl.Meta.Height <= 0 {
		return nil, errors.Render("template", errors.Invalid(errors.ErrCodeInvalidTemplate, "meta", "canvas %dx%d", tmpl.Meta.Width, tmpl.Meta.Height))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, tmpl.Meta.Width, tmpl.Meta.Height))
	r := &render{
		Compositor: c,
		card:       cd,
		canvas:     canvas,
		dc:         gg.NewContextForRGBA(canvas),
	}

	r.drawFrame()
	for _, it := range tmpl.PaintOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch it.Kind {
		case template.KindImage:
			r.drawImageItem(it)
		case template.KindText:
			err = r.drawTextItem(it)
		}
		if err != nil {
			return nil, err
		}
	}

	c.logger.Debug("rendered card", "card", cd.Name, "items", len(tmpl.Items), "warnings", len(r.warnings))
	return &Result{Image: imaging.Clone(canvas), Warnings: r.warnings}, nil
}

func (r *render) drawFrame() {
	if !r.assets.Exists(assets.FramePath) {
		return
	}
	frame, err := r.assets.Frame()
	if err != nil {
		r.warn("frame skipped: %v", err)
		return
	}
	b := r.canvas.Bounds()
	scaled := imaging.Resize(frame, b.Dx(), b.Dy(), imaging.Lanczos)
	composite(r.canvas, scaled, image.Point{}, 1)
}

func (r *render) drawImageItem(it template.Item) {
	var (
		img image.Image
		err error
	)
	switch {
	case it.Image.Src != "":
		img, err = r.assets.ReadImage(it.Image.Src)
		if err != nil {
			r.warn("item %s: asset skipped: %v", it.Key, err)
			return
		}
	case it.Binding() == bindArtwork:
		if r.card.ImagePath == "" {
			return
		}
		img, err = r.assets.ReadImage(r.card.ImagePath)
		if err != nil {
			r.warn("item %s: artwork skipped: %v", it.Key, err)
			return
		}
	default:
		r.logger.Debug("image item has no source", "item", it.Key)
		return
	}

	w := int(math.Round(it.Image.Size.W))
	h := int(math.Round(it.Image.Size.H))
	if w <= 0 || h <= 0 {
		return
	}
	scaled := imaging.Resize(img, w, h, imaging.Lanczos)
	composite(r.canvas, scaled, roundPoint(it.Pos.X, it.Pos.Y), it.Alpha())
}

func (r *render) drawTextItem(it template.Item) error {
	text, stat, ok := r.resolveText(it)
	if !ok || text == "" {
		return nil
	}
	ts := it.Text

	res, err := r.fonts.Face(ts.Font.Family, ts.Font.Size, ts.Font.Bold)
	if err != nil {
		return err
	}
	if res.Warning != "" {
		r.warn("item %s: %s", it.Key, res.Warning)
	}

	col := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if ts.Color != "" {
		if col, err = ParseHex(ts.Color); err != nil {
			r.warn("item %s: %v, using white", it.Key, err)
			col = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
	}
	col.A = uint8(math.Round(float64(col.A) * it.Alpha()))

	x, y := it.Pos.X, it.Pos.Y
	if icon := r.iconFor(it, stat); icon != nil {
		side := int(math.Round(ts.Font.Size))
		composite(r.canvas, imaging.Resize(icon, side, side, imaging.Lanczos), roundPoint(x, y), it.Alpha())
		x += ts.Font.Size * 4 / 3
	}

	r.dc.SetFontFace(res.Face)
	r.dc.SetColor(col)
	var lines []string
	if ts.TextWidth != nil {
		lines = r.dc.WordWrap(text, *ts.TextWidth)
	} else {
		lines = strings.Split(text, "\n")
	}
	step := r.dc.FontHeight() * lineSpacing
	for i, line := range lines {
		r.dc.DrawStringAnchored(line, x, y+float64(i)*step, 0, 1)
	}
	return nil
}

// resolveText returns the text an item shows. For stat items it also returns
// the stat name. ok is false when the item must be skipped.
func (r *render) resolveText(it template.Item) (text, stat string, ok bool) {
	c := r.card
	switch b := it.Binding(); {
	case b == "title" || b == "name":
		return c.Name, "", true
	case b == "description":
		return c.Description, "", true
	case b == "cost":
		return strconv.Itoa(c.Cost), "", true
	case b == "cost_type":
		return c.CostType, "", true
	case b == "type":
		return strings.ToUpper(string(c.Type)), "", true
	case strings.HasPrefix(b, statPrefix):
		if !c.IsUnit() || c.Stats == nil {
			return "", "", false
		}
		stat = strings.TrimPrefix(b, statPrefix)
		v, known := c.Stats.Get(stat)
		if !known {
			r.warn("item %s: unknown stat %q", it.Key, stat)
			return "", "", false
		}
		return r.labeler(stat) + " " + strconv.Itoa(v), stat, true
	default:
		return it.Text.Text, "", true
	}
}

// iconFor returns the icon drawn before a text item: the item's declared
// icon, or for stat items an icons/<stat>.png asset when one exists.
func (r *render) iconFor(it template.Item, stat string) image.Image {
	path := it.Text.Icon
	if path == "" {
		if stat == "" || !r.assets.Exists(assets.IconPath(stat)) {
			return nil
		}
		path = assets.IconPath(stat)
	}
	img, err := r.assets.ReadImage(path)
	if err != nil {
		r.warn("item %s: icon skipped: %v", it.Key, err)
		return nil
	}
	return img
}

// composite draws src over dst at the given point, scaling its alpha by alpha.
func composite(dst *image.RGBA, src image.Image, at image.Point, alpha float64) {
	sb := src.Bounds()
	rect := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	if alpha >= 1 {
		xdraw.Draw(dst, rect, src, sb.Min, xdraw.Over)
		return
	}
	if alpha <= 0 {
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})
	xdraw.DrawMask(dst, rect, src, sb.Min, mask, image.Point{}, xdraw.Over)
}

func roundPoint(x, y float64) image.Point {
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}
