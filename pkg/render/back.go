package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
)

// RenderBack draws a card back: a solid fill in the deck colour with a QR
// code of the deck name centred on it and the name printed below. An empty
// colour uses [card.DefaultDeckColor]; an empty name leaves the back plain.
func (c *Compositor) RenderBack(deckName, hexColor string, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Render("card back", errors.Invalid(errors.ErrCodeInvalidInput, "size", "%dx%d", width, height))
	}
	if hexColor == "" {
		hexColor = card.DefaultDeckColor
	}
	fill, err := ParseHex(hexColor)
	if err != nil {
		return nil, errors.Invalid(errors.ErrCodeInvalidInput, "color", "%s", errors.UserMessage(err))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, xdraw.Src)
	if deckName == "" {
		return imaging.Clone(canvas), nil
	}

	q, err := qrcode.New(deckName, qrcode.Medium)
	if err != nil {
		return nil, errors.Render("card back QR code", err)
	}
	q.ForegroundColor = fill
	q.BackgroundColor = color.White

	side := min(width, height) / 2
	code := q.Image(side)
	cx, cy := width/2, height/2
	rect := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
	xdraw.NearestNeighbor.Scale(canvas, rect, code, code.Bounds(), xdraw.Over, nil)

	dc := gg.NewContextForRGBA(canvas)
	size := float64(width) * 0.08
	dc.SetFontFace(c.fonts.Builtin(size, true))
	dc.SetColor(color.White)
	labelY := float64(rect.Max.Y+height) / 2
	dc.DrawStringAnchored(deckName, float64(cx), labelY, 0.5, 0.5)

	return imaging.Clone(canvas), nil
}
