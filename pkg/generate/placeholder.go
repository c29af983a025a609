package generate

import (
	"context"
	"crypto/sha256"
	"image"
	"image/color"
	"time"
)

// PlaceholderBackend paints a vertical two-colour gradient derived from the
// prompt and the image index. Output is deterministic.
type PlaceholderBackend struct {
	// Delay is slept before each image, to mimic a slow model.
	Delay time.Duration
}

// Generate implements Backend.
func (b PlaceholderBackend) Generate(ctx context.Context, req Request, shouldAbort func() bool) ([]image.Image, error) {
	var out []image.Image
	for i := 0; i < req.Count; i++ {
		if shouldAbort != nil && shouldAbort() {
			break
		}
		if b.Delay > 0 {
			t := time.NewTimer(b.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return out, ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, gradient(req, i))
	}
	return out, nil
}

func gradient(req Request, index int) image.Image {
	w, h := req.Width, req.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	sum := sha256.Sum256([]byte(req.Prompt))
	off := (index * 6) % (len(sum) - 6)
	top := color.NRGBA{R: sum[off], G: sum[off+1], B: sum[off+2], A: 255}
	bottom := color.NRGBA{R: sum[off+3], G: sum[off+4], B: sum[off+5], A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(h-1, 1))
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
