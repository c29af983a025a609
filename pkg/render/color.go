package render

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// ParseHex parses #RGB, #RRGGBB and #RRGGBBAA colour tokens.
func ParseHex(s string) (color.NRGBA, error) {
	if err := errors.ValidateHexColor(s); err != nil {
		return color.NRGBA{}, err
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid hex color: %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
