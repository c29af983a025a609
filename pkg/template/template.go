// Package template defines the declarative card layout model.
//
// A template is a JSON document with a "meta" section describing the canvas
// and an "items" object mapping unique item keys to positioned, z-ordered
// descriptors. Items are either images (artwork or a fixed asset) or text
// (literal or bound to a card field).
//
// The schema is open: keys this package does not recognize are kept in
// Extra bags at every level and written back verbatim, so a template edited
// by another tool survives a load/save cycle through cardforge.
//
// Declaration order of items is significant. It breaks ties between items
// with equal z, and it is preserved by [Parse] and [Marshal].
package template

import (
	"encoding/json"
	"sort"
)

// Kind discriminates the item variants.
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Extra holds unrecognized JSON members, keyed by member name.
type Extra map[string]json.RawMessage

// Template is a parsed card layout.
type Template struct {
	Meta  Meta
	Items []Item
	Extra Extra
}

// Meta describes the canvas. Grid and Snap are editor settings and do not
// affect rendering.
type Meta struct {
	Width      int
	Height     int
	DPI        int
	Background string
	Grid       int
	Snap       int
	Extra      Extra
}

type Point struct {
	X, Y  float64
	Extra Extra
}

type Size struct {
	W, H  float64
	Extra Extra
}

type Font struct {
	Family string
	Size   float64
	Bold   bool
	Extra  Extra
}

// Item is one positioned element of a template. Exactly one of Image and
// Text is set, matching Kind.
type Item struct {
	Key     string
	Kind    Kind
	Pos     Point
	Z       int
	Locked  bool
	Opacity *float64
	// Bind names the card field the item displays. When empty the item key
	// is used.
	Bind  string
	Image *ImageSpec
	Text  *TextSpec
	Extra Extra
}

type ImageSpec struct {
	Size Size
	// Src is an asset path drawn instead of card artwork.
	Src string
}

type TextSpec struct {
	Text      string
	Font      Font
	Color     string
	TextWidth *float64
	// Icon is an asset path drawn left of the text, sized to the font.
	Icon string
}

// Binding returns the card field this item is bound to.
func (it Item) Binding() string {
	if it.Bind != "" {
		return it.Bind
	}
	return it.Key
}

// Alpha returns the item opacity clamped to [0, 1], defaulting to 1.
func (it Item) Alpha() float64 {
	if it.Opacity == nil {
		return 1
	}
	switch a := *it.Opacity; {
	case a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}

// Item returns the item with the given key.
func (t *Template) Item(key string) (Item, bool) {
	for _, it := range t.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// PaintOrder returns the items sorted by ascending z. Items with equal z keep
// their declaration order. The template is not modified.
func (t *Template) PaintOrder() []Item {
	out := make([]Item, len(t.Items))
	copy(out, t.Items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}
