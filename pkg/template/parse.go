package template

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// Parse decodes and validates a template document.
//
// It fails with a *errors.ValidationError when the JSON is malformed, when
// meta.width or meta.height is missing or not positive, when an item lacks
// a known type, when an image item has no size, when a text item's font
// size is not positive, or when an item key appears twice.
func Parse(raw []byte) (*Template, error) {
	if !gjson.ValidBytes(raw) {
		return nil, invalid("", "malformed JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, invalid("", "template must be a JSON object")
	}

	t := &Template{}
	var err error
	root.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "meta":
			t.Meta, err = parseMeta(v)
		case "items":
			t.Items, err = parseItems(v)
		default:
			t.Extra = addExtra(t.Extra, k.String(), v)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}

	if t.Meta.Width <= 0 {
		return nil, invalid("meta.width", "must be a positive integer")
	}
	if t.Meta.Height <= 0 {
		return nil, invalid("meta.height", "must be a positive integer")
	}
	return t, nil
}

// UnmarshalJSON implements json.Unmarshaler using [Parse].
func (t *Template) UnmarshalJSON(b []byte) error {
	p, err := Parse(b)
	if err != nil {
		return err
	}
	*t = *p
	return nil
}

func parseMeta(v gjson.Result) (Meta, error) {
	var m Meta
	if !v.IsObject() {
		return m, invalid("meta", "must be an object")
	}
	var err error
	v.ForEach(func(k, v gjson.Result) bool {
		field := "meta." + k.String()
		switch k.String() {
		case "width":
			m.Width, err = integer(v, field)
		case "height":
			m.Height, err = integer(v, field)
		case "dpi":
			m.DPI, err = integer(v, field)
		case "grid":
			m.Grid, err = integer(v, field)
		case "snap":
			m.Snap, err = integer(v, field)
		case "background":
			if m.Background, err = str(v, field); err == nil && m.Background != "" {
				err = color(m.Background, field)
			}
		default:
			m.Extra = addExtra(m.Extra, k.String(), v)
		}
		return err == nil
	})
	return m, err
}

func parseItems(v gjson.Result) ([]Item, error) {
	if !v.IsObject() {
		return nil, invalid("items", "must be an object")
	}
	var (
		items []Item
		seen  = map[string]bool{}
		err   error
	)
	v.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if seen[key] {
			err = invalid("items."+key, "duplicate item key")
			return false
		}
		seen[key] = true
		var it Item
		it, err = parseItem(key, v)
		items = append(items, it)
		return err == nil
	})
	return items, err
}

type rawMember struct {
	key   string
	value gjson.Result
}

func parseItem(key string, v gjson.Result) (Item, error) {
	prefix := "items." + key
	it := Item{Key: key}
	if !v.IsObject() {
		return it, invalid(prefix, "must be an object")
	}

	var members []rawMember
	v.ForEach(func(k, v gjson.Result) bool {
		members = append(members, rawMember{k.String(), v})
		return true
	})

	typ := v.Get("type")
	if !typ.Exists() {
		return it, invalid(prefix+".type", "is required")
	}
	switch Kind(typ.String()) {
	case KindImage:
		it.Kind = KindImage
		it.Image = &ImageSpec{}
	case KindText:
		it.Kind = KindText
		it.Text = &TextSpec{}
	default:
		return it, invalid(prefix+".type", "must be %q or %q, got %s", KindImage, KindText, typ.Raw)
	}

	hasSize := false
	var err error
	for _, m := range members {
		field := prefix + "." + m.key
		switch {
		case m.key == "type":
		case m.key == "pos":
			it.Pos, err = parsePoint(m.value, field)
		case m.key == "z":
			it.Z, err = integer(m.value, field)
		case m.key == "locked":
			it.Locked, err = boolean(m.value, field)
		case m.key == "opacity":
			it.Opacity, err = optionalNumber(m.value, field)
			if err == nil && it.Opacity != nil && (*it.Opacity < 0 || *it.Opacity > 1) {
				err = invalid(field, "must be between 0 and 1")
			}
		case m.key == "bind":
			it.Bind, err = optionalStr(m.value, field)

		case it.Image != nil && m.key == "size":
			hasSize = true
			it.Image.Size, err = parseSize(m.value, field)
		case it.Image != nil && m.key == "src":
			it.Image.Src, err = optionalStr(m.value, field)

		case it.Text != nil && m.key == "text":
			it.Text.Text, err = optionalStr(m.value, field)
		case it.Text != nil && m.key == "font":
			it.Text.Font, err = parseFont(m.value, field)
		case it.Text != nil && m.key == "color":
			if it.Text.Color, err = optionalStr(m.value, field); err == nil && it.Text.Color != "" {
				err = color(it.Text.Color, field)
			}
		case it.Text != nil && m.key == "text_width":
			it.Text.TextWidth, err = optionalNumber(m.value, field)
			if err == nil && it.Text.TextWidth != nil && *it.Text.TextWidth <= 0 {
				err = invalid(field, "must be positive")
			}
		case it.Text != nil && m.key == "icon":
			it.Text.Icon, err = optionalStr(m.value, field)

		default:
			it.Extra = addExtra(it.Extra, m.key, m.value)
		}
		if err != nil {
			return it, err
		}
	}

	if it.Image != nil && !hasSize {
		return it, invalid(prefix+".size", "is required for image items")
	}
	if it.Text != nil && it.Text.Font.Size <= 0 {
		return it, invalid(prefix+".font.size", "must be positive")
	}
	return it, nil
}

func parsePoint(v gjson.Result, field string) (Point, error) {
	var p Point
	if !v.IsObject() {
		return p, invalid(field, "must be an object")
	}
	var err error
	v.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "x":
			p.X, err = number(v, field+".x")
		case "y":
			p.Y, err = number(v, field+".y")
		default:
			p.Extra = addExtra(p.Extra, k.String(), v)
		}
		return err == nil
	})
	return p, err
}

func parseSize(v gjson.Result, field string) (Size, error) {
	var s Size
	if !v.IsObject() {
		return s, invalid(field, "must be an object")
	}
	var err error
	v.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "w":
			s.W, err = number(v, field+".w")
		case "h":
			s.H, err = number(v, field+".h")
		default:
			s.Extra = addExtra(s.Extra, k.String(), v)
		}
		return err == nil
	})
	if err != nil {
		return s, err
	}
	if s.W <= 0 || s.H <= 0 {
		return s, invalid(field, "w and h must be positive")
	}
	return s, nil
}

func parseFont(v gjson.Result, field string) (Font, error) {
	var f Font
	if !v.IsObject() {
		return f, invalid(field, "must be an object")
	}
	var err error
	v.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "family":
			f.Family, err = optionalStr(v, field+".family")
		case "size":
			f.Size, err = number(v, field+".size")
		case "bold":
			f.Bold, err = boolean(v, field+".bold")
		default:
			f.Extra = addExtra(f.Extra, k.String(), v)
		}
		return err == nil
	})
	return f, err
}

func invalid(field, format string, args ...any) error {
	return errors.Invalid(errors.ErrCodeInvalidTemplate, field, format, args...)
}

func addExtra(e Extra, key string, v gjson.Result) Extra {
	if e == nil {
		e = Extra{}
	}
	e[key] = json.RawMessage(v.Raw)
	return e
}

func number(v gjson.Result, field string) (float64, error) {
	if v.Type != gjson.Number {
		return 0, invalid(field, "must be a number, got %s", describe(v))
	}
	return v.Float(), nil
}

func integer(v gjson.Result, field string) (int, error) {
	f, err := number(v, field)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, invalid(field, "must be an integer, got %s", v.Raw)
	}
	return int(f), nil
}

func optionalNumber(v gjson.Result, field string) (*float64, error) {
	if v.Type == gjson.Null {
		return nil, nil
	}
	f, err := number(v, field)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func str(v gjson.Result, field string) (string, error) {
	if v.Type != gjson.String {
		return "", invalid(field, "must be a string, got %s", describe(v))
	}
	return v.String(), nil
}

func optionalStr(v gjson.Result, field string) (string, error) {
	if v.Type == gjson.Null {
		return "", nil
	}
	return str(v, field)
}

func boolean(v gjson.Result, field string) (bool, error) {
	if !v.IsBool() {
		return false, invalid(field, "must be a boolean, got %s", describe(v))
	}
	return v.Bool(), nil
}

func color(s, field string) error {
	if err := errors.ValidateHexColor(s); err != nil {
		return invalid(field, "%s", errors.UserMessage(err))
	}
	return nil
}

func describe(v gjson.Result) string {
	switch {
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	case v.Type == gjson.Null:
		return "null"
	default:
		return v.Raw
	}
}
