package template

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Marshal encodes t as indented JSON. Item declaration order and all
// unrecognized members are preserved, so Parse(Marshal(t)) equals t.
func Marshal(t *Template) ([]byte, error) {
	compact, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "    "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (t *Template) MarshalJSON() ([]byte, error) {
	items := make(object, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, member{key: it.Key, val: it.object()})
	}
	root := object{
		{key: "meta", val: t.Meta.object()},
		{key: "items", val: items},
	}
	return withExtra(root, t.Extra).MarshalJSON()
}

func (m Meta) object() object {
	o := object{
		{key: "width", val: m.Width},
		{key: "height", val: m.Height},
	}
	if m.DPI != 0 {
		o = append(o, member{key: "dpi", val: m.DPI})
	}
	if m.Background != "" {
		o = append(o, member{key: "background", val: m.Background})
	}
	if m.Grid != 0 {
		o = append(o, member{key: "grid", val: m.Grid})
	}
	if m.Snap != 0 {
		o = append(o, member{key: "snap", val: m.Snap})
	}
	return withExtra(o, m.Extra)
}

func (it Item) object() object {
	o := object{{key: "type", val: string(it.Kind)}}
	if it.Text != nil && it.Text.Text != "" {
		o = append(o, member{key: "text", val: it.Text.Text})
	}
	if it.Bind != "" {
		o = append(o, member{key: "bind", val: it.Bind})
	}
	o = append(o, member{key: "pos", val: withExtra(object{{key: "x", val: it.Pos.X}, {key: "y", val: it.Pos.Y}}, it.Pos.Extra)})

	if it.Image != nil {
		size := object{{key: "w", val: it.Image.Size.W}, {key: "h", val: it.Image.Size.H}}
		o = append(o, member{key: "size", val: withExtra(size, it.Image.Size.Extra)})
		if it.Image.Src != "" {
			o = append(o, member{key: "src", val: it.Image.Src})
		}
	}
	if it.Text != nil {
		f := it.Text.Font
		font := object{}
		if f.Family != "" {
			font = append(font, member{key: "family", val: f.Family})
		}
		font = append(font, member{key: "size", val: f.Size})
		if f.Bold {
			font = append(font, member{key: "bold", val: true})
		}
		o = append(o, member{key: "font", val: withExtra(font, f.Extra)})
		if it.Text.Color != "" {
			o = append(o, member{key: "color", val: it.Text.Color})
		}
		if it.Text.TextWidth != nil {
			o = append(o, member{key: "text_width", val: *it.Text.TextWidth})
		}
		if it.Text.Icon != "" {
			o = append(o, member{key: "icon", val: it.Text.Icon})
		}
	}

	o = append(o, member{key: "z", val: it.Z})
	if it.Locked {
		o = append(o, member{key: "locked", val: true})
	}
	if it.Opacity != nil {
		o = append(o, member{key: "opacity", val: *it.Opacity})
	}
	return withExtra(o, it.Extra)
}

// object is a JSON object that encodes its members in slice order.
type object []member

type member struct {
	key string
	val any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(&buf, m.key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encode(&buf, m.val); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// withExtra appends the extra members sorted by key.
func withExtra(o object, extra Extra) object {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o = append(o, member{key: k, val: extra[k]})
	}
	return o
}
