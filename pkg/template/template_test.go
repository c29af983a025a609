package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/cardforge/pkg/errors"
)

const sample = `{
  "version": 2,
  "meta": {"width": 100, "height": 140, "dpi": 300, "theme": "dark"},
  "items": {
    "title": {"type": "text", "text": "Hi", "pos": {"x": 1, "y": 2, "anchor": "nw"},
              "font": {"family": "Serif", "size": 12, "italic": true}, "z": 3, "note": {"by": "ed"}},
    "art":   {"type": "image", "bind": "artwork", "pos": {"x": 0, "y": 0}, "size": {"w": 50, "h": 40, "fit": "fill"}, "z": 1},
    "badge": {"type": "text", "text": "B", "pos": {"x": 9, "y": 9}, "font": {"size": 8}, "z": 3, "opacity": 0.5}
  }
}`

func TestParse(t *testing.T) {
	tmpl, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if tmpl.Meta.Width != 100 || tmpl.Meta.Height != 140 {
		t.Errorf("meta = %dx%d, want 100x140", tmpl.Meta.Width, tmpl.Meta.Height)
	}
	var keys []string
	for _, it := range tmpl.Items {
		keys = append(keys, it.Key)
	}
	if diff := cmp.Diff([]string{"title", "art", "badge"}, keys); diff != "" {
		t.Errorf("item order mismatch (-want +got):\n%s", diff)
	}

	art, _ := tmpl.Item("art")
	if art.Kind != KindImage || art.Binding() != "artwork" || art.Image.Size.W != 50 {
		t.Errorf("art = %+v", art)
	}
	badge, _ := tmpl.Item("badge")
	if badge.Alpha() != 0.5 {
		t.Errorf("badge.Alpha() = %v, want 0.5", badge.Alpha())
	}
	title, _ := tmpl.Item("title")
	if title.Alpha() != 1 || title.Binding() != "title" {
		t.Errorf("title alpha/binding = %v/%q", title.Alpha(), title.Binding())
	}

	wantExtra := map[string]string{
		"root":       string(tmpl.Extra["version"]),
		"meta":       string(tmpl.Meta.Extra["theme"]),
		"item":       string(title.Extra["note"]),
		"font":       string(title.Text.Font.Extra["italic"]),
		"pos":        string(title.Pos.Extra["anchor"]),
		"size":       string(art.Image.Size.Extra["fit"]),
		"noteIsJSON": compact(t, title.Extra["note"]),
	}
	if diff := cmp.Diff(map[string]string{
		"root":       "2",
		"meta":       `"dark"`,
		"item":       `{"by": "ed"}`,
		"font":       "true",
		"pos":        `"nw"`,
		"size":       `"fill"`,
		"noteIsJSON": `{"by":"ed"}`,
	}, wantExtra); diff != "" {
		t.Errorf("extras mismatch (-want +got):\n%s", diff)
	}
}

func compact(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal extra: %v", err)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRoundTripPreservesUnknownKeys(t *testing.T) {
	first, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out1, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Parse(out1)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}
	out2, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out1) != string(out2) {
		t.Errorf("round trip not stable:\n%s\nvs\n%s", out1, out2)
	}
	for _, key := range []string{`"version"`, `"theme"`, `"anchor"`, `"italic"`, `"fit"`, `"note"`} {
		if !strings.Contains(string(out1), key) {
			t.Errorf("marshalled template lost %s", key)
		}
	}
	if strings.Index(string(out1), `"title"`) > strings.Index(string(out1), `"badge"`) {
		t.Error("item declaration order not preserved")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"malformed", `{"meta": `, ""},
		{"not an object", `[1, 2]`, ""},
		{"missing width", `{"meta": {"height": 10}, "items": {}}`, "meta.width"},
		{"zero height", `{"meta": {"width": 10, "height": 0}, "items": {}}`, "meta.height"},
		{"missing meta", `{"items": {}}`, "meta.width"},
		{"item without type", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"pos": {"x": 0, "y": 0}}}}`, "items.a.type"},
		{"unknown type", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "shape"}}}`, "items.a.type"},
		{"image without size", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "image"}}}`, "items.a.size"},
		{"text without font", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "text"}}}`, "items.a.font.size"},
		{"negative font", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "text", "font": {"size": -2}}}}`, "items.a.font.size"},
		{"duplicate key", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "text", "font": {"size": 2}}, "a": {"type": "text", "font": {"size": 2}}}}`, "items.a"},
		{"bad color", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "text", "font": {"size": 2}, "color": "red"}}}`, "items.a.color"},
		{"opacity out of range", `{"meta": {"width": 1, "height": 1}, "items": {"a": {"type": "text", "font": {"size": 2}, "opacity": 2}}}`, "items.a.opacity"},
		{"string width", `{"meta": {"width": "744", "height": 1}}`, "meta.width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			verr, ok := err.(*errors.ValidationError)
			if !ok {
				t.Fatalf("error = %T (%v), want *ValidationError", err, err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q (%v)", verr.Field, tt.field, err)
			}
			if !errors.Is(err, errors.ErrCodeInvalidTemplate) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidTemplate)
			}
		})
	}
}

func TestPaintOrder(t *testing.T) {
	tmpl, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got []string
	for _, it := range tmpl.PaintOrder() {
		got = append(got, it.Key)
	}
	// title and badge share z=3: declaration order breaks the tie.
	if diff := cmp.Diff([]string{"art", "title", "badge"}, got); diff != "" {
		t.Errorf("PaintOrder mismatch (-want +got):\n%s", diff)
	}
	if tmpl.Items[0].Key != "title" {
		t.Error("PaintOrder modified the template")
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d.Meta.Width != 744 || d.Meta.Height != 1038 {
		t.Errorf("canvas = %dx%d, want 744x1038", d.Meta.Width, d.Meta.Height)
	}
	var keys []string
	for _, it := range d.Items {
		keys = append(keys, it.Key)
	}
	want := []string{"artwork", "title", "type", "description", "cost", "cost_type", "stat_atk", "stat_def", "stat_stb"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("default template does not parse: %v", err)
	}
	if diff := cmp.Diff(d, back); diff != "" {
		t.Errorf("default round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s := Store{Dir: dir}

	names, err := s.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("List(empty) = %v, %v", names, err)
	}
	missing, err := List(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("List(missing dir) = %v, %v; want empty, nil", missing, err)
	}

	for _, name := range []string{"zeta", "alpha"} {
		if err := s.Save(name, Default()); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err = s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "broken", "zeta"}, names); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	if !s.Exists("alpha") || s.Exists("gamma") {
		t.Error("Exists reported wrong state")
	}
	if _, err := s.Load("alpha"); err != nil {
		t.Errorf("Load(alpha): %v", err)
	}
	if _, err := s.Load("gamma"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load(gamma) code = %v, want %v", errors.GetCode(err), errors.ErrCodeNotFound)
	}
	if _, err := s.Load("broken"); !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("Load(broken) code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidTemplate)
	}
	for _, bad := range []string{"../escape", "a/b", ".hidden", ""} {
		if err := s.Save(bad, Default()); err == nil {
			t.Errorf("Save(%q) succeeded, want error", bad)
		}
	}
}
