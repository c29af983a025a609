package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ukJSON = `{
    "_meta": {"display_name": "Українська"},
    "card_type.unit": "Юніт",
    "stat.atk": "АТК",
    "cost_type.BF": "БП",
    "export.done": "Експортовано {count} карток у {path}",
    "braces": "{{literal}} {n}"
}`

const enJSON = `{"_meta": {"display_name": "English"}, "card_type.unit": "Unit"}`

func localeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{"uk.json": ukJSON, "en.json": enJSON, "notes.txt": "x"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestTranslate(t *testing.T) {
	tr, err := New(localeDir(t), "uk")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		key  string
		args map[string]string
		want string
	}{
		{"plain", "card_type.unit", nil, "Юніт"},
		{"missing key", "menu.file", nil, "menu.file"},
		{"args", "export.done", map[string]string{"count": "3", "path": "deck.pdf"}, "Експортовано 3 карток у deck.pdf"},
		{"missing arg", "export.done", map[string]string{"count": "3"}, "Експортовано {count} карток у {path}"},
		{"escaped braces", "braces", map[string]string{"n": "7"}, "{literal} 7"},
		{"meta is not a string", "_meta", nil, "_meta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Translate(tt.key, tt.args); got != tt.want {
				t.Errorf("Translate(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestVocabularyFallback(t *testing.T) {
	tr, err := New(localeDir(t), "uk")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"card type", tr.TranslateCardType, "unit", "Юніт"},
		{"card type fallback", tr.TranslateCardType, "tactic", "tactic"},
		{"stat", tr.TranslateStatName, "atk", "АТК"},
		{"stat fallback", tr.TranslateStatName, "move", "move"},
		{"cost type", tr.TranslateCostType, "BF", "БП"},
		{"cost type fallback", tr.TranslateCostType, "gold", "gold"},
		{"label", tr.StatLabel, "atk", "АТК"},
		{"label fallback", tr.StatLabel, "def", "DEF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetLocaleMatching(t *testing.T) {
	dir := localeDir(t)
	tests := []struct {
		requested string
		want      string
	}{
		{"uk", "uk"},
		{"uk-UA", "uk"},
		{"en-GB", "en"},
		{"", DefaultLocale},
		{"fr", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			tr, err := New(dir, tt.requested)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := tr.Locale(); got != tt.want {
				t.Errorf("Locale() = %q, want %q", got, tt.want)
			}
		})
	}

	tr, _ := New(dir, "fr")
	if got := tr.TranslateCardType("unit"); got != "unit" {
		t.Errorf("unknown locale translated %q", got)
	}
}

func TestLocales(t *testing.T) {
	got, err := Locales(localeDir(t))
	if err != nil {
		t.Fatalf("Locales: %v", err)
	}
	want := []Locale{{Code: "en", DisplayName: "English"}, {Code: "uk", DisplayName: "Українська"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locales mismatch (-want +got):\n%s", diff)
	}

	none, err := Locales(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(none) != 0 {
		t.Errorf("Locales(missing) = %v, %v", none, err)
	}
}

func TestAddSave(t *testing.T) {
	dir := localeDir(t)
	tr, err := New(dir, "uk")
	if err != nil {
		t.Fatal(err)
	}
	tr.Add("card_type.event", "Подія")
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := New(dir, "uk")
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.TranslateCardType("event"); got != "Подія" {
		t.Errorf("saved translation = %q", got)
	}
	locales, _ := Locales(dir)
	if locales[1].DisplayName != "Українська" {
		t.Errorf("Save dropped _meta: %+v", locales)
	}
}

func TestMalformedLocale(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "uk.json"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir, "uk"); err == nil {
		t.Error("New accepted a malformed locale file")
	}
}
