// Package i18n translates UI strings and card vocabulary from JSON locale files.
//
// A locale file is a flat JSON object mapping keys to strings, stored as
// <dir>/<locale>.json. Non-string members are kept but never used as
// translations; the "_meta" object may carry a "display_name":
//
//	{
//	    "_meta": {"display_name": "Українська"},
//	    "card_type.unit": "Юніт",
//	    "export.done": "Експортовано {count} карток"
//	}
//
// Missing keys translate to themselves, so an absent or partial locale never
// breaks the caller.
package i18n

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/text/language"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "uk"

const metaKey = "_meta"

// Locale describes one locale file.
type Locale struct {
	Code        string
	DisplayName string
}

// Translator looks up translations for one locale at a time. It is safe for
// concurrent use.
type Translator struct {
	dir string

	mu      sync.RWMutex
	locale  string
	strings map[string]string
	other   map[string]json.RawMessage
}

// New returns a Translator for dir with the locale best matching locale
// already loaded. A missing directory or locale file yields an empty table.
func New(dir, locale string) (*Translator, error) {
	t := &Translator{dir: dir}
	if err := t.SetLocale(locale); err != nil {
		return nil, err
	}
	return t, nil
}

// Locale returns the active locale code.
func (t *Translator) Locale() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locale
}

// SetLocale switches to the available locale best matching locale, e.g.
// "uk-UA" selects uk.json. When no file matches, the locale is set as given
// and every key translates to itself.
func (t *Translator) SetLocale(locale string) error {
	if locale == "" {
		locale = DefaultLocale
	}
	code := t.match(locale)

	table, other, err := readLocale(filepath.Join(t.dir, code+".json"))
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.locale, t.strings, t.other = code, table, other
	return nil
}

// match picks the locale file code closest to locale.
func (t *Translator) match(locale string) string {
	available, err := Locales(t.dir)
	if err != nil || len(available) == 0 {
		return locale
	}
	for _, l := range available {
		if l.Code == locale {
			return locale
		}
	}
	want, err := language.Parse(locale)
	if err != nil {
		return locale
	}

	var (
		tags  []language.Tag
		codes []string
	)
	for _, l := range available {
		tag, err := language.Parse(l.Code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, l.Code)
	}
	if len(tags) == 0 {
		return locale
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return locale
	}
	return codes[idx]
}

// Translate returns the translation of key, or key itself when there is none.
// Placeholders of the form {name} are replaced from args; if any placeholder
// has no argument the translation is returned unformatted.
func (t *Translator) Translate(key string, args map[string]string) string {
	t.mu.RLock()
	s, ok := t.strings[key]
	t.mu.RUnlock()
	if !ok {
		s = key
	}
	if len(args) == 0 {
		return s
	}
	if out, ok := format(s, args); ok {
		return out
	}
	return s
}

// lookup returns the translation of key and whether there is one.
func (t *Translator) lookup(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.strings[key]
	return s, ok
}

// TranslateCardType translates a card type, falling back to the raw value.
func (t *Translator) TranslateCardType(cardType string) string {
	return t.vocabulary("card_type.", cardType)
}

// TranslateStatName translates a stat name, falling back to the raw value.
func (t *Translator) TranslateStatName(stat string) string {
	return t.vocabulary("stat.", stat)
}

// TranslateCostType translates a cost type, falling back to the raw value.
func (t *Translator) TranslateCostType(costType string) string {
	return t.vocabulary("cost_type.", costType)
}

func (t *Translator) vocabulary(prefix, value string) string {
	if s, ok := t.lookup(prefix + value); ok {
		return s
	}
	return value
}

// StatLabel returns the label drawn before a stat value: the translated stat
// name, or the stat key in upper case when there is no translation.
func (t *Translator) StatLabel(stat string) string {
	if s, ok := t.lookup("stat." + stat); ok {
		return s
	}
	return strings.ToUpper(stat)
}

// Add sets the translation of key in the active locale.
func (t *Translator) Add(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.strings == nil {
		t.strings = make(map[string]string)
	}
	t.strings[key] = value
}

// Save writes the active locale back to its file, creating the directory.
func (t *Translator) Save() error {
	t.mu.RLock()
	doc := make(map[string]any, len(t.strings)+len(t.other))
	for k, v := range t.other {
		doc[k] = v
	}
	for k, v := range t.strings {
		doc[k] = v
	}
	path := filepath.Join(t.dir, t.locale+".json")
	t.mu.RUnlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode locale %s", t.locale)
	}
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", t.dir)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// Locales lists the locale files in dir, sorted by code. The display name
// comes from _meta.display_name and defaults to the code. A missing dir
// yields no locales.
func Locales(dir string) ([]Locale, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", dir)
	}

	var out []Locale
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		code := strings.TrimSuffix(name, ".json")
		l := Locale{Code: code, DisplayName: code}
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			if dn := gjson.GetBytes(data, metaKey+".display_name"); dn.Type == gjson.String && dn.Str != "" {
				l.DisplayName = dn.Str
			}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func readLocale(path string) (map[string]string, map[string]json.RawMessage, error) {
	table := make(map[string]string)
	other := make(map[string]json.RawMessage)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return table, other, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	if !gjson.ValidBytes(data) {
		return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "%s: malformed JSON", path)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "%s: locale must be a JSON object", path)
	}
	root.ForEach(func(k, v gjson.Result) bool {
		if v.Type == gjson.String {
			table[k.Str] = v.Str
		} else {
			other[k.Str] = json.RawMessage(v.Raw)
		}
		return true
	})
	return table, other, nil
}

// format replaces {name} placeholders from args. "{{" and "}}" are literal
// braces. ok is false when a placeholder has no argument or a brace is
// unbalanced.
func format(s string, args map[string]string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", false
			}
			v, ok := args[s[i+1:i+end]]
			if !ok {
				return "", false
			}
			b.WriteString(v)
			i += end
		case c == '}':
			return "", false
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
