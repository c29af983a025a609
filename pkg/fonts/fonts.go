// Package fonts resolves font families to TrueType faces for the compositor.
//
// A family is looked up, in order, as a file in each configured directory
// (Family-Bold.ttf, FamilyBold.ttf, Family.ttf, ...), then among the system
// fonts via go-findfont. A family may also be given as a path to a .ttf/.otf
// file. When nothing is found, or the file cannot be opened, the built-in Go
// fonts are used and the resolution carries a warning.
//
// Parsed fonts are cached per file, so a deck render parses each font once.
// Faces are not cached: a font.Face is not safe for concurrent use, and every
// render gets its own.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// BuiltinFamily names the fallback face in warnings and listings.
const BuiltinFamily = "Go"

var extensions = []string{".ttf", ".otf", ".TTF", ".OTF"}

// Resolved is the outcome of a face lookup.
type Resolved struct {
	Face font.Face
	// Path is the font file used, or "" for the built-in face.
	Path string
	// Warning is non-empty when the lookup degraded to the built-in face.
	Warning string
}

// Loader resolves and caches fonts. It is safe for concurrent use.
type Loader struct {
	dirs   []string
	system bool

	mu     sync.Mutex
	parsed map[string]*truetype.Font
}

// Option configures a Loader.
type Option func(*Loader)

// WithoutSystemFonts restricts lookup to the configured directories.
func WithoutSystemFonts() Option {
	return func(l *Loader) { l.system = false }
}

// NewLoader returns a Loader searching dirs in order before system fonts.
// Empty entries are ignored.
func NewLoader(dirs []string, opts ...Option) *Loader {
	l := &Loader{system: true, parsed: make(map[string]*truetype.Font)}
	for _, d := range dirs {
		if d != "" {
			l.dirs = append(l.dirs, d)
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Face returns a face for family at size pixels.
//
// Degraded lookups (family not found, file unreadable) return the built-in
// face with Resolved.Warning set and a nil error. A font file that exists but
// cannot be parsed is a *errors.RenderError naming the file.
func (l *Loader) Face(family string, size float64, bold bool) (Resolved, error) {
	path := l.find(family, bold)
	if path == "" {
		return l.builtin(size, bold, fmt.Sprintf("font %q not found, using built-in face", family))
	}

	f, err := l.load(path)
	if err != nil {
		if errors.Is(err, errors.ErrCodeRender) {
			return Resolved{}, err
		}
		return l.builtin(size, bold, fmt.Sprintf("font %q unreadable (%v), using built-in face", family, err))
	}
	return Resolved{Face: newFace(f, size), Path: path}, nil
}

// Builtin returns the built-in face without any lookup.
func (l *Loader) Builtin(size float64, bold bool) font.Face {
	r, _ := l.builtin(size, bold, "")
	return r.Face
}

func (l *Loader) builtin(size float64, bold bool, warning string) (Resolved, error) {
	key, data := "builtin:regular", goregular.TTF
	if bold {
		key, data = "builtin:bold", gobold.TTF
	}

	l.mu.Lock()
	f, ok := l.parsed[key]
	if !ok {
		var err error
		if f, err = truetype.Parse(data); err != nil {
			l.mu.Unlock()
			return Resolved{}, errors.Render(key, err)
		}
		l.parsed[key] = f
	}
	l.mu.Unlock()

	return Resolved{Face: newFace(f, size), Warning: warning}, nil
}

func (l *Loader) load(path string) (*truetype.Font, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.parsed[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, errors.Render(path, err)
	}
	l.parsed[path] = f
	return f, nil
}

// find returns the font file for family, or "" if there is none.
func (l *Loader) find(family string, bold bool) string {
	if family == "" {
		return ""
	}
	if isFontFile(family) {
		if _, err := os.Stat(family); err == nil {
			return family
		}
		for _, dir := range l.dirs {
			if p := filepath.Join(dir, family); exists(p) {
				return p
			}
		}
		return ""
	}

	names := candidates(family, bold)
	for _, dir := range l.dirs {
		for _, name := range names {
			if p := filepath.Join(dir, name); exists(p) {
				return p
			}
		}
	}
	if !l.system {
		return ""
	}
	for _, name := range names {
		if p, err := findfont.Find(name); err == nil {
			return p
		}
	}
	return ""
}

// candidates lists file names for family, bold variants first when bold.
func candidates(family string, bold bool) []string {
	compact := strings.ReplaceAll(family, " ", "")
	var stems []string
	if bold {
		stems = append(stems, compact+"-Bold", compact+"Bold", family+" Bold", compact+"-bold")
	}
	stems = append(stems, compact+"-Regular", compact, family, strings.ToLower(compact))

	var names []string
	seen := map[string]bool{}
	for _, stem := range stems {
		for _, ext := range extensions {
			if n := stem + ext; !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func isFontFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".ttf" || ext == ".otf"
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}
