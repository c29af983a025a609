package render

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
)

// Artifact is an encoded card render paired with the path it is persisted to.
// It is never modified after creation.
type Artifact struct {
	Card string
	PNG  []byte
	Path string
}

// Save writes the PNG to Path, creating parent directories.
func (a Artifact) Save() error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(a.Path), err)
	}
	if err := os.WriteFile(a.Path, a.PNG, 0644); err != nil {
		return fmt.Errorf("write %s: %w", a.Path, err)
	}
	return nil
}

// Image decodes the artifact.
func (a Artifact) Image() (*image.NRGBA, error) {
	return DecodePNG(a.PNG)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG decodes PNG bytes into an NRGBA image.
func DecodePNG(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// Namer assigns output paths of the form <dir>/rendered_<slug>.png. Cards
// with the same slug get _2, _3, ... suffixes in the order they are named.
// The zero value writes to the current directory.
type Namer struct {
	Dir  string
	seen map[string]int
}

// Next returns the path for the next card with the given name.
func (n *Namer) Next(name string) string {
	if n.seen == nil {
		n.seen = make(map[string]int)
	}
	slug := Slug(name)
	n.seen[slug]++
	if k := n.seen[slug]; k > 1 {
		slug = fmt.Sprintf("%s_%d", slug, k)
	}
	return filepath.Join(n.Dir, "rendered_"+slug+".png")
}

// Slug lower-cases name and replaces every run of characters other than
// letters and digits with a single underscore.
func Slug(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "card"
	}
	return b.String()
}
