// Package assets resolves and decodes the image assets used when rendering
// cards: artwork, the card frame and stat icons.
//
// Assets live under a root directory laid out as
//
//	<root>/frames/base_frame.png
//	<root>/icons/<name>.png
//	<root>/fonts/<Family>[-Bold].ttf
//
// Relative paths passed to [Store.ReadImage] are resolved against the root;
// absolute paths are used as given.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/cardforge/pkg/errors"
)

const (
	FramePath = "frames/base_frame.png"
	IconDir   = "icons"
	FontsDir  = "fonts"
)

// ErrNotFound is returned (wrapped) when an asset file does not exist.
var ErrNotFound = errors.New(errors.ErrCodeFileNotFound, "asset not found")

// Store reads assets from a root directory.
type Store struct {
	Root string
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{Root: dir}
}

// Resolve returns the filesystem path for an asset reference.
func (s *Store) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s == nil || s.Root == "" {
		return path
	}
	return filepath.Join(s.Root, path)
}

// Exists reports whether the referenced asset is a regular file.
func (s *Store) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(s.Resolve(path))
	return err == nil && info.Mode().IsRegular()
}

// ReadImage decodes the referenced image. EXIF orientation is applied.
// A missing file yields an error wrapping [ErrNotFound]; an undecodable one
// yields an INVALID_FORMAT error.
func (s *Store) ReadImage(path string) (image.Image, error) {
	full := s.Resolve(path)
	if !s.Exists(path) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, ErrNotFound, "%s", full)
	}
	img, err := imaging.Open(full, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", full)
	}
	return img, nil
}

// Frame returns the card frame image.
func (s *Store) Frame() (image.Image, error) {
	return s.ReadImage(FramePath)
}

// IconPath returns the asset reference of the named icon.
func IconPath(name string) string {
	return filepath.Join(IconDir, name+".png")
}

// FontDir returns the directory searched for font files, or "" for a
// store without a root.
func (s *Store) FontDir() string {
	if s == nil || s.Root == "" {
		return ""
	}
	return filepath.Join(s.Root, FontsDir)
}

// Fingerprint hashes the name, size and modification time of every file under
// the root. It changes whenever an asset is added, removed or replaced. A
// store without a root, or with a missing one, has the empty fingerprint.
func (s *Store) Fingerprint() (string, error) {
	if s == nil || s.Root == "" {
		return "", nil
	}
	h := sha256.New()
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(s.Root, path)
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "scan %s", s.Root)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
