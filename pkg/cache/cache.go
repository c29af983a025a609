// Package cache stores rendered cards and packed sheets by content hash.
//
// Keys are derived from everything that affects the output bytes: the card,
// the template, the asset and font fingerprints and the render options. A
// changed input therefore never hits a stale entry; TTLs only bound disk or
// memory use.
//
// Three backends are provided: [FileCache] for the CLI, [RedisCache] for a
// cache shared between machines, and [NullCache] to disable caching.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind.
const (
	TTLRender = 30 * 24 * time.Hour
	TTLSheet  = 7 * 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypeRender = "render"
	KeyTypeSheet  = "sheet"
)

// Cache is a byte store with per-entry expiry. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// RenderKeyOpts are the render inputs that are not part of the card or template.
type RenderKeyOpts struct {
	// Assets fingerprints the asset store (frame, icons, fonts).
	Assets string `json:"assets,omitempty"`
	// Locale is the locale used for stat labels.
	Locale string `json:"locale,omitempty"`
}

// SheetKeyOpts describe the sheet geometry of a packed document.
type SheetKeyOpts struct {
	Width      float64 `json:"w"`
	Height     float64 `json:"h"`
	CellWidth  float64 `json:"cw"`
	CellHeight float64 `json:"ch"`
	Margin     float64 `json:"m"`
}

// Keyer derives cache keys.
type Keyer interface {
	// RenderKey keys one rendered card PNG.
	RenderKey(cardHash, templateHash string, opts RenderKeyOpts) string
	// SheetKey keys a packed PDF built from images with the given hashes.
	SheetKey(imageHashes []string, opts SheetKeyOpts) string
}

// DefaultKeyer builds keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(cardHash, templateHash string, opts RenderKeyOpts) string {
	return hashKey(KeyTypeRender, cardHash, templateHash, opts)
}

// SheetKey implements Keyer.
func (DefaultKeyer) SheetKey(imageHashes []string, opts SheetKeyOpts) string {
	return hashKey(KeyTypeSheet, imageHashes, opts)
}
