package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several decks or
// installations can share one Redis without colliding:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "cardforge:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RenderKey generates a prefixed key for a rendered card.
func (k *ScopedKeyer) RenderKey(cardHash, templateHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(cardHash, templateHash, opts)
}

// SheetKey generates a prefixed key for a packed document.
func (k *ScopedKeyer) SheetKey(imageHashes []string, opts SheetKeyOpts) string {
	return k.prefix + k.inner.SheetKey(imageHashes, opts)
}
