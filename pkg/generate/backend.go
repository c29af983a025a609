package generate

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// Default image geometry and sampling steps.
const (
	DefaultWidth  = 664
	DefaultHeight = 1040
	DefaultSteps  = 25
)

// Request describes one generation call.
type Request struct {
	Prompt         string
	NegativePrompt string
	Count          int
	Width          int
	Height         int
	Steps          int
}

// Backend generates images. Implementations should call shouldAbort before
// each image and stop early, returning what they have, when it reports true.
type Backend interface {
	Generate(ctx context.Context, req Request, shouldAbort func() bool) ([]image.Image, error)
}

// Loader builds a backend for the model at path.
type Loader func(ctx context.Context, path string) (Backend, error)

// Model is a lazily loaded backend handle. It is safe for concurrent use;
// generations through one Model are serialized.
type Model struct {
	loader Loader

	mu      sync.Mutex
	path    string
	loaded  string
	backend Backend
}

// NewModel returns a handle that loads path with loader on first use.
func NewModel(loader Loader, path string) *Model {
	return &Model{loader: loader, path: path}
}

// SetPath switches to another model. The backend is rebuilt on the next call.
func (m *Model) SetPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
}

// Path returns the configured model path.
func (m *Model) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Loaded reports whether a backend for the current path is loaded.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend != nil && m.loaded == m.path
}

// Generate implements Backend, loading the model first if needed.
func (m *Model) Generate(ctx context.Context, req Request, shouldAbort func() bool) ([]image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend == nil || m.loaded != m.path {
		b, err := m.loader(ctx, m.path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeGeneration, err, "load model %s", m.path)
		}
		m.backend, m.loaded = b, m.path
	}
	return m.backend.Generate(ctx, req, shouldAbort)
}

// ModelInfo is a model directory found by [Discover].
type ModelInfo struct {
	Name string
	Path string
}

// Discover lists the model directories directly under dir, sorted by name.
// A missing dir yields no models.
func Discover(dir string) ([]ModelInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []ModelInfo
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, ModelInfo{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
