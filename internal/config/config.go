// Package config loads cardforge settings.
//
// Settings come from, in increasing precedence: built-in defaults, the TOML
// file at $XDG_CONFIG_HOME/cardforge/config.toml (or an explicit path), and
// CARDFORGE_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/pack"
)

// AI backends.
const (
	BackendPlaceholder = "placeholder"
	BackendCommand     = "command"
)

// Config is the complete configuration.
type Config struct {
	// Locale selects the UI and label language.
	Locale    string    `toml:"locale" env:"CARDFORGE_LOCALE"`
	Paths     Paths     `toml:"paths"`
	Render    Render    `toml:"render"`
	Export    Export    `toml:"export"`
	AI        AI        `toml:"ai"`
	Cache     Cache     `toml:"cache"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Paths locates the resource directories.
type Paths struct {
	Templates string `toml:"templates" env:"CARDFORGE_TEMPLATES_DIR"`
	Assets    string `toml:"assets" env:"CARDFORGE_ASSETS_DIR"`
	Locales   string `toml:"locales" env:"CARDFORGE_LOCALES_DIR"`
	Export    string `toml:"export" env:"CARDFORGE_EXPORT_DIR"`
	Models    string `toml:"models" env:"CARDFORGE_MODELS_DIR"`
}

// Render configures card rendering.
type Render struct {
	// Template is the name of the template in Paths.Templates.
	Template string `toml:"template" env:"CARDFORGE_TEMPLATE"`
	// Workers bounds concurrent renders; 0 picks a default.
	Workers int `toml:"workers" env:"CARDFORGE_RENDER_WORKERS"`
	// SystemFonts allows font lookup outside Paths.Assets.
	SystemFonts bool `toml:"system_fonts" env:"CARDFORGE_SYSTEM_FONTS"`
}

// Export is the sheet geometry in millimetres.
type Export struct {
	PageWidth  float64 `toml:"page_width" env:"CARDFORGE_PAGE_WIDTH"`
	PageHeight float64 `toml:"page_height" env:"CARDFORGE_PAGE_HEIGHT"`
	CardWidth  float64 `toml:"card_width" env:"CARDFORGE_CARD_WIDTH"`
	CardHeight float64 `toml:"card_height" env:"CARDFORGE_CARD_HEIGHT"`
	Margin     float64 `toml:"margin" env:"CARDFORGE_MARGIN"`
	// DeckColor fills generated card backs.
	DeckColor string `toml:"deck_color" env:"CARDFORGE_DECK_COLOR"`
}

// Sheet returns the packing geometry.
func (e Export) Sheet() pack.Sheet {
	return pack.Sheet{
		Width:      e.PageWidth,
		Height:     e.PageHeight,
		CellWidth:  e.CardWidth,
		CellHeight: e.CardHeight,
		Margin:     e.Margin,
	}
}

// AI configures artwork generation.
type AI struct {
	// Backend is "placeholder" or "command".
	Backend string `toml:"backend" env:"CARDFORGE_AI_BACKEND"`
	// Command and Args run the external generator; see generate.CommandBackend.
	Command string   `toml:"command" env:"CARDFORGE_AI_COMMAND"`
	Args    []string `toml:"args" env:"CARDFORGE_AI_ARGS" envSeparator:" "`
	// Model is the model directory name under Paths.Models, or a path.
	Model       string   `toml:"model" env:"CARDFORGE_AI_MODEL"`
	Width       int      `toml:"width" env:"CARDFORGE_AI_WIDTH"`
	Height      int      `toml:"height" env:"CARDFORGE_AI_HEIGHT"`
	Steps       int      `toml:"steps" env:"CARDFORGE_AI_STEPS"`
	UnitTimeout Duration `toml:"unit_timeout" env:"CARDFORGE_AI_UNIT_TIMEOUT"`
	Faction     string   `toml:"faction" env:"CARDFORGE_AI_FACTION"`
	Look        string   `toml:"look" env:"CARDFORGE_AI_LOOK"`
}

// ModelPath resolves Model against Paths.Models.
func (c *Config) ModelPath() string {
	if c.AI.Model == "" || filepath.IsAbs(c.AI.Model) {
		return c.AI.Model
	}
	return filepath.Join(c.Paths.Models, c.AI.Model)
}

// Cache configures the render cache.
type Cache struct {
	Enabled bool `toml:"enabled" env:"CARDFORGE_CACHE"`
	// Dir holds the file cache. Empty selects $XDG_CACHE_HOME/cardforge.
	Dir string `toml:"dir" env:"CARDFORGE_CACHE_DIR"`
	// RedisURL selects a shared Redis cache instead of the file cache.
	RedisURL string   `toml:"redis_url" env:"CARDFORGE_REDIS_URL"`
	TTL      Duration `toml:"ttl" env:"CARDFORGE_CACHE_TTL"`
}

// Telemetry configures tracing. Tracing is off without an endpoint.
type Telemetry struct {
	OTLPEndpoint string `toml:"otlp_endpoint" env:"CARDFORGE_OTLP_ENDPOINT"`
	ServiceName  string `toml:"service_name" env:"CARDFORGE_SERVICE_NAME"`
}

// Duration is a time.Duration written as "90s" or "5m" in TOML and env.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Locale: "uk",
		Paths: Paths{
			Templates: filepath.Join("resources", "templates"),
			Assets:    "resources",
			Locales:   filepath.Join("resources", "locales"),
			Export:    "export",
			Models:    "models",
		},
		Render: Render{
			Template:    "default",
			SystemFonts: true,
		},
		Export: Export{
			PageWidth:  210,
			PageHeight: 297,
			CardWidth:  70,
			CardHeight: 100,
			Margin:     10,
			DeckColor:  "#7B1F1F",
		},
		AI: AI{
			Backend: BackendPlaceholder,
			Model:   "RealVisXL (SDXL)",
			Width:   664,
			Height:  1040,
			Steps:   25,
		},
		Cache: Cache{
			Enabled: true,
			TTL:     Duration{30 * 24 * time.Hour},
		},
		Telemetry: Telemetry{
			ServiceName: "cardforge",
		},
	}
}

// XDGConfigHome returns XDG_CONFIG_HOME or its default.
func XDGConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// XDGCacheHome returns XDG_CACHE_HOME or its default.
func XDGCacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), "cache")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(XDGConfigHome(), "cardforge", "config.toml")
}

// CacheDir returns the file cache directory.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(XDGCacheHome(), "cardforge")
}

// Load reads the config file at path over the defaults, then applies the
// environment. An empty path selects DefaultPath; a missing file at the
// default path is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", path)
		}
	} else if explicit || !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	switch c.AI.Backend {
	case BackendPlaceholder:
	case BackendCommand:
		if c.AI.Command == "" {
			return errors.Invalid(errors.ErrCodeInvalidInput, "ai.command", "required for the command backend")
		}
	default:
		return errors.Invalid(errors.ErrCodeInvalidInput, "ai.backend", "unknown backend %q", c.AI.Backend)
	}
	if c.Render.Workers < 0 {
		return errors.Invalid(errors.ErrCodeInvalidInput, "render.workers", "must not be negative")
	}
	if c.AI.Width <= 0 || c.AI.Height <= 0 {
		return errors.Invalid(errors.ErrCodeInvalidInput, "ai.width", "image size %dx%d", c.AI.Width, c.AI.Height)
	}
	if c.Export.DeckColor != "" {
		if err := errors.ValidateHexColor(c.Export.DeckColor); err != nil {
			return errors.Invalid(errors.ErrCodeInvalidInput, "export.deck_color", "%s", errors.UserMessage(err))
		}
	}
	if _, _, _, err := c.Export.Sheet().Grid(); err != nil {
		return errors.Invalid(errors.ErrCodeInvalidInput, "export", "%s", errors.UserMessage(err))
	}
	return nil
}

// Write encodes c as TOML to path, creating parent directories. An existing
// file is not overwritten unless force is set.
func (c *Config) Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrCodeInvalidPath, "%s already exists", path)
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}
