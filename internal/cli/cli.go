package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/internal/config"
	"github.com/matzehuels/cardforge/internal/telemetry"
	"github.com/matzehuels/cardforge/pkg/assets"
	"github.com/matzehuels/cardforge/pkg/buildinfo"
	"github.com/matzehuels/cardforge/pkg/cache"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/fonts"
	"github.com/matzehuels/cardforge/pkg/i18n"
	"github.com/matzehuels/cardforge/pkg/pipeline"
	"github.com/matzehuels/cardforge/pkg/render"
	"github.com/matzehuels/cardforge/pkg/template"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "cardforge"

	// cacheKeyPrefix scopes cache keys so a shared Redis can hold other data.
	cacheKeyPrefix = "cardforge:v1:"

	// telemetryFlushTimeout bounds the span flush on exit.
	telemetryFlushTimeout = 5 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
	verbose    bool
	locale     string
	shutdown   func(context.Context) error
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Cardforge renders tabletop game cards and prints them as PDF sheets",
		Long: `Cardforge renders card definitions through JSON layout templates into PNG
images, packs them onto printable PDF sheets and generates card artwork.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.locale, "locale", "", "label language (overrides config)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.packCommand())
	root.AddCommand(c.backsCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.modelsCommand())
	root.AddCommand(c.templateCommand())
	root.AddCommand(c.cardsCommand())
	root.AddCommand(c.localesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// setup loads the configuration and starts tracing before any command runs.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	// config subcommands must work with a broken config file.
	if isConfigCommand(cmd) {
		return nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.locale != "" {
		cfg.Locale = c.locale
	}
	c.Config = cfg

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		c.Logger.Warn("tracing disabled", "err", err)
		return nil
	}
	c.shutdown = shutdown
	return nil
}

// Close flushes pending traces. It is safe to call more than once.
func (c *CLI) Close() error {
	if c.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := c.shutdown(ctx); err != nil {
		c.Logger.Debug("flush traces", "err", err)
	}
	c.shutdown = nil
	return nil
}

func isConfigCommand(cmd *cobra.Command) bool {
	for p := cmd; p != nil; p = p.Parent() {
		if p.Name() == "config" || p.Name() == "completion" {
			return true
		}
	}
	return false
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *pipeline.Runner {
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cacheKeyPrefix)
	return pipeline.NewRunner(c.newCache(ctx, noCache), keyer, c.newCompositor(), c.Logger)
}

// newCache selects Redis when configured and reachable, else the file cache.
// Cache failures degrade to no caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache || !c.Config.Cache.Enabled {
		return cache.NewNullCache()
	}
	ttl := c.Config.Cache.TTL.Duration
	if url := c.Config.Cache.RedisURL; url != "" {
		rc, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			c.Logger.Debug("using redis cache")
			return ttlCache{Cache: rc, max: ttl}
		}
		c.Logger.Warn("redis unavailable, using file cache", "err", err)
	}
	fc, err := cache.NewFileCache(c.Config.CacheDir())
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return ttlCache{Cache: fc, max: ttl}
}

// ttlCache caps entry lifetimes at the configured TTL.
type ttlCache struct {
	cache.Cache
	max time.Duration
}

func (c ttlCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c.max > 0 && (ttl <= 0 || ttl > c.max) {
		ttl = c.max
	}
	return c.Cache.Set(ctx, key, data, ttl)
}

// newCompositor wires the asset store, fonts and translated stat labels.
func (c *CLI) newCompositor() *render.Compositor {
	store := assets.New(c.Config.Paths.Assets)
	var fontOpts []fonts.Option
	if !c.Config.Render.SystemFonts {
		fontOpts = append(fontOpts, fonts.WithoutSystemFonts())
	}
	opts := []render.Option{
		render.WithAssets(store),
		render.WithFonts(fonts.NewLoader([]string{store.FontDir()}, fontOpts...)),
		render.WithLogger(c.Logger),
	}
	if tr := c.translator(); tr != nil {
		opts = append(opts, render.WithLabeler(tr.StatLabel))
	}
	return render.New(opts...)
}

// translator loads the configured locale. A broken locale file is logged and
// labels fall back to upper-case stat names.
func (c *CLI) translator() *i18n.Translator {
	tr, err := i18n.New(c.Config.Paths.Locales, c.Config.Locale)
	if err != nil {
		c.Logger.Warn("translations unavailable", "locale", c.Config.Locale, "err", errors.UserMessage(err))
		return nil
	}
	return tr
}

// =============================================================================
// Options Helpers
// =============================================================================

// renderFlags are the flags shared by commands that render cards.
type renderFlags struct {
	template string
	workers  int
	noCache  bool
	refresh  bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template name or .json path (default from config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "re-render even when cached")
}

// pipelineOptions builds pipeline options from the config and flags.
func (c *CLI) pipelineOptions(f renderFlags) (pipeline.Options, error) {
	name := f.template
	if name == "" {
		name = c.Config.Render.Template
	}
	tmpl, err := c.loadTemplate(name)
	if err != nil {
		return pipeline.Options{}, err
	}
	workers := f.workers
	if workers == 0 {
		workers = c.Config.Render.Workers
	}
	fingerprint, err := assets.New(c.Config.Paths.Assets).Fingerprint()
	if err != nil {
		c.Logger.Debug("asset fingerprint", "err", err)
	}
	return pipeline.Options{
		Template:  tmpl,
		Workers:   workers,
		Sheet:     c.Config.Export.Sheet(),
		Refresh:   f.refresh,
		AssetsKey: fingerprint,
		Locale:    c.Config.Locale,
		Logger:    c.Logger,
	}, nil
}

// loadTemplate resolves a template reference: a path to a .json file, a name
// in the template directory, or the built-in default layout.
func (c *CLI) loadTemplate(ref string) (*template.Template, error) {
	if strings.HasSuffix(ref, ".json") || strings.ContainsRune(ref, filepath.Separator) {
		return template.LoadFile(ref)
	}
	store := c.templateStore()
	if ref == template.DefaultName && !store.Exists(ref) {
		return template.Default(), nil
	}
	return store.Load(ref)
}

func (c *CLI) templateStore() template.Store {
	return template.Store{Dir: c.Config.Paths.Templates}
}

// ensureDir creates the parent directory of an output file.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	return nil
}
