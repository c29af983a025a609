package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/internal/config"
	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/generate"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	name    string
	typ     string
	count   int
	output  string
	model   string
	prompt  bool
	noTUI   bool
	faction string
	look    string
}

// generateCommand creates the generate command for card artwork.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{count: 1}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate artwork for a card",
		Long: `Generate artwork images for a card with the configured backend.

Images are saved one at a time as ai_<job>_<n>.png. In a terminal a progress
view is shown and pressing "a" stops the job after the current image; the
images produced so far are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := card.ParseType(opts.typ)
			if err != nil {
				return err
			}
			cd := card.New(opts.name, t, 0, "", nil)
			if err := cd.Validate(); err != nil {
				return err
			}
			style := c.style(opts)
			if opts.prompt {
				fmt.Println(generate.Prompt(cd, style))
				return nil
			}
			return c.runGenerate(cmd.Context(), cd, style, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "card name")
	cmd.Flags().StringVar(&opts.typ, "type", string(card.TypeUnit), "card type: unit, tactic, equipment, event, thematic")
	cmd.Flags().IntVarP(&opts.count, "count", "n", opts.count, "number of images")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default <export dir>/ai)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name or path (default from config)")
	cmd.Flags().BoolVar(&opts.prompt, "prompt", false, "print the prompt and exit")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "plain progress output even in a terminal")
	cmd.Flags().StringVar(&opts.faction, "faction", "", "faction woven into prompts (default from config)")
	cmd.Flags().StringVar(&opts.look, "look", "", "drawing style woven into prompts (default from config)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *CLI) style(opts generateOpts) generate.Style {
	s := generate.Style{Faction: c.Config.AI.Faction, Look: c.Config.AI.Look}
	if opts.faction != "" {
		s.Faction = opts.faction
	}
	if opts.look != "" {
		s.Look = opts.look
	}
	return s
}

func (c *CLI) runGenerate(ctx context.Context, cd card.Card, style generate.Style, opts generateOpts) error {
	if opts.output == "" {
		opts.output = filepath.Join(c.Config.Paths.Export, "ai")
	}
	modelPath := c.Config.ModelPath()
	if opts.model != "" {
		modelPath = opts.model
		if !filepath.IsAbs(modelPath) {
			modelPath = filepath.Join(c.Config.Paths.Models, modelPath)
		}
	}

	interactive := !opts.noTUI && isTerminal(os.Stdout)
	logger := loggerFromContext(ctx)
	if interactive {
		// The progress view owns the terminal.
		logger = log.New(io.Discard)
	}

	model := generate.NewModel(c.loader(), modelPath)
	orch := generate.NewOrchestrator(model, opts.output,
		generate.WithSize(c.Config.AI.Width, c.Config.AI.Height),
		generate.WithSteps(c.Config.AI.Steps),
		generate.WithStyle(style),
		generate.WithUnitTimeout(c.Config.AI.UnitTimeout.Duration),
		generate.WithLogger(logger),
	)

	job, err := orch.Start(ctx, cd, opts.count)
	if err != nil {
		return err
	}

	if interactive {
		if _, err := tea.NewProgram(NewJobModel(job), tea.WithContext(ctx)).Run(); err != nil {
			// The view failed or ctx ended; stop the job and report what it made.
			job.Abort()
		}
	} else {
		for ev := range job.Events() {
			if ev.Kind == generate.EventImage {
				printInfo("Image %d/%d", ev.Index+1, job.Count)
			}
		}
	}
	if err := job.Wait(context.WithoutCancel(ctx)); err != nil {
		reportJob(job)
		return err
	}
	reportJob(job)
	return ctx.Err()
}

// reportJob prints the outcome and the saved images of a finished job.
func reportJob(job *generate.Job) {
	results := job.Results()
	switch job.State() {
	case generate.StateCompleted:
		printSuccess("Generated %d images", len(results))
	case generate.StateAborted:
		printWarning("Aborted after %d of %d images", len(results), job.Count)
	case generate.StateFailed:
		printError("Generation failed after %d of %d images: %s", len(results), job.Count, errors.UserMessage(job.Err()))
	}
	for _, p := range results {
		printFile(p)
	}
}

// loader returns the backend loader for the configured backend.
func (c *CLI) loader() generate.Loader {
	switch c.Config.AI.Backend {
	case config.BackendCommand:
		return generate.CommandLoader(c.Config.AI.Command, c.Config.AI.Args)
	default:
		return func(context.Context, string) (generate.Backend, error) {
			return generate.PlaceholderBackend{}, nil
		}
	}
}

// modelsCommand lists the model directories available to the generator.
func (c *CLI) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List installed generation models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := generate.Discover(c.Config.Paths.Models)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "list models")
			}
			if len(models) == 0 {
				printInfo("No models in %s", c.Config.Paths.Models)
				return nil
			}
			current := c.Config.ModelPath()
			for _, m := range models {
				if m.Path == current {
					fmt.Println(StyleHighlight.Render("* " + m.Name))
					continue
				}
				fmt.Println("  " + m.Name)
			}
			return nil
		},
	}
}
