package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/pkg/errors"
	cardio "github.com/matzehuels/cardforge/pkg/io"
	"github.com/matzehuels/cardforge/pkg/pipeline"
)

// renderCommand creates the render command: card file to PNG images.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags  renderFlags
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "render <cards.csv|cards.json>",
		Short: "Render a card file to PNG images",
		Long: `Render every card in a CSV or JSON card file through a template.

Each card is written to rendered_<name>.png in the output directory. A card
that fails to render is reported and does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, _, err := cardio.LoadFile(args[0])
			if err != nil {
				return err
			}
			opts, err := c.pipelineOptions(flags)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = c.Config.Paths.Export
			}
			opts.OutDir = outDir

			runner := c.newRunner(cmd.Context(), flags.noCache)
			defer runner.Close()

			prog := newProgress(c.Logger)
			deck, err := runner.RenderDeck(cmd.Context(), cards, opts)
			if err != nil {
				return err
			}
			prog.deckDone(deck.Stats)

			printOutcomes(deck, c.verbose)
			for _, p := range deck.Paths() {
				printFile(p)
			}
			printDeckStats(deck.Stats)
			return failedErr(deck)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default from config)")
	return cmd
}

// exportCommand creates the export command: card file to a PDF.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags  renderFlags
		output string
		backs  bool
	)

	cmd := &cobra.Command{
		Use:   "export <cards.csv|cards.json>",
		Short: "Render a card file and pack it into a print-ready PDF",
		Long: `Render every card and lay the images out on PDF pages.

The sheet geometry comes from the [export] config section. The export fails
as a whole if any card fails to render. With --backs a matching card-back
PDF is written next to the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, deckColor, err := cardio.LoadFile(args[0])
			if err != nil {
				return err
			}
			opts, err := c.pipelineOptions(flags)
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(c.Config.Paths.Export, deckName(args[0])+".pdf")
			}
			if err := ensureDir(output); err != nil {
				return err
			}

			runner := c.newRunner(cmd.Context(), flags.noCache)
			defer runner.Close()

			spinner := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Exporting %d cards...", len(cards)))
			spinner.Start()
			var buf bytes.Buffer
			res, err := runner.Export(cmd.Context(), cards, opts, &buf)
			if err != nil {
				spinner.StopWithError("Export failed")
				if res != nil && res.Deck != nil {
					printOutcomes(res.Deck, c.verbose)
				}
				return err
			}
			spinner.SetMessage("Writing " + filepath.Base(output) + "...")
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				spinner.StopWithError("Export failed")
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", output)
			}
			spinner.StopWithSuccess(fmt.Sprintf("Exported %d cards on %d pages", len(cards), res.Pages))
			printFile(output)
			printDeckStats(res.Deck.Stats)

			if !backs {
				return nil
			}
			if deckColor == "" {
				deckColor = c.Config.Export.DeckColor
			}
			backsPath := strings.TrimSuffix(output, filepath.Ext(output)) + "_backs.pdf"
			pages, err := writeBacks(cmd, runner, pipeline.BacksOptions{
				Count:    len(cards),
				DeckName: deckName(args[0]),
				Color:    deckColor,
			}, opts, backsPath)
			if err != nil {
				return err
			}
			printSuccess("Card backs on %d pages", pages)
			printFile(backsPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default <export dir>/<deck>.pdf)")
	cmd.Flags().BoolVar(&backs, "backs", false, "also write a card-back PDF")
	return cmd
}

// packCommand creates the pack command: PNG files to a PDF.
func (c *CLI) packCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack <image.png>...",
		Short: "Pack existing PNG images into a PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = filepath.Join(c.Config.Paths.Export, "sheets.pdf")
			}
			if err := ensureDir(output); err != nil {
				return err
			}
			runner := c.newRunner(cmd.Context(), true)
			defer runner.Close()

			opts := pipeline.Options{Sheet: c.Config.Export.Sheet(), Logger: c.Logger}
			var buf bytes.Buffer
			pages, err := runner.PackFiles(cmd.Context(), args, opts, &buf)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", output)
			}
			printSuccess("Packed %d images on %d pages", len(args), pages)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default <export dir>/sheets.pdf)")
	return cmd
}

// backsCommand creates the backs command: a card-back PDF.
func (c *CLI) backsCommand() *cobra.Command {
	var (
		b        pipeline.BacksOptions
		output   string
		template string
	)

	cmd := &cobra.Command{
		Use:   "backs",
		Short: "Lay out card backs for duplex printing",
		Long: `Lay out --count copies of a card back on PDF pages.

Without --image the back is drawn in the deck colour with a QR code of the
deck name, at the template's canvas size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if b.Color == "" {
				b.Color = c.Config.Export.DeckColor
			}
			if b.DeckName == "" {
				b.DeckName = appName
			}
			if output == "" {
				output = filepath.Join(c.Config.Paths.Export, "backs.pdf")
			}
			opts, err := c.pipelineOptions(renderFlags{template: template})
			if err != nil {
				return err
			}
			if err := ensureDir(output); err != nil {
				return err
			}
			runner := c.newRunner(cmd.Context(), true)
			defer runner.Close()

			pages, err := writeBacks(cmd, runner, b, opts, output)
			if err != nil {
				return err
			}
			printSuccess("Laid out %d card backs on %d pages", b.Count, pages)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&b.Count, "count", "n", 9, "number of backs")
	cmd.Flags().StringVar(&b.Image, "image", "", "back artwork PNG")
	cmd.Flags().StringVar(&b.DeckName, "name", "", "deck name encoded in the QR code")
	cmd.Flags().StringVar(&b.Color, "color", "", "back colour as #RRGGBB (default from config)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "template giving the back size")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF (default <export dir>/backs.pdf)")
	return cmd
}

func writeBacks(cmd *cobra.Command, runner *pipeline.Runner, b pipeline.BacksOptions, opts pipeline.Options, path string) (int, error) {
	var buf bytes.Buffer
	pages, err := runner.ExportBacks(cmd.Context(), b, opts, &buf)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return pages, nil
}

// deckName derives a deck name from a card file path.
func deckName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// failedErr summarizes failed cards as one error for the exit status.
func failedErr(deck *pipeline.DeckResult) error {
	failed := deck.Failed()
	if len(failed) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeRender, "%d of %d cards failed", len(failed), len(deck.Cards))
}
