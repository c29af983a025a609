package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/pkg/card"
	"github.com/matzehuels/cardforge/pkg/i18n"
	cardio "github.com/matzehuels/cardforge/pkg/io"
)

// cardsCommand creates the card file command.
func (c *CLI) cardsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Inspect and convert card files",
	}

	cmd.AddCommand(c.cardsConvertCommand())
	cmd.AddCommand(c.cardsListCommand())

	return cmd
}

func (c *CLI) cardsConvertCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a card file between CSV and JSON",
		Long: `Convert a card file between CSV and JSON, chosen by file extension.

CSV has no deck colour; converting to JSON uses --color, or the config deck
colour when not given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, deckColor, err := cardio.LoadFile(args[0])
			if err != nil {
				return err
			}
			if color != "" {
				deckColor = color
			}
			if deckColor == "" {
				deckColor = c.Config.Export.DeckColor
			}
			if err := ensureDir(args[1]); err != nil {
				return err
			}
			if err := cardio.SaveFile(cards, deckColor, args[1]); err != nil {
				return err
			}
			printSuccess("Converted %d cards", len(cards))
			printFile(args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "deck colour as #RRGGBB")
	return cmd
}

func (c *CLI) cardsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <cards.csv|cards.json>",
		Short: "List the cards in a card file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, _, err := cardio.LoadFile(args[0])
			if err != nil {
				return err
			}
			tr := c.translator()
			deck := card.NewDeck(deckName(args[0]))
			for _, cd := range cards {
				deck.Add(cd)
				fmt.Println(StyleValue.Render(cd.Name) + " " + StyleDim.Render(describeCard(tr, cd)))
			}
			var counts []string
			for _, t := range card.Types {
				if n := deck.CountByType(t); n > 0 {
					counts = append(counts, fmt.Sprintf("%d %s", n, translateType(tr, t)))
				}
			}
			printDetail("%d cards: %s", deck.Count(), strings.Join(counts, ", "))
			return nil
		},
	}
}

func describeCard(tr *i18n.Translator, cd card.Card) string {
	cost := fmt.Sprintf("%d", cd.Cost)
	if cd.CostType != "" {
		costType := cd.CostType
		if tr != nil {
			costType = tr.TranslateCostType(cd.CostType)
		}
		cost += " " + costType
	}
	parts := []string{translateType(tr, cd.Type), cost}
	if cd.Stats != nil {
		var stats []string
		for _, name := range card.StatNames {
			v, _ := cd.Stats.Get(name)
			label := strings.ToUpper(name)
			if tr != nil {
				label = tr.StatLabel(name)
			}
			stats = append(stats, fmt.Sprintf("%s %d", label, v))
		}
		parts = append(parts, strings.Join(stats, " "))
	}
	return strings.Join(parts, " · ")
}

func translateType(tr *i18n.Translator, t card.Type) string {
	if tr == nil {
		return string(t)
	}
	return tr.TranslateCardType(string(t))
}

// localesCommand lists the available label languages.
func (c *CLI) localesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List available label languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			locales, err := i18n.Locales(c.Config.Paths.Locales)
			if err != nil {
				return err
			}
			if len(locales) == 0 {
				printInfo("No locale files in %s", c.Config.Paths.Locales)
				return nil
			}
			for _, l := range locales {
				line := fmt.Sprintf("%-6s %s", l.Code, l.DisplayName)
				if l.Code == c.Config.Locale {
					fmt.Println(StyleHighlight.Render("* " + line))
					continue
				}
				fmt.Println("  " + line)
			}
			return nil
		},
	}
}
