package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/pkg/errors"
	"github.com/matzehuels/cardforge/pkg/template"
)

// templateCommand creates the template management command.
func (c *CLI) templateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Manage card layout templates",
	}

	cmd.AddCommand(c.templateListCommand())
	cmd.AddCommand(c.templateNewCommand())
	cmd.AddCommand(c.templateValidateCommand())
	cmd.AddCommand(c.templateShowCommand())

	return cmd
}

func (c *CLI) templateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates in the template directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.templateStore().List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No templates in %s", c.Config.Paths.Templates)
				printNextStep("Create one", appName+" template new <name>")
				return nil
			}
			for _, name := range names {
				if name == c.Config.Render.Template {
					fmt.Println(StyleHighlight.Render("* " + name))
					continue
				}
				fmt.Println("  " + name)
			}
			return nil
		},
	}
}

func (c *CLI) templateNewCommand() *cobra.Command {
	var (
		from  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a template from the built-in layout or an existing template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.templateStore()
			name := args[0]
			if err := errors.ValidateName(name); err != nil {
				return err
			}
			if store.Exists(name) && !force {
				return errors.New(errors.ErrCodeInvalidInput, "template %q already exists (use --force to replace it)", name)
			}
			tmpl := template.Default()
			if from != "" {
				var err error
				if tmpl, err = c.loadTemplate(from); err != nil {
					return err
				}
			}
			if err := store.Save(name, tmpl); err != nil {
				return err
			}
			printSuccess("Created template %s", StyleHighlight.Render(name))
			printDetail("%d items, %dx%d", len(tmpl.Items), tmpl.Meta.Width, tmpl.Meta.Height)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "template name or .json path to copy")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing template")
	return cmd
}

func (c *CLI) templateValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "validate <name|file.json>...",
		Short:             "Check templates for errors",
		ValidArgsFunction: c.completeTemplates,
		Args:              cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, ref := range args {
				tmpl, err := c.loadTemplate(ref)
				if err != nil {
					failed++
					printError("%s: %s", ref, errors.UserMessage(err))
					continue
				}
				printSuccess("%s: %d items, %dx%d", ref, len(tmpl.Items), tmpl.Meta.Width, tmpl.Meta.Height)
			}
			if failed > 0 {
				return errors.New(errors.ErrCodeInvalidTemplate, "%d of %d templates are invalid", failed, len(args))
			}
			return nil
		},
	}
}

func (c *CLI) templateShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "show <name|file.json>",
		Short:             "Print a template",
		ValidArgsFunction: c.completeTemplates,
		Args:              cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := c.loadTemplate(args[0])
			if err != nil {
				return err
			}
			if raw {
				data, err := template.Marshal(tmpl)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			printKeyValue("size", fmt.Sprintf("%dx%d", tmpl.Meta.Width, tmpl.Meta.Height))
			for _, it := range tmpl.PaintOrder() {
				printKeyValue(it.Key, fmt.Sprintf("%s at %s,%s z=%d", it.Kind, fmtCoord(it.Pos.X), fmtCoord(it.Pos.Y), it.Z))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the template JSON")
	return cmd
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
