package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardforge/pkg/i18n"
	"github.com/matzehuels/cardforge/pkg/template"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for cardforge.

Besides commands and flags, the scripts complete template names for
--template, --from and the template subcommands, and locale codes for
--locale, read from the directories in your config.

Load for the current shell:
  bash        $ source <(cardforge completion bash)
  zsh         $ source <(cardforge completion zsh)
  fish        $ cardforge completion fish | source
  powershell  PS> cardforge completion powershell | Out-String | Invoke-Expression

Install permanently by writing the script where your shell looks for
completions, e.g.:
  $ cardforge completion bash > ~/.local/share/bash-completion/completions/cardforge
  $ cardforge completion zsh > "${fpath[1]}/_cardforge"
  $ cardforge completion fish > ~/.config/fish/completions/cardforge.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions attaches dynamic completions to every command below
// root that takes a template or locale.
func (c *CLI) registerCompletions(root *cobra.Command) {
	_ = root.RegisterFlagCompletionFunc("locale", c.completeLocales)

	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		for _, name := range []string{"template", "from"} {
			if cmd.Flags().Lookup(name) != nil {
				_ = cmd.RegisterFlagCompletionFunc(name, c.completeTemplates)
			}
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(root)
}

// completeTemplates offers stored template names and the built-in default.
// Files stay completable for .json paths.
func (c *CLI) completeTemplates(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names, err := c.templateStore().List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	seen := map[string]bool{}
	var out []string
	for _, name := range append(names, template.DefaultName) {
		if !seen[name] && strings.HasPrefix(name, toComplete) {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveDefault
}

// completeLocales offers the locale codes found in the locales directory,
// described by their display names.
func (c *CLI) completeLocales(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	locales, err := i18n.Locales(c.Config.Paths.Locales)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, l := range locales {
		if strings.HasPrefix(l.Code, toComplete) {
			out = append(out, l.Code+"\t"+l.DisplayName)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
