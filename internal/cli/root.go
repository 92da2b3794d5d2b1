// Package cli provides the command-line interface for lexfix.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/lexfix/internal/cli/commands"
	"github.com/leapstack-labs/lexfix/internal/cli/config"
	"github.com/leapstack-labs/lexfix/pkg/fixup"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "lexfix",
		Short: "lexfix - project file integrity repair",
		Long: `lexfix repairs structural corruption in XML project files.

It rewrites a file in whole passes until nothing is left to repair: missing
or wrong owners, dangling references, orphaned objects, dead analysis links,
undefined custom fields, bad dates and broken homograph numbering. The
original is kept as a backup. The cycles command finds and breaks circular
complex-form references in a repaired file.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./lexfix.yaml)")
	pf.Int("max-passes", 0, "Maximum number of repair passes")
	pf.String("backup-suffix", "", "Suffix appended to the file name for the backup")
	pf.Int("progress-interval", 0, "Records between progress updates")
	pf.StringSlice("disable", nil, "Fixers to skip (comma-separated)")
	pf.String("state", "", "Path to run history database")
	pf.Bool("history", true, "Record runs in the history database")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("disable", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return fixup.Names(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewFixCommand())
	rootCmd.AddCommand(commands.NewCyclesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for lexfix.

To load completions:

Bash:
  $ source <(lexfix completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ lexfix completion bash > /etc/bash_completion.d/lexfix
  # macOS:
  $ lexfix completion bash > $(brew --prefix)/etc/bash_completion.d/lexfix

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ lexfix completion zsh > "${fpath[1]}/_lexfix"

Fish:
  $ lexfix completion fish | source

  # To load completions for each session, execute once:
  $ lexfix completion fish > ~/.config/fish/completions/lexfix.fish

PowerShell:
  PS> lexfix completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
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
