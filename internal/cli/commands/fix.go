package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/lexfix/internal/cli/output"
	"github.com/leapstack-labs/lexfix/internal/state"
	"github.com/leapstack-labs/lexfix/pkg/fixup"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// FixOptions holds options for the fix command.
type FixOptions struct {
	DryRun     bool
	ReportPath string
}

// FixReport is the outcome of a fix run, as rendered and written by --report.
type FixReport struct {
	File     string     `json:"file" yaml:"file"`
	RunID    string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DryRun   bool       `json:"dry_run" yaml:"dry_run"`
	Status   string     `json:"status" yaml:"status"`
	Passes   int        `json:"passes" yaml:"passes"`
	Fixed    int        `json:"fixed" yaml:"fixed"`
	Warnings int        `json:"warnings" yaml:"warnings"`
	Replaced bool       `json:"replaced" yaml:"replaced"`
	Backup   string     `json:"backup,omitempty" yaml:"backup,omitempty"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
	Entries  []LogEntry `json:"entries" yaml:"entries"`
}

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	opts := &FixOptions{}

	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Repair structural corruption in a project file",
		Long: `Repair a project file in place.

The file is rewritten in full passes until a pass finds nothing to repair.
Each pass rebuilds the identity and ownership indices, then runs the fixers
in order: original, morph-bundle, custom-field, homograph.

When repairs were made the original is kept next to the file with the
backup suffix (default .bak). A file that needs no repair is left untouched,
and so is a file whose repairs do not settle within max_passes.`,
		Example: `  # Repair a project
  lexfix fix Sena.fwdata

  # Show what would be repaired without touching the file
  lexfix fix Sena.fwdata --dry-run

  # Write the repair log to a YAML file
  lexfix fix Sena.fwdata --report repair.yaml

  # Skip homograph renumbering
  lexfix fix Sena.fwdata --disable homograph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Run all passes without replacing the file")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write the repair log to a YAML file")

	return cmd
}

func runFix(cmd *cobra.Command, path string, opts *FixOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg
	r := cc.Renderer

	fixers, err := fixup.NewChain(cfg.Fixers.Disable)
	if err != nil {
		return err
	}

	var progress fixup.Progress
	var bar *output.ProgressBar
	if r.EffectiveMode() != output.ModeJSON && output.IsTerminal(cmd.ErrOrStderr()) {
		bar = output.NewProgressBar(cmd.ErrOrStderr(), "lexfix")
		progress = bar
	}

	recorder := startRun(cc, "fix", path, opts.DryRun)

	var entries []LogEntry
	driver := fixup.New(path, fixup.Options{
		Fixers:           fixers,
		MaxPasses:        cfg.MaxPasses,
		BackupSuffix:     cfg.BackupSuffix,
		ProgressInterval: cfg.ProgressInterval,
		Progress:         progress,
		DryRun:           opts.DryRun,
		Logger:           cc.Logger,
	})
	res, runErr := driver.Run(func(description string, autoFixed bool) {
		entries = append(entries, LogEntry{Message: description, AutoFixed: autoFixed})
	})
	if bar != nil {
		bar.Done()
	}
	if res == nil {
		res = &fixup.Result{}
	}

	status := statusFor(res.Fixed, runErr)
	recorder.finish(status, state.Summary{
		Passes:     res.Passes,
		Fixed:      res.Fixed,
		Warnings:   res.Warnings,
		BackupPath: res.BackupPath,
	}, entries, runErr)

	report := &FixReport{
		File:     path,
		RunID:    recorder.ID(),
		DryRun:   opts.DryRun,
		Status:   string(status),
		Passes:   res.Passes,
		Fixed:    res.Fixed,
		Warnings: res.Warnings,
		Replaced: res.Replaced,
		Backup:   res.BackupPath,
		Entries:  entries,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if report.Entries == nil {
		report.Entries = []LogEntry{}
	}

	if opts.ReportPath != "" {
		if err := writeYAMLReport(opts.ReportPath, report); err != nil {
			return errors.Join(runErr, err)
		}
	}

	// A failure before the first pass completes has nothing worth rendering.
	if runErr != nil && res.Passes == 0 {
		return runErr
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(report); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderFixMarkdown(r, report)
	default:
		renderFixText(r, report)
	}
	return runErr
}

func writeYAMLReport(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func renderFixText(r *output.Renderer, rep *FixReport) {
	styles := r.Styles()

	r.Header(1, "Repair of "+rep.File)
	for _, e := range rep.Entries {
		icon := styles.StatusSuccess.String()
		if !e.AutoFixed {
			icon = styles.StatusWarning.String()
		}
		r.Printf("  %s %s\n", icon, e.Message)
	}
	if len(rep.Entries) > 0 {
		r.Println("")
	}

	r.KeyValue("Passes", rep.Passes)
	r.KeyValue("Fixed", rep.Fixed)
	r.KeyValue("Warnings", rep.Warnings)
	if rep.Backup != "" {
		r.KeyValue("Backup", rep.Backup)
	}
	r.Println("")

	switch {
	case rep.Error != "":
		r.Warning(fmt.Sprintf("%s was left unchanged", rep.File))
	case rep.DryRun && rep.Fixed > 0:
		r.Muted(fmt.Sprintf("Dry run: %d repairs not written", rep.Fixed))
	case rep.Replaced:
		r.Success(fmt.Sprintf("Repaired %s (%d fixes in %d passes)", rep.File, rep.Fixed, rep.Passes))
	default:
		r.Success(fmt.Sprintf("%s needs no repair", rep.File))
	}
}

func renderFixMarkdown(r *output.Renderer, rep *FixReport) {
	r.Println(output.FormatHeader(1, "Repair of "+rep.File))
	r.Println("")
	r.Println(output.FormatKeyValue("Status", rep.Status))
	r.Println(output.FormatKeyValue("Dry Run", rep.DryRun))
	r.Println(output.FormatKeyValue("Passes", rep.Passes))
	r.Println(output.FormatKeyValue("Fixed", rep.Fixed))
	r.Println(output.FormatKeyValue("Warnings", rep.Warnings))
	if rep.Backup != "" {
		r.Println(output.FormatKeyValue("Backup", rep.Backup))
	}
	if rep.RunID != "" {
		r.Println(output.FormatKeyValue("Run", rep.RunID))
	}

	if len(rep.Entries) == 0 {
		return
	}
	r.Println("")
	r.Println(output.FormatHeader(2, "Log"))
	r.Println("")
	for _, e := range rep.Entries {
		kind := "fixed"
		if !e.AutoFixed {
			kind = "warning"
		}
		r.Printf("- [%s] %s\n", kind, e.Message)
	}
}
