package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/lexfix/internal/cli/output"
	"github.com/leapstack-labs/lexfix/internal/state"
	"github.com/leapstack-labs/lexfix/pkg/circularref"
	"github.com/leapstack-labs/lexfix/pkg/lexicon"
	"github.com/spf13/cobra"
)

// CyclesOptions holds options for the cycles command.
type CyclesOptions struct {
	Apply bool
}

// CyclesReport is the outcome of a cycles run.
type CyclesReport struct {
	File    string   `json:"file"`
	RunID   string   `json:"run_id,omitempty"`
	Applied bool     `json:"applied"`
	Checked int      `json:"checked"`
	Fixed   int      `json:"fixed"`
	Backup  string   `json:"backup,omitempty"`
	Repairs []string `json:"repairs"`
}

// NewCyclesCommand creates the cycles command.
func NewCyclesCommand() *cobra.Command {
	opts := &CyclesOptions{}

	cmd := &cobra.Command{
		Use:   "cycles <file>",
		Short: "Find and break circular complex-form references",
		Long: `Find complex forms whose components lead back to themselves.

Each cycle is broken by removing one component: the longer headword is
dropped from the components of the shorter one. Without --apply the repairs
are only reported. Run fix first; cycles expects a structurally sound file.`,
		Example: `  # Report circular references
  lexfix cycles Sena.fwdata

  # Break them and save the file
  lexfix cycles Sena.fwdata --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycles(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Save the repaired file")

	return cmd
}

func runCycles(cmd *cobra.Command, path string, opts *CyclesOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	lex, err := lexicon.Load(path)
	if err != nil {
		return err
	}

	recorder := startRun(cc, "cycles", path, !opts.Apply)

	rep := circularref.NewService(cc.Logger).BreakCycles(lex)
	out := &CyclesReport{
		File:    path,
		RunID:   recorder.ID(),
		Checked: rep.Checked,
		Fixed:   rep.Fixed,
		Repairs: splitLines(rep.Text),
	}

	var saveErr error
	if opts.Apply && lex.Modified() {
		out.Backup, saveErr = lex.Save(path, cc.Cfg.BackupSuffix)
		out.Applied = saveErr == nil
		if saveErr != nil {
			saveErr = fmt.Errorf("failed to save %s: %w", path, saveErr)
		}
	}

	entries := make([]LogEntry, len(out.Repairs))
	for i, line := range out.Repairs {
		entries[i] = LogEntry{Message: line, AutoFixed: out.Applied}
	}
	recorder.finish(statusFor(out.Fixed, saveErr), state.Summary{
		Passes:     1,
		Fixed:      out.Fixed,
		BackupPath: out.Backup,
	}, entries, saveErr)
	if saveErr != nil {
		return saveErr
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderCyclesMarkdown(r, out)
	default:
		renderCyclesText(r, out)
	}
	return nil
}

func splitLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func renderCyclesText(r *output.Renderer, rep *CyclesReport) {
	r.Header(1, "Circular references in "+rep.File)
	for _, line := range rep.Repairs {
		r.Printf("  - %s\n", line)
	}
	if len(rep.Repairs) > 0 {
		r.Println("")
	}
	r.KeyValue("Checked", rep.Checked)
	r.KeyValue("Cycles", rep.Fixed)
	if rep.Backup != "" {
		r.KeyValue("Backup", rep.Backup)
	}
	r.Println("")

	switch {
	case rep.Fixed == 0:
		r.Success("No circular references")
	case rep.Applied:
		r.Success(fmt.Sprintf("Broke %d circular references", rep.Fixed))
	default:
		r.Muted("Run with --apply to save these repairs")
	}
}

func renderCyclesMarkdown(r *output.Renderer, rep *CyclesReport) {
	r.Println(output.FormatHeader(1, "Circular references in "+rep.File))
	r.Println("")
	r.Println(output.FormatKeyValue("Checked", rep.Checked))
	r.Println(output.FormatKeyValue("Cycles", rep.Fixed))
	r.Println(output.FormatKeyValue("Applied", rep.Applied))
	if rep.Backup != "" {
		r.Println(output.FormatKeyValue("Backup", rep.Backup))
	}
	if len(rep.Repairs) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Repairs"))
		r.Println("")
		r.Printf("%s", output.FormatList(rep.Repairs))
	}
}
