package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/lexfix/internal/cli/output"
	"github.com/leapstack-labs/lexfix/internal/state"
	"github.com/spf13/cobra"
)

// RunView is a run as rendered by the history commands.
type RunView struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Path        string     `json:"path"`
	DryRun      bool       `json:"dry_run"`
	Status      string     `json:"status"`
	Passes      int        `json:"passes"`
	Fixed       int        `json:"fixed"`
	Warnings    int        `json:"warnings"`
	Backup      string     `json:"backup,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Entries     []LogEntry `json:"entries,omitempty"`
}

func newRunView(run *state.Run) RunView {
	return RunView{
		ID:          run.ID,
		Command:     run.Command,
		Path:        run.Path,
		DryRun:      run.DryRun,
		Status:      string(run.Status),
		Passes:      run.Passes,
		Fixed:       run.Fixed,
		Warnings:    run.Warnings,
		Backup:      run.BackupPath,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous repair runs",
		Long: `List the most recent fix and cycles runs recorded in the state database.

Use "history show <run-id>" to see the full log of one run.`,
		Example: `  # Last 20 runs
  lexfix history

  # Last 5 runs as JSON
  lexfix history --limit 5 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the log of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func runHistory(cmd *cobra.Command, limit int) error {
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", limit)
	}
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	views := make([]RunView, len(runs))
	for i, run := range runs {
		views[i] = newRunView(run)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(views)
	}
	if len(views) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	r.Header(1, fmt.Sprintf("Runs (%d)", len(views)))
	rows := make([][]any, len(views))
	for i, v := range views {
		rows[i] = []any{
			shortID(v.ID),
			v.StartedAt.Local().Format("2006-01-02 15:04:05"),
			v.Command,
			v.Status,
			v.Fixed,
			v.Warnings,
			v.Path,
		}
	}
	r.Table([]string{"Run", "Started", "Command", "Status", "Fixed", "Warnings", "File"}, rows)
	return nil
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := findRun(store, id)
	if err != nil {
		return err
	}
	entries, err := store.GetEntries(run.ID)
	if err != nil {
		return err
	}

	view := newRunView(run)
	for _, e := range entries {
		view.Entries = append(view.Entries, LogEntry{Message: e.Message, AutoFixed: e.AutoFixed})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(view)
	}

	r.Header(1, "Run "+view.ID)
	r.KeyValue("Command", view.Command)
	r.KeyValue("File", view.Path)
	r.KeyValue("Status", view.Status)
	r.KeyValue("Dry Run", view.DryRun)
	r.KeyValue("Passes", view.Passes)
	r.KeyValue("Fixed", view.Fixed)
	r.KeyValue("Warnings", view.Warnings)
	if view.Backup != "" {
		r.KeyValue("Backup", view.Backup)
	}
	if view.Error != "" {
		r.KeyValue("Error", view.Error)
	}

	if len(view.Entries) > 0 {
		r.Println("")
		rows := make([][]any, len(view.Entries))
		for i, e := range view.Entries {
			kind := "fixed"
			if !e.AutoFixed {
				kind = "warning"
			}
			rows[i] = []any{i + 1, kind, e.Message}
		}
		r.Table([]string{"#", "Kind", "Message"}, rows)
	}
	return nil
}

// findRun resolves a full run id or a unique prefix of one, as printed by
// the history listing.
func findRun(store *state.SQLiteStore, id string) (*state.Run, error) {
	if run, err := store.GetRun(id); err == nil {
		return run, nil
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		return nil, err
	}
	var match *state.Run
	for _, run := range runs {
		if strings.HasPrefix(run.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = run
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
