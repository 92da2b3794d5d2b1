package commands

import (
	"errors"
	"log/slog"

	"github.com/leapstack-labs/lexfix/internal/state"
	"github.com/leapstack-labs/lexfix/pkg/fixup"
)

// LogEntry is one problem reported by a repair run.
type LogEntry struct {
	Message   string `json:"message" yaml:"message"`
	AutoFixed bool   `json:"auto_fixed" yaml:"auto_fixed"`
}

// runRecorder writes a run to the history database. History is best effort:
// a database that cannot be opened or written is logged and the repair
// proceeds unrecorded.
type runRecorder struct {
	store   *state.SQLiteStore
	cleanup func()
	run     *state.Run
	logger  *slog.Logger
}

// startRun records the start of a run when history is enabled.
func startRun(cc *CommandContext, command, path string, dryRun bool) *runRecorder {
	rec := &runRecorder{logger: cc.Logger}
	if !cc.Cfg.History {
		return rec
	}

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		cc.Logger.Warn("run history unavailable", "path", cc.Cfg.StatePath, "error", err)
		return rec
	}
	run, err := store.CreateRun(command, path, dryRun)
	if err != nil {
		cleanup()
		cc.Logger.Warn("failed to record run", "error", err)
		return rec
	}
	rec.store, rec.cleanup, rec.run = store, cleanup, run
	return rec
}

// ID returns the run id, or "" when the run is not recorded.
func (r *runRecorder) ID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

// finish stores the log entries and the outcome, then closes the database.
func (r *runRecorder) finish(status state.RunStatus, summary state.Summary, entries []LogEntry, runErr error) {
	if r.run == nil {
		return
	}
	defer r.cleanup()

	stored := make([]state.Entry, len(entries))
	for i, e := range entries {
		stored[i] = state.Entry{Message: e.Message, AutoFixed: e.AutoFixed}
	}
	if err := r.store.AddEntries(r.run.ID, stored); err != nil {
		r.logger.Warn("failed to record run entries", "run", r.run.ID, "error", err)
	}

	var errMsg string
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := r.store.CompleteRun(r.run.ID, status, summary, errMsg); err != nil {
		r.logger.Warn("failed to complete run", "run", r.run.ID, "error", err)
	}
}

// statusFor maps a repair outcome to a history status.
func statusFor(fixed int, err error) state.RunStatus {
	switch {
	case errors.Is(err, fixup.ErrNotConverged):
		return state.RunStatusNotConverged
	case err != nil:
		return state.RunStatusFailed
	case fixed > 0:
		return state.RunStatusFixed
	default:
		return state.RunStatusClean
	}
}
