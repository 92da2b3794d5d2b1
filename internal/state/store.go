// Package state records repair runs and their log entries in SQLite so that
// earlier runs can be reviewed with the history command.
package state

import "time"

// RunStatus is the outcome of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning      RunStatus = "running"
	RunStatusClean        RunStatus = "clean"
	RunStatusFixed        RunStatus = "fixed"
	RunStatusNotConverged RunStatus = "not_converged"
	RunStatusFailed       RunStatus = "failed"
)

// Run is one invocation of a repair command against a file.
type Run struct {
	ID          string
	Command     string
	Path        string
	DryRun      bool
	Status      RunStatus
	Passes      int
	Fixed       int
	Warnings    int
	BackupPath  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Summary carries the counters stored when a run completes.
type Summary struct {
	Passes     int
	Fixed      int
	Warnings   int
	BackupPath string
}

// Entry is one log line of a run.
type Entry struct {
	Seq       int
	Message   string
	AutoFixed bool
}
