// Package main provides tests for the lexfix CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/lexfix/internal/cli"
	"github.com/leapstack-labs/lexfix/internal/cli/commands"
	"github.com/leapstack-labs/lexfix/internal/testutil"
)

// execute runs the root command and returns stdout and stderr separately.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "history", "state.db")
}

// wrongOwnerProject needs one repair: the sense names o1 as owner but o2
// owns it.
func wrongOwnerProject(t *testing.T) string {
	return testutil.WriteProject(t,
		testutil.Record("LexEntry", "o1", "", ""),
		testutil.Record("LexEntry", "o2", "", testutil.Owns("Senses", "b")),
		testutil.Record("LexSense", "b", "o1", ""),
	)
}

func cyclicProject(t *testing.T) string {
	return testutil.WriteProject(t,
		testutil.Entry("e1", "ab", "r1"),
		testutil.Entry("e2", "abc", "r2"),
		testutil.ComplexForm("r1", "e1", "e2"),
		testutil.ComplexForm("r2", "e2", "e1"),
	)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lexfix")
}

func TestHelpCommand(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	for _, expected := range []string{"fix", "cycles", "history", "completion", "--max-passes", "--disable"} {
		assert.Contains(t, out, expected)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "lexfix")

	_, _, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestFixCommand_JSON(t *testing.T) {
	path := wrongOwnerProject(t)
	before := readFile(t, path)

	out, _, err := execute(t, "fix", path, "--output", "json", "--state", statePath(t))
	require.NoError(t, err)

	var rep commands.FixReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "fixed", rep.Status)
	assert.Equal(t, 2, rep.Passes)
	assert.Equal(t, 1, rep.Fixed)
	assert.True(t, rep.Replaced)
	assert.Equal(t, path+".bak", rep.Backup)
	assert.NotEmpty(t, rep.RunID)
	require.Len(t, rep.Entries, 1)
	assert.Contains(t, rep.Entries[0].Message, "from 'o1' to 'o2'")
	assert.True(t, rep.Entries[0].AutoFixed)

	assert.Equal(t, before, readFile(t, path+".bak"))
	assert.NotEqual(t, before, readFile(t, path))
}

func TestFixCommand_CleanFile(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexDb", "lex", "", testutil.Owns("Entries", "e1")),
		testutil.Record("LexEntry", "e1", "lex", ""),
	)

	out, _, err := execute(t, "fix", path, "--state", statePath(t))
	require.NoError(t, err)
	assert.Contains(t, out, "# Repair of "+path)
	assert.Contains(t, out, "- **Status**: clean")
	assert.NoFileExists(t, path+".bak")
}

func TestFixCommand_DryRunMarkdown(t *testing.T) {
	path := wrongOwnerProject(t)
	before := readFile(t, path)

	out, _, err := execute(t, "fix", path, "--dry-run", "--output", "markdown", "--state", statePath(t))
	require.NoError(t, err)

	assert.Contains(t, out, "- **Dry Run**: true")
	assert.Contains(t, out, "- **Fixed**: 1")
	assert.Contains(t, out, "## Log")
	assert.Contains(t, out, "- [fixed] ")
	assert.Equal(t, before, readFile(t, path))
	assert.NoFileExists(t, path+".bak")
}

func TestFixCommand_Report(t *testing.T) {
	path := wrongOwnerProject(t)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	_, _, err := execute(t, "fix", path, "--report", reportPath, "--history=false")
	require.NoError(t, err)

	var rep commands.FixReport
	require.NoError(t, yaml.Unmarshal([]byte(readFile(t, reportPath)), &rep))
	assert.Equal(t, path, rep.File)
	assert.Equal(t, "fixed", rep.Status)
	assert.Empty(t, rep.RunID, "history disabled")
	require.Len(t, rep.Entries, 1)
	assert.True(t, rep.Entries[0].AutoFixed)
}

func TestFixCommand_NotConverged(t *testing.T) {
	// The owner repair needs a second, clean pass to settle.
	path := wrongOwnerProject(t)
	before := readFile(t, path)

	out, _, err := execute(t, "fix", path, "--max-passes", "1", "--output", "json", "--state", statePath(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not converge")

	var rep commands.FixReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "not_converged", rep.Status)
	assert.False(t, rep.Replaced)
	assert.Equal(t, before, readFile(t, path))
}

func TestFixCommand_Errors(t *testing.T) {
	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "fix")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "fix", filepath.Join(t.TempDir(), "absent.fwdata"), "--history=false")
		assert.Error(t, err)
	})

	t.Run("unknown fixer", func(t *testing.T) {
		path := wrongOwnerProject(t)
		_, _, err := execute(t, "fix", path, "--disable", "bogus", "--history=false")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown fixer")
	})

	t.Run("invalid output", func(t *testing.T) {
		path := wrongOwnerProject(t)
		_, _, err := execute(t, "fix", path, "--output", "html", "--history=false")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}

func TestFixCommand_DisableOriginal(t *testing.T) {
	path := wrongOwnerProject(t)
	before := readFile(t, path)

	out, _, err := execute(t, "fix", path, "--disable", "original", "--output", "json", "--history=false")
	require.NoError(t, err)

	var rep commands.FixReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, "clean", rep.Status)
	assert.Equal(t, before, readFile(t, path))
}

func TestCyclesCommand(t *testing.T) {
	path := cyclicProject(t)
	before := readFile(t, path)
	state := statePath(t)

	out, _, err := execute(t, "cycles", path, "--output", "json", "--state", state)
	require.NoError(t, err)

	var rep commands.CyclesReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, 2, rep.Checked)
	assert.Equal(t, 1, rep.Fixed)
	assert.False(t, rep.Applied)
	require.Len(t, rep.Repairs, 1)
	assert.Contains(t, rep.Repairs[0], "Removed 'abc' from the components of complex form 'ab'")
	assert.Equal(t, before, readFile(t, path), "reporting never writes")

	out, _, err = execute(t, "cycles", path, "--apply", "--output", "json", "--state", state)
	require.NoError(t, err)
	rep = commands.CyclesReport{}
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.True(t, rep.Applied)
	assert.Equal(t, path+".bak", rep.Backup)
	assert.Equal(t, before, readFile(t, path+".bak"))

	out, _, err = execute(t, "cycles", path, "--apply", "--output", "markdown", "--state", state)
	require.NoError(t, err)
	assert.Contains(t, out, "- **Cycles**: 0")
}

func TestHistoryCommand(t *testing.T) {
	state := statePath(t)

	out, _, err := execute(t, "history", "--state", state)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")

	path := wrongOwnerProject(t)
	_, _, err = execute(t, "fix", path, "--dry-run", "--state", state)
	require.NoError(t, err)
	_, _, err = execute(t, "fix", path, "--state", state)
	require.NoError(t, err)

	out, _, err = execute(t, "history", "--output", "json", "--state", state)
	require.NoError(t, err)
	var runs []commands.RunView
	require.NoError(t, json.Unmarshal([]byte(out), &runs), out)
	require.Len(t, runs, 2)
	assert.False(t, runs[0].DryRun, "newest first")
	assert.True(t, runs[1].DryRun)
	assert.Equal(t, "fixed", runs[0].Status)
	assert.Equal(t, path+".bak", runs[0].Backup)

	out, _, err = execute(t, "history", "--limit", "1", "--output", "markdown", "--state", state)
	require.NoError(t, err)
	assert.Contains(t, out, "# Runs (1)")
	assert.Contains(t, out, runs[0].ID[:8])

	out, _, err = execute(t, "history", "show", runs[0].ID[:8], "--output", "json", "--state", state)
	require.NoError(t, err)
	var view commands.RunView
	require.NoError(t, json.Unmarshal([]byte(out), &view), out)
	assert.Equal(t, runs[0].ID, view.ID)
	require.Len(t, view.Entries, 1)
	assert.Contains(t, view.Entries[0].Message, "from 'o1' to 'o2'")

	_, _, err = execute(t, "history", "show", "no-such-run", "--state", state)
	assert.ErrorContains(t, err, "run not found")

	_, _, err = execute(t, "history", "--limit", "0", "--state", state)
	assert.Error(t, err)
}

func TestHistoryDisabled(t *testing.T) {
	state := statePath(t)
	path := wrongOwnerProject(t)

	_, _, err := execute(t, "fix", path, "--history=false", "--state", state)
	require.NoError(t, err)
	assert.NoFileExists(t, state)
}
