package fixup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/lexfix/internal/testutil"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, path string, opts Options) *Driver {
	t.Helper()
	opts.Logger = testutil.NewTestLogger(t)
	return New(path, opts)
}

// assertNoPassFiles fails if any intermediate pass file is left next to path.
func assertNoPassFiles(t *testing.T, path string) {
	t.Helper()
	matches, err := filepath.Glob(path + ".pass*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDriver_CleanFileIsNotRewritten(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexDb", "lex", "", testutil.Owns("Entries", "e1")),
		testutil.Record("LexEntry", "e1", "lex", ""),
	)
	before := readFile(t, path)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.True(t, res.Converged)
	assert.False(t, res.Replaced)
	assert.Empty(t, logs.Entries)
	assert.Equal(t, before, readFile(t, path))
	assert.NoFileExists(t, path+DefaultBackupSuffix)
	assertNoPassFiles(t, path)
}

func TestDriver_DuplicateIdentityIsReportedOnly(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexEntry", "g1", "", ""),
		testutil.Record("LexSense", "g1", "", ""),
	)
	before := readFile(t, path)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 0, res.Fixed)
	assert.Equal(t, 1, res.Warnings)
	require.Len(t, logs.Entries, 1)
	assert.False(t, logs.Entries[0].AutoFixed)
	assert.Contains(t, logs.Entries[0].Message, "'g1'")
	assert.Contains(t, logs.Entries[0].Message, "defined more than once")
	assert.Equal(t, before, readFile(t, path))
}

func TestDriver_WrongOwnerIsCorrected(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexEntry", "o1", "", ""),
		testutil.Record("LexEntry", "o2", "", testutil.Owns("Senses", "b")),
		testutil.Record("LexSense", "b", "o1", ""),
	)
	before := readFile(t, path)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 1, res.Fixed)
	assert.True(t, res.Replaced)
	assert.Equal(t, path+".bak", res.BackupPath)
	assert.True(t, logs.Contains("from 'o1' to 'o2'"))

	recs := readRecords(t, path)
	require.Contains(t, recs, "b")
	assert.Equal(t, "o2", recs["b"].OwnerGUID())
	assert.Equal(t, before, readFile(t, res.BackupPath))
	assertNoPassFiles(t, path)
}

func TestDriver_DanglingReferencesAreRemoved(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexEntry", "c", "", testutil.Refs("Refs", "zzz")+testutil.Refs("Other", "c", "zzz")),
	)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fixed)
	assert.Equal(t, 2, res.Passes)

	rec := readRecords(t, path)["c"]
	require.NotNil(t, rec)
	assert.Nil(t, rec.Property("Refs"))
	ptrs := rec.Pointers()
	require.Len(t, ptrs, 1)
	assert.Equal(t, "c", ptrs[0].Target())
}

// chainProject has an orphan whose removal strands its child, whose removal
// in turn leaves a dangling reference behind.
func chainProject(t *testing.T) string {
	return testutil.WriteProject(t,
		testutil.Record("LexEntry", "a", "ghost", testutil.Owns("Senses", "b")),
		testutil.Record("LexSense", "b", "a", ""),
		testutil.Record("LexEntry", "r", "", testutil.Refs("Related", "b")),
	)
}

func TestDriver_ConvergesOverCascadingRepairs(t *testing.T) {
	path := chainProject(t)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Passes)
	assert.Equal(t, 3, res.Fixed)
	assert.True(t, res.Converged)

	recs := readRecords(t, path)
	assert.NotContains(t, recs, "a")
	assert.NotContains(t, recs, "b")
	require.Contains(t, recs, "r")
	assert.Empty(t, recs["r"].Pointers())
	assertNoPassFiles(t, path)
}

func TestDriver_PassLimit(t *testing.T) {
	path := chainProject(t)
	before := readFile(t, path)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{MaxPasses: 2}).Run(logs.Log)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverged)
	require.NotNil(t, res)
	assert.False(t, res.Converged)
	assert.Equal(t, 2, res.Passes)

	assert.Equal(t, before, readFile(t, path))
	assert.NoFileExists(t, path+DefaultBackupSuffix)
	assertNoPassFiles(t, path)
}

func TestDriver_UnexpectedRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.fwdata")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?><project><rt class="X" guid="a"/></project>`), 0o600))

	_, err := newDriver(t, path, Options{}).Run(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fwxml.ErrUnexpectedRoot)
	assert.NoFileExists(t, path+".pass1")
}

func TestDriver_MissingFile(t *testing.T) {
	_, err := newDriver(t, filepath.Join(t.TempDir(), "nope.fwdata"), Options{}).Run(nil)
	assert.Error(t, err)
}

func TestDriver_DryRun(t *testing.T) {
	path := chainProject(t)
	before := readFile(t, path)

	res, err := newDriver(t, path, Options{DryRun: true}).Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Passes)
	assert.False(t, res.Replaced)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, before, readFile(t, path))
	assertNoPassFiles(t, path)
}

func TestDriver_Idempotent(t *testing.T) {
	path := chainProject(t)

	_, err := newDriver(t, path, Options{}).Run(nil)
	require.NoError(t, err)
	fixed := readFile(t, path)
	backup := readFile(t, path+DefaultBackupSuffix)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.Equal(t, 0, logs.Fixed())
	assert.False(t, res.Replaced)
	assert.Equal(t, fixed, readFile(t, path))
	assert.Equal(t, backup, readFile(t, path+DefaultBackupSuffix))
}

func TestDriver_ReplacesOldBackup(t *testing.T) {
	path := chainProject(t)
	before := readFile(t, path)
	require.NoError(t, os.WriteFile(path+".old", []byte("stale"), 0o600))

	res, err := newDriver(t, path, Options{BackupSuffix: ".old"}).Run(nil)
	require.NoError(t, err)
	assert.Equal(t, path+".old", res.BackupPath)
	assert.Equal(t, before, readFile(t, res.BackupPath))
}

func TestDriver_NonRecordElementsPassThrough(t *testing.T) {
	fields := `<AdditionalFields><CustomField name="Note" class="LexEntry" type="String" /></AdditionalFields>`
	path := testutil.WriteProject(t,
		fields,
		testutil.Record("LexEntry", "c", "", testutil.Refs("Refs", "zzz")),
	)

	_, err := newDriver(t, path, Options{}).Run(nil)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, path), `<CustomField name="Note" class="LexEntry" type="String"/>`)
}

func TestDriver_DeadMorphBundleCascade(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("WfiAnalysis", "wa", "", testutil.Owns("MorphBundles", "mb", "mb2")),
		testutil.Record("WfiMorphBundle", "mb", "wa", testutil.Refs("Morph", "zzz")+testutil.Refs("Msa", "yyy")),
		testutil.Record("WfiMorphBundle", "mb2", "wa", `<Form><AStr ws="fr"><Run ws="fr">ka</Run></AStr></Form>`+testutil.Refs("Morph", "zzz")),
	)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{}).Run(logs.Log)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Passes)
	assert.True(t, logs.Contains("Removing object with guid 'mb'"))
	assert.True(t, logs.Contains("Removed missing morph 'zzz' from morph bundle 'mb2'"))

	recs := readRecords(t, path)
	assert.NotContains(t, recs, "mb")
	require.Contains(t, recs, "mb2")
	assert.Nil(t, recs["mb2"].Property("Morph"))
	ptrs := recs["wa"].Pointers()
	require.Len(t, ptrs, 1)
	assert.Equal(t, "mb2", ptrs[0].Target())
}

func TestDriver_DisabledFixerDoesNotRun(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexEntry", "c", "", `<Run ws="en" editable="not">x</Run>`),
	)
	fixers, err := NewChain([]string{OriginalFixerName})
	require.NoError(t, err)

	res, err := newDriver(t, path, Options{Fixers: fixers}).Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Passes)
	assert.False(t, res.Replaced)
}

func TestDriver_DisabledMorphBundleFixer(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("WfiAnalysis", "wa", "", testutil.Owns("MorphBundles", "mb")),
		testutil.Record("WfiMorphBundle", "mb", "wa", testutil.Refs("Morph", "gone")+testutil.Refs("Msa", "gone2")),
	)
	fixers, err := NewChain([]string{MorphBundleFixerName})
	require.NoError(t, err)

	logs := &testutil.LogCollector{}
	res, err := newDriver(t, path, Options{Fixers: fixers}).Run(logs.Log)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fixed)
	assert.True(t, res.Replaced)

	recs := readRecords(t, path)
	require.Contains(t, recs, "mb")
	for _, ptr := range recs["mb"].Pointers() {
		assert.Contains(t, recs, ptr.Target(), "dangling %s in %s", ptr.Target(), ptr.Property())
	}
	assert.Nil(t, recs["mb"].Property("Morph"))
	assert.Nil(t, recs["mb"].Property("Msa"))
}

type recordingProgress struct {
	total     int
	positions []int
}

func (p *recordingProgress) SetRange(total int)  { p.total = total }
func (p *recordingProgress) SetPosition(pos int) { p.positions = append(p.positions, pos) }

func TestDriver_Progress(t *testing.T) {
	path := testutil.WriteProject(t,
		testutil.Record("LexEntry", "a", "", ""),
		testutil.Record("LexEntry", "b", "", ""),
		testutil.Record("LexEntry", "c", "", ""),
	)
	progress := &recordingProgress{}

	_, err := newDriver(t, path, Options{Progress: progress, ProgressInterval: 2}).Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.total)
	assert.Equal(t, []int{2, 3}, progress.positions)
}
