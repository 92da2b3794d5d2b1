package fixup

import (
	"testing"

	"github.com/leapstack-labs/lexfix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBuilder(t *testing.T) {
	recs := parseRecords(t,
		testutil.Record("LexDb", "lex", "", testutil.Owns("Entries", "e1", "e2")+testutil.Refs("Refs", "e3")),
		testutil.Record("LexEntry", "E1", "lex", testutil.Owns("Senses", "s1")),
		testutil.Record("LexEntry", "e2", "lex", ""),
	)
	logs := &testutil.LogCollector{}
	b := NewIndexBuilder()
	for _, rec := range recs {
		b.Add(rec, logs.Log)
	}
	pass := b.Context()

	assert.Equal(t, 3, b.Records())
	assert.Empty(t, logs.Entries)
	assert.True(t, pass.Known("e1"), "identities are normalized")
	assert.False(t, pass.Known("s1"), "pointer targets are not identities")

	owner, ok := pass.OwnerOf("s1")
	require.True(t, ok)
	assert.Equal(t, "e1", owner)
	_, ok = pass.OwnerOf("e3")
	assert.False(t, ok, "references do not own")
	assert.Equal(t, []string{"e1", "e2"}, pass.OwnedChildren["lex"])
}

func TestIndexBuilder_Conflicts(t *testing.T) {
	recs := parseRecords(t,
		testutil.Record("LexEntry", "p1", "", testutil.Owns("Senses", "c")),
		testutil.Record("LexEntry", "p2", "", testutil.Owns("Senses", "c")),
		testutil.Record("LexEntry", "p1", "", ""),
	)
	logs := &testutil.LogCollector{}
	b := NewIndexBuilder()
	for _, rec := range recs {
		b.Add(rec, logs.Log)
	}

	require.Len(t, logs.Entries, 2)
	assert.Equal(t, 0, logs.Fixed())
	assert.Equal(t, []string{"c"}, b.Context().OwnedChildren["p1"])
	assert.Empty(t, b.Context().OwnedChildren["p2"])
}

func TestPassContext_MarkForDeletion(t *testing.T) {
	pass := NewPassContext()
	pass.OwnedChildren["a"] = []string{"b", "c"}
	pass.OwnedChildren["b"] = []string{"d"}
	pass.OwnedChildren["d"] = []string{"a"}

	assert.Equal(t, 4, pass.MarkForDeletion("a"))
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.True(t, pass.IsDeleted(id), id)
	}
	assert.Equal(t, 0, pass.MarkForDeletion("b"))
	assert.False(t, pass.IsDeleted("x"))
}

func TestNewChain(t *testing.T) {
	assert.Equal(t, []string{"original", "morph-bundle", "custom-field", "homograph"}, Names())

	fixers := DefaultFixers()
	require.Len(t, fixers, 4)
	for i, name := range Names() {
		assert.Equal(t, name, fixers[i].Name())
	}

	fixers, err := NewChain([]string{" homograph", "custom-field"})
	require.NoError(t, err)
	require.Len(t, fixers, 2)
	assert.Equal(t, OriginalFixerName, fixers[0].Name())
	assert.Equal(t, MorphBundleFixerName, fixers[1].Name())

	_, err = NewChain([]string{"homograph", "spelling"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spelling")
}

func TestNewChain_BundleLinks(t *testing.T) {
	fixers := DefaultFixers()
	assert.False(t, fixers[0].(*OriginalFixer).RepairBundleLinks)

	fixers, err := NewChain([]string{MorphBundleFixerName})
	require.NoError(t, err)
	require.Len(t, fixers, 3)
	assert.True(t, fixers[0].(*OriginalFixer).RepairBundleLinks)
}

func TestIndexBuilder_KeepsSpelling(t *testing.T) {
	b := NewIndexBuilder()
	b.Add(parseRecord(t, testutil.Record("LexEntry", "{ABC}", "", "")), (&testutil.LogCollector{}).Log)
	pass := b.Context()

	assert.True(t, pass.Known("{abc}"))
	assert.Equal(t, "{ABC}", pass.RawGUID("{abc}"))
	assert.Equal(t, "unknown", pass.RawGUID("unknown"))
}

func TestNewChain_FreshInstances(t *testing.T) {
	a := DefaultFixers()
	b := DefaultFixers()
	assert.NotSame(t, a[0], b[0])
}
