package fixup

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/internal/testutil"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
	"github.com/stretchr/testify/require"
)

func parseRecord(t *testing.T, s string) *fwxml.Record {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(s))
	return fwxml.NewRecord(doc.Root())
}

func parseRecords(t *testing.T, srcs ...string) []*fwxml.Record {
	t.Helper()
	recs := make([]*fwxml.Record, 0, len(srcs))
	for _, s := range srcs {
		recs = append(recs, parseRecord(t, s))
	}
	return recs
}

// prepare runs the inspection half of a pass for a single fixer.
func prepare(t *testing.T, f Fixer, recs []*fwxml.Record) (*PassContext, *testutil.LogCollector) {
	t.Helper()
	logs := &testutil.LogCollector{}
	f.Reset()
	b := NewIndexBuilder()
	for _, rec := range recs {
		b.Add(rec, logs.Log)
		if ri, ok := f.(RecordInspector); ok {
			ri.InspectRecord(rec)
		}
	}
	pass := b.Context()
	f.FinalizeIndices(pass)
	return pass, logs
}

// readRecords loads every record of a project file keyed by guid.
func readRecords(t *testing.T, path string) map[string]*fwxml.Record {
	t.Helper()
	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	r, err := fwxml.NewReader(in)
	require.NoError(t, err)
	recs := make(map[string]*fwxml.Record)
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs
		}
		require.NoError(t, err)
		if e.Tag == fwxml.RecordElement {
			rec := fwxml.NewRecord(e)
			recs[rec.GUID()] = rec
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func render(rec *fwxml.Record) string {
	doc := etree.NewDocument()
	doc.SetRoot(rec.Elem.Copy())
	s, _ := doc.WriteToString()
	return strings.TrimSpace(s)
}
