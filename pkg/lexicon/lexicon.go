// Package lexicon is an in-memory model of the lexical entries of a project
// file and the references between them. It holds only what cycle repair
// needs: entries with their headwords, the sense ownership chain and the
// entry references.
package lexicon

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// RefTypeComplexForm marks an entry reference that describes a complex form.
const RefTypeComplexForm = 1

// Entry is a lexical entry.
type Entry struct {
	GUID     string
	Headword string
	refs     []*EntryRef
	rec      *fwxml.Record
}

// Refs returns the live entry references owned by the entry.
func (e *Entry) Refs() []*EntryRef {
	return e.refs
}

// ComplexForms returns the live complex-form references owned by the entry.
func (e *Entry) ComplexForms() []*EntryRef {
	var out []*EntryRef
	for _, r := range e.refs {
		if r.IsComplexForm() {
			out = append(out, r)
		}
	}
	return out
}

// EntryRef links an entry to the entries or senses it is built from.
type EntryRef struct {
	GUID             string
	Owner            *Entry
	RefType          int
	ComponentLexemes []string
	PrimaryLexemes   []string
	deleted          bool
	rec              *fwxml.Record
}

// IsComplexForm reports whether the reference is a live complex-form reference.
func (r *EntryRef) IsComplexForm() bool {
	return !r.deleted && r.RefType == RefTypeComplexForm
}

// Deleted reports whether the reference has been removed.
func (r *EntryRef) Deleted() bool {
	return r.deleted
}

// Lexicon is the loaded model. The underlying records are kept so the model
// can be saved back.
type Lexicon struct {
	root     xml.StartElement
	elems    []*etree.Element
	entries  map[string]*Entry
	owners   map[string]string // sense guid -> owner guid
	refs     []*EntryRef
	modified bool
}

// Load reads a project file.
func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read builds the model from a project stream.
func Read(in io.Reader) (*Lexicon, error) {
	r, err := fwxml.NewReader(in)
	if err != nil {
		return nil, err
	}
	lex := &Lexicon{
		root:    r.Root(),
		entries: make(map[string]*Entry),
		owners:  make(map[string]string),
	}

	forms := make(map[string]*etree.Element) // allomorph guid -> Form
	lexemeForms := make(map[*Entry]string)
	for {
		elem, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lex.elems = append(lex.elems, elem)
		if elem.Tag != fwxml.RecordElement {
			continue
		}

		rec := fwxml.NewRecord(elem)
		switch rec.Class() {
		case "LexEntry":
			e := &Entry{
				GUID:     rec.GUID(),
				Headword: strings.TrimSpace(fwxml.FirstAlternative(rec.Property("CitationForm"))),
				rec:      rec,
			}
			lex.entries[e.GUID] = e
			if e.Headword == "" {
				lexemeForms[e] = rec.FirstPointerTarget("LexemeForm")
			}
		case "LexSense":
			lex.owners[rec.GUID()] = rec.OwnerGUID()
		case "MoStemAllomorph", "MoAffixAllomorph", "MoAffixProcess":
			forms[rec.GUID()] = rec.Property("Form")
		case "LexEntryRef":
			refType, _ := strconv.Atoi(rec.PropertyVal("RefType"))
			lex.refs = append(lex.refs, &EntryRef{
				GUID:             rec.GUID(),
				RefType:          refType,
				ComponentLexemes: targets(rec, "ComponentLexemes"),
				PrimaryLexemes:   targets(rec, "PrimaryLexemes"),
				rec:              rec,
			})
		}
	}

	for e, allo := range lexemeForms {
		e.Headword = strings.TrimSpace(fwxml.FirstAlternative(forms[allo]))
	}
	for _, ref := range lex.refs {
		if owner := lex.entries[ref.rec.OwnerGUID()]; owner != nil {
			ref.Owner = owner
			owner.refs = append(owner.refs, ref)
		}
	}
	return lex, nil
}

func targets(rec *fwxml.Record, prop string) []string {
	var out []string
	for _, p := range rec.PropertyPointers(prop) {
		out = append(out, p.Target())
	}
	return out
}

// Entry returns the entry with the given guid, or nil.
func (l *Lexicon) Entry(guid string) *Entry {
	return l.entries[fwxml.NormalizeGUID(guid)]
}

// OwningEntry resolves an entry or sense to the entry that holds it.
func (l *Lexicon) OwningEntry(guid string) *Entry {
	guid = fwxml.NormalizeGUID(guid)
	// Senses nest; the bound stops on corrupt ownership loops.
	for range len(l.owners) + 1 {
		if e := l.entries[guid]; e != nil {
			return e
		}
		owner, ok := l.owners[guid]
		if !ok {
			return nil
		}
		guid = owner
	}
	return nil
}

// ComplexForms returns the live complex-form references in file order.
func (l *Lexicon) ComplexForms() []*EntryRef {
	var out []*EntryRef
	for _, r := range l.refs {
		if r.IsComplexForm() {
			out = append(out, r)
		}
	}
	return out
}

// Modified reports whether any mutation has been made since loading.
func (l *Lexicon) Modified() bool {
	return l.modified
}

// RemoveTarget removes from ref's component and primary lists every target
// that resolves to entry. It returns the number of targets removed.
func (l *Lexicon) RemoveTarget(ref *EntryRef, entry *Entry) int {
	if ref.deleted || entry == nil {
		return 0
	}
	matches := func(guid string) bool { return l.OwningEntry(guid) == entry }

	removed := 0
	for _, prop := range []string{"ComponentLexemes", "PrimaryLexemes"} {
		for _, p := range ref.rec.PropertyPointers(prop) {
			if matches(p.Target()) {
				p.Detach()
				removed++
			}
		}
	}
	ref.ComponentLexemes = slices.DeleteFunc(ref.ComponentLexemes, matches)
	ref.PrimaryLexemes = slices.DeleteFunc(ref.PrimaryLexemes, matches)
	if removed > 0 {
		l.modified = true
	}
	return removed
}

// DeleteEntryRef removes ref from its owner.
func (l *Lexicon) DeleteEntryRef(ref *EntryRef) {
	if ref.deleted {
		return
	}
	ref.deleted = true
	l.modified = true
	if ref.Owner == nil {
		return
	}
	ref.Owner.refs = slices.DeleteFunc(ref.Owner.refs, func(r *EntryRef) bool { return r == ref })
	for _, p := range ref.Owner.rec.PropertyPointers("EntryRefs") {
		if p.Target() == ref.GUID {
			p.Detach()
		}
	}
}

// WriteTo writes the model as a project file, leaving out deleted references.
func (l *Lexicon) WriteTo(out io.Writer) error {
	deleted := make(map[*etree.Element]bool)
	for _, r := range l.refs {
		if r.deleted {
			deleted[r.rec.Elem] = true
		}
	}

	w := fwxml.NewWriter(out)
	if err := w.WriteHeader(l.root); err != nil {
		return err
	}
	for _, e := range l.elems {
		if deleted[e] {
			continue
		}
		if err := w.WriteElement(e); err != nil {
			return err
		}
	}
	return w.Close()
}

// Save writes the model over path, keeping the previous file under
// path+backupSuffix. It returns the backup path.
func (l *Lexicon) Save(path, backupSuffix string) (backup string, err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err := l.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return fwxml.ReplaceFile(path, tmp, backupSuffix)
}
