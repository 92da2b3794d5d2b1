package fixup

import (
	"fmt"

	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// IndexBuilder derives the global indices of a pass from the raw records.
// Conflicts are reported but never repaired here.
type IndexBuilder struct {
	pass    *PassContext
	records int
}

// NewIndexBuilder starts a fresh set of indices.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{pass: NewPassContext()}
}

// Add registers one record.
func (b *IndexBuilder) Add(rec *fwxml.Record, log LogFunc) {
	b.records++
	guid := rec.GUID()
	if _, dup := b.pass.Guids[guid]; dup {
		log(fmt.Sprintf("Object with guid '%s' (%s) is defined more than once. This is not fixed automatically.",
			rec.RawGUID(), rec.Class()), false)
	} else {
		b.pass.Guids[guid] = struct{}{}
		b.pass.Spellings[guid] = rec.RawGUID()
	}

	for _, ptr := range rec.Pointers() {
		if ptr.Kind() != fwxml.Owning {
			continue
		}
		target := ptr.Target()
		if owner, claimed := b.pass.Owners[target]; claimed {
			log(fmt.Sprintf("Object with guid '%s' is owned by both '%s' and '%s'. This is not fixed automatically.",
				target, owner, guid), false)
			continue
		}
		b.pass.Owners[target] = guid
		b.pass.OwnedChildren[guid] = append(b.pass.OwnedChildren[guid], target)
	}
}

// Records returns the number of records seen.
func (b *IndexBuilder) Records() int {
	return b.records
}

// Context returns the built indices.
func (b *IndexBuilder) Context() *PassContext {
	return b.pass
}
