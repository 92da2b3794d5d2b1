package fixup

import (
	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// LogFunc receives one entry per detected problem. autoFixed reports whether
// the problem was repaired; the count of such entries in a pass decides
// whether another pass is needed.
type LogFunc func(description string, autoFixed bool)

// Progress observes a run. It has no way to pause or cancel it.
type Progress interface {
	SetRange(total int)
	SetPosition(pos int)
}

// Fixer is a unit of repair logic. The driver calls its methods in a fixed
// order every pass: Reset, the optional inspectors while indices are built,
// FinalizeIndices once, then FixRecord for each surviving record.
type Fixer interface {
	// Name identifies the fixer in configuration and logs.
	Name() string

	// Reset restores the pristine state. Called before every pass.
	Reset()

	// FinalizeIndices hands over the pass-scoped shared indices. The same
	// context is given to every fixer and must not be kept past the pass.
	FinalizeIndices(pass *PassContext)

	// FixRecord repairs rec in place. Returning false drops the record
	// from the output.
	FixRecord(rec *fwxml.Record, log LogFunc) bool
}

// RecordInspector is implemented by fixers that need to see every record
// before any record is fixed.
type RecordInspector interface {
	InspectRecord(rec *fwxml.Record)
}

// CustomFieldInspector is implemented by fixers that need the custom field
// definitions of the project.
type CustomFieldInspector interface {
	InspectCustomFields(fields *etree.Element)
}
