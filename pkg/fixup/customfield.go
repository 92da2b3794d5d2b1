package fixup

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// CustomFieldFixer removes custom field values whose field is not defined
// in the project's AdditionalFields block.
type CustomFieldFixer struct {
	defined map[string]bool
}

// NewCustomFieldFixer creates the fixer.
func NewCustomFieldFixer() *CustomFieldFixer {
	f := &CustomFieldFixer{}
	f.Reset()
	return f
}

func (f *CustomFieldFixer) Name() string { return CustomFieldFixerName }

func (f *CustomFieldFixer) Reset() {
	f.defined = make(map[string]bool)
}

func (f *CustomFieldFixer) InspectCustomFields(fields *etree.Element) {
	for _, def := range fields.SelectElements("CustomField") {
		if name := def.SelectAttrValue("name", ""); name != "" {
			f.defined[name] = true
		}
	}
}

func (f *CustomFieldFixer) FinalizeIndices(_ *PassContext) {}

func (f *CustomFieldFixer) FixRecord(rec *fwxml.Record, log LogFunc) bool {
	for _, custom := range rec.Elem.SelectElements("Custom") {
		name := custom.SelectAttrValue("name", "")
		if f.defined[name] {
			continue
		}
		rec.Elem.RemoveChild(custom)
		log(fmt.Sprintf("Removed value of undefined custom field '%s' from object '%s' (%s).",
			name, rec.RawGUID(), rec.Class()), true)
	}
	return true
}
