package fixup

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// Multistring alternative elements that are de-duplicated by writing system.
var multistringAlternatives = []string{"AUni", "AStr"}

// Generic date properties, by record class.
var genDateFields = map[string][]string{
	"RnGenericRec": {"DateOfEvent"},
	"CmPerson":     {"DateOfBirth", "DateOfDeath"},
}

// OriginalFixer repairs references, ownership and formatting problems that
// can be decided from the global indices alone.
//
// The Morph and Msa links of morph bundles are left to the MorphBundleFixer
// unless RepairBundleLinks is set, which NewChain does when that fixer is
// disabled.
type OriginalFixer struct {
	RepairBundleLinks bool

	pass *PassContext
}

// NewOriginalFixer creates the fixer.
func NewOriginalFixer() *OriginalFixer {
	return &OriginalFixer{}
}

func (f *OriginalFixer) Name() string { return OriginalFixerName }

func (f *OriginalFixer) Reset() { f.pass = nil }

func (f *OriginalFixer) FinalizeIndices(pass *PassContext) { f.pass = pass }

// FixRecord applies every repair to rec.
func (f *OriginalFixer) FixRecord(rec *fwxml.Record, log LogFunc) bool {
	if !f.fixOwner(rec, log) {
		return false
	}
	f.fixPointers(rec, log)
	stripEditable(rec, log)
	for _, tag := range multistringAlternatives {
		dedupeAlternatives(rec, tag, log)
	}
	fixGenDates(rec, log)
	return true
}

// fixOwner makes the owner attribute agree with the owner map. It returns
// false when the record claims an owner that does not exist.
func (f *OriginalFixer) fixOwner(rec *fwxml.Record, log LogFunc) bool {
	guid := rec.GUID()
	realOwner, owned := f.pass.OwnerOf(guid)

	if !rec.HasOwnerAttr() {
		if owned && f.pass.Known(realOwner) {
			rec.SetOwnerGUID(f.pass.RawGUID(realOwner))
			log(fmt.Sprintf("Object with guid '%s' (%s) had no ownerguid; it is owned by '%s'.",
				rec.RawGUID(), rec.Class(), realOwner), true)
		}
		return true
	}

	declared := rec.OwnerGUID()
	if owned && declared != realOwner && f.pass.Known(realOwner) {
		log(fmt.Sprintf("Changed ownerguid of object '%s' (%s) from '%s' to '%s'.",
			rec.RawGUID(), rec.Class(), declared, realOwner), true)
		rec.SetOwnerGUID(f.pass.RawGUID(realOwner))
		return true
	}
	if !f.pass.Known(declared) {
		log(fmt.Sprintf("Removing object '%s' (%s) because its owner '%s' does not exist.",
			rec.RawGUID(), rec.Class(), declared), true)
		return false
	}
	return true
}

// fixPointers removes dangling references and ownership claims that the
// owner map assigns to another record.
func (f *OriginalFixer) fixPointers(rec *fwxml.Record, log LogFunc) {
	guid := rec.GUID()
	var doomed []*fwxml.Pointer
	for _, ptr := range rec.Pointers() {
		target := ptr.Target()
		if !f.pass.Known(target) {
			if !f.RepairBundleLinks && isBundleLink(rec, ptr) {
				continue
			}
			log(fmt.Sprintf("Removing dangling %s to '%s' from %s of object '%s' (%s).",
				ptr.Kind(), target, ptr.Property(), rec.RawGUID(), rec.Class()), true)
			doomed = append(doomed, ptr)
			continue
		}
		if ptr.Kind() != fwxml.Owning {
			continue
		}
		if owner, ok := f.pass.OwnerOf(target); ok && owner != guid {
			log(fmt.Sprintf("Removing excess ownership of '%s' from %s of object '%s' (%s); it is owned by '%s'.",
				target, ptr.Property(), rec.RawGUID(), rec.Class(), owner), true)
			doomed = append(doomed, ptr)
		}
	}
	for _, ptr := range doomed {
		ptr.Detach()
	}
}

func isBundleLink(rec *fwxml.Record, ptr *fwxml.Pointer) bool {
	return rec.Class() == "WfiMorphBundle" && (ptr.Property() == "Morph" || ptr.Property() == "Msa")
}

// stripEditable removes the deprecated editable attribute from text runs.
func stripEditable(rec *fwxml.Record, log LogFunc) {
	for _, run := range rec.Elem.FindElements(".//Run[@editable]") {
		run.RemoveAttr("editable")
		log(fmt.Sprintf("Removed deprecated 'editable' attribute from a text run in object '%s' (%s).",
			rec.RawGUID(), rec.Class()), true)
	}
}

// dedupeAlternatives removes alternatives that repeat the writing system of
// their sorted predecessor within the same parent.
func dedupeAlternatives(rec *fwxml.Record, tag string, log LogFunc) {
	var parents []*etree.Element
	groups := make(map[*etree.Element][]*etree.Element)
	for _, alt := range rec.Elem.FindElements(".//" + tag) {
		parent := alt.Parent()
		if _, seen := groups[parent]; !seen {
			parents = append(parents, parent)
		}
		groups[parent] = append(groups[parent], alt)
	}

	for _, parent := range parents {
		alts := groups[parent]
		if len(alts) < 2 {
			continue
		}
		sort.SliceStable(alts, func(i, j int) bool {
			return alts[i].SelectAttrValue(fwxml.AttrWS, "") < alts[j].SelectAttrValue(fwxml.AttrWS, "")
		})
		for i := 1; i < len(alts); i++ {
			ws := alts[i].SelectAttrValue(fwxml.AttrWS, "")
			if ws != alts[i-1].SelectAttrValue(fwxml.AttrWS, "") {
				continue
			}
			parent.RemoveChild(alts[i])
			log(fmt.Sprintf("Removed duplicate %s alternative for writing system '%s' from %s of object '%s' (%s).",
				tag, ws, parent.Tag, rec.RawGUID(), rec.Class()), true)
		}
	}
}

// fixGenDates resets unparseable generic dates to the unset value.
func fixGenDates(rec *fwxml.Record, log LogFunc) {
	for _, field := range genDateFields[rec.Class()] {
		prop := rec.Property(field)
		if prop == nil {
			continue
		}
		val := prop.SelectAttrValue(fwxml.AttrVal, "")
		if _, err := ParseGenDate(val); err == nil {
			continue
		}
		prop.CreateAttr(fwxml.AttrVal, GenDateUnset)
		log(fmt.Sprintf("Reset invalid %s '%s' of object '%s' (%s) to unset.",
			field, val, rec.RawGUID(), rec.Class()), true)
	}
}
