package fixup

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

type morphBundle struct {
	guid    string
	morph   string
	msa     string
	sense   string
	hasForm bool
}

// MorphBundleFixer repairs the Morph and Msa links of word-form morph
// bundles, which the OriginalFixer leaves alone. A dangling Msa is
// re-pointed at the linked sense's analysis when possible; a bundle with
// nothing left to describe it is deleted.
type MorphBundleFixer struct {
	pass     *PassContext
	senseMsa map[string]string
	bundles  []morphBundle
}

// NewMorphBundleFixer creates the fixer.
func NewMorphBundleFixer() *MorphBundleFixer {
	f := &MorphBundleFixer{}
	f.Reset()
	return f
}

func (f *MorphBundleFixer) Name() string { return MorphBundleFixerName }

func (f *MorphBundleFixer) Reset() {
	f.pass = nil
	f.senseMsa = make(map[string]string)
	f.bundles = nil
}

func (f *MorphBundleFixer) InspectRecord(rec *fwxml.Record) {
	switch rec.Class() {
	case "LexSense":
		if msa := rec.FirstPointerTarget("MorphoSyntaxAnalysis"); msa != "" {
			f.senseMsa[rec.GUID()] = msa
		}
	case "WfiMorphBundle":
		b := morphBundle{
			guid:  rec.GUID(),
			morph: rec.FirstPointerTarget("Morph"),
			msa:   rec.FirstPointerTarget("Msa"),
			sense: rec.FirstPointerTarget("Sense"),
		}
		if form := rec.Property("Form"); form != nil {
			b.hasForm = strings.TrimSpace(fwxml.TextOf(form)) != ""
		}
		f.bundles = append(f.bundles, b)
	}
}

// FinalizeIndices flags bundles that have no live link and no form.
func (f *MorphBundleFixer) FinalizeIndices(pass *PassContext) {
	f.pass = pass
	live := func(guid string) bool { return guid != "" && pass.Known(guid) }
	for _, b := range f.bundles {
		if b.hasForm || live(b.morph) || live(b.msa) || live(b.sense) {
			continue
		}
		pass.MarkForDeletion(b.guid)
	}
}

func (f *MorphBundleFixer) FixRecord(rec *fwxml.Record, log LogFunc) bool {
	if rec.Class() != "WfiMorphBundle" {
		return true
	}

	for _, ptr := range rec.PropertyPointers("Msa") {
		target := ptr.Target()
		if f.pass.Known(target) {
			continue
		}
		if msa := f.senseAnalysis(rec.FirstPointerTarget("Sense")); msa != "" {
			ptr.SetTarget(msa)
			log(fmt.Sprintf("Morph bundle '%s' pointed to missing analysis '%s'; now uses its sense's analysis '%s'.",
				rec.RawGUID(), target, msa), true)
			continue
		}
		ptr.Detach()
		log(fmt.Sprintf("Removed missing analysis '%s' from morph bundle '%s'.", target, rec.RawGUID()), true)
	}

	for _, ptr := range rec.PropertyPointers("Morph") {
		target := ptr.Target()
		if f.pass.Known(target) {
			continue
		}
		ptr.Detach()
		log(fmt.Sprintf("Removed missing morph '%s' from morph bundle '%s'.", target, rec.RawGUID()), true)
	}
	return true
}

// senseAnalysis returns the live analysis of a live sense, or "".
func (f *MorphBundleFixer) senseAnalysis(sense string) string {
	if sense == "" || !f.pass.Known(sense) {
		return ""
	}
	msa := f.senseMsa[sense]
	if msa == "" || !f.pass.Known(msa) {
		return ""
	}
	return msa
}
