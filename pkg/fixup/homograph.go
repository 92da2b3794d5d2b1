package fixup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/leapstack-labs/lexfix/pkg/fwxml"
	"golang.org/x/text/unicode/norm"
)

var allomorphClasses = map[string]bool{
	"MoStemAllomorph":  true,
	"MoAffixAllomorph": true,
	"MoAffixProcess":   true,
}

type homographEntry struct {
	number     string
	lexemeForm string
	citation   *etree.Element
}

type allomorph struct {
	guid      string
	form      *etree.Element
	morphType string
}

// HomographFixer renumbers lexical entries that share a form and morph
// type so that each colliding group is numbered 1..N. Entries keep their
// current number whenever it is still valid, so repeated runs do not
// shuffle numbers around.
type HomographFixer struct {
	allomorphs  []allomorph
	morphTypes  map[string]string // morph type guid -> secondary order
	entries     map[string]*homographEntry
	lexemeForms map[string]string // allomorph guid -> entry guid
	homographWS string
	vernWS      string
	numbers     map[string]int
}

// NewHomographFixer creates the fixer.
func NewHomographFixer() *HomographFixer {
	f := &HomographFixer{}
	f.Reset()
	return f
}

func (f *HomographFixer) Name() string { return HomographFixerName }

func (f *HomographFixer) Reset() {
	f.allomorphs = nil
	f.morphTypes = make(map[string]string)
	f.entries = make(map[string]*homographEntry)
	f.lexemeForms = make(map[string]string)
	f.homographWS = ""
	f.vernWS = ""
	f.numbers = make(map[string]int)
}

// InspectRecord remembers the data needed to group entries.
func (f *HomographFixer) InspectRecord(rec *fwxml.Record) {
	class := rec.Class()
	switch {
	case allomorphClasses[class]:
		f.allomorphs = append(f.allomorphs, allomorph{
			guid:      rec.GUID(),
			form:      rec.Property("Form"),
			morphType: rec.FirstPointerTarget("MorphType"),
		})
	case class == "MoMorphType":
		if order := rec.PropertyVal("SecondaryOrder"); order != "" {
			f.morphTypes[rec.GUID()] = order
		}
	case class == "LexEntry":
		guid := rec.GUID()
		number := rec.PropertyVal("HomographNumber")
		if number == "" {
			number = "0"
		}
		e := &homographEntry{
			number:     number,
			lexemeForm: rec.FirstPointerTarget("LexemeForm"),
			citation:   rec.Property("CitationForm"),
		}
		f.entries[guid] = e
		if e.lexemeForm != "" {
			if _, taken := f.lexemeForms[e.lexemeForm]; !taken {
				f.lexemeForms[e.lexemeForm] = guid
			}
		}
	case class == "LangProject":
		if ws := uniText(rec.Property("HomographWs")); ws != "" {
			f.homographWS = ws
		}
		if vern := strings.Fields(uniText(rec.Property("CurVernWss"))); len(vern) > 0 {
			f.vernWS = vern[0]
		}
	}
}

// FinalizeIndices groups entries by homograph key and assigns numbers.
func (f *HomographFixer) FinalizeIndices(_ *PassContext) {
	var keys []string
	groups := make(map[string][]string)
	grouped := make(map[string]bool)
	for _, a := range f.allomorphs {
		entryGUID, ok := f.lexemeForms[a.guid]
		if !ok || grouped[entryGUID] {
			continue
		}
		key, ok := f.key(f.entries[entryGUID], a)
		if !ok {
			continue
		}
		grouped[entryGUID] = true
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], entryGUID)
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		for i, guid := range f.assignSlots(group) {
			f.numbers[guid] = i + 1
		}
	}
}

// assignSlots keeps every valid, unclaimed current number in place and fills
// the remaining slots in encounter order.
func (f *HomographFixer) assignSlots(group []string) []string {
	slots := make([]string, len(group))
	var rest []string
	for _, guid := range group {
		n, err := strconv.Atoi(f.entries[guid].number)
		if err == nil && n >= 1 && n <= len(group) && slots[n-1] == "" {
			slots[n-1] = guid
			continue
		}
		rest = append(rest, guid)
	}
	for i := range slots {
		if slots[i] == "" {
			slots[i] = rest[0]
			rest = rest[1:]
		}
	}
	return slots
}

func (f *HomographFixer) key(e *homographEntry, a allomorph) (string, bool) {
	if a.morphType == "" {
		return "", false
	}
	ws := f.ws()
	if cit := strings.TrimSpace(alternativeText(e.citation, ws)); cit != "" {
		return norm.NFC.String(cit), true
	}
	form := strings.TrimSpace(alternativeText(a.form, ws))
	if form == "" {
		return "", false
	}
	key := norm.NFC.String(form)
	if order, ok := f.morphTypes[a.morphType]; ok {
		key += "|" + order
	}
	return key, true
}

func (f *HomographFixer) ws() string {
	if f.homographWS != "" {
		return f.homographWS
	}
	return f.vernWS
}

// FixRecord writes the computed homograph number into lexical entries.
func (f *HomographFixer) FixRecord(rec *fwxml.Record, log LogFunc) bool {
	if rec.Class() != "LexEntry" {
		return true
	}
	n := f.numbers[rec.GUID()]
	want := strconv.Itoa(n)

	prop := rec.Property("HomographNumber")
	if prop == nil {
		if n != 0 {
			prop = rec.Elem.CreateElement("HomographNumber")
			prop.CreateAttr(fwxml.AttrVal, want)
			log(fmt.Sprintf("Set homograph number of entry '%s' to %d.", rec.RawGUID(), n), true)
		}
		return true
	}

	cur := prop.SelectAttrValue(fwxml.AttrVal, "")
	if cur == want || (cur == "" && n == 0) {
		return true
	}
	prop.CreateAttr(fwxml.AttrVal, want)
	log(fmt.Sprintf("Changed homograph number of entry '%s' from '%s' to %d.", rec.RawGUID(), cur, n), true)
	return true
}

func alternativeText(prop *etree.Element, ws string) string {
	if ws == "" {
		return fwxml.FirstAlternative(prop)
	}
	return fwxml.Alternative(prop, ws)
}

// uniText returns the text of the Uni child of a property such as
// <HomographWs><Uni>fr</Uni></HomographWs>.
func uniText(prop *etree.Element) string {
	if prop == nil {
		return ""
	}
	if uni := prop.SelectElement("Uni"); uni != nil {
		return strings.TrimSpace(uni.Text())
	}
	return ""
}
