package fwxml

import (
	"strings"

	"github.com/beevik/etree"
)

// Element and attribute names of the project file format.
const (
	RootElement         = "languageproject"
	RecordElement       = "rt"
	CustomFieldsElement = "AdditionalFields"
	PointerElement      = "objsur"

	AttrGUID  = "guid"
	AttrClass = "class"
	AttrOwner = "ownerguid"
	AttrKind  = "t"
	AttrVal   = "val"
	AttrWS    = "ws"
)

// Kind distinguishes owning pointers from plain references.
type Kind int

const (
	// Reference is a non-owning pointer (t="r").
	Reference Kind = iota
	// Owning asserts exclusive ownership of the target (t="o").
	Owning
)

func (k Kind) String() string {
	if k == Owning {
		return "ownership"
	}
	return "reference"
}

// Record is one rt element of the project file.
type Record struct {
	Elem *etree.Element
}

// NewRecord wraps an rt element.
func NewRecord(elem *etree.Element) *Record {
	return &Record{Elem: elem}
}

// GUID returns the normalized identity of the record.
func (r *Record) GUID() string {
	return NormalizeGUID(r.Elem.SelectAttrValue(AttrGUID, ""))
}

// RawGUID returns the identity attribute exactly as written.
func (r *Record) RawGUID() string {
	return r.Elem.SelectAttrValue(AttrGUID, "")
}

// Class returns the class name of the record.
func (r *Record) Class() string {
	return r.Elem.SelectAttrValue(AttrClass, "")
}

// HasOwnerAttr reports whether the record declares an owner.
func (r *Record) HasOwnerAttr() bool {
	return r.Elem.SelectAttr(AttrOwner) != nil
}

// OwnerGUID returns the normalized declared owner, or "" when absent.
func (r *Record) OwnerGUID() string {
	return NormalizeGUID(r.Elem.SelectAttrValue(AttrOwner, ""))
}

// SetOwnerGUID creates or overwrites the owner attribute.
func (r *Record) SetOwnerGUID(guid string) {
	r.Elem.CreateAttr(AttrOwner, guid)
}

// Property returns the first direct child element with the given name.
func (r *Record) Property(name string) *etree.Element {
	return r.Elem.SelectElement(name)
}

// PropertyVal returns the val attribute of a property element such as
// <HomographNumber val="2" />, or "" when the property is absent.
func (r *Record) PropertyVal(name string) string {
	if p := r.Property(name); p != nil {
		return p.SelectAttrValue(AttrVal, "")
	}
	return ""
}

// Pointers returns every objsur element in the record subtree in document order.
func (r *Record) Pointers() []*Pointer {
	elems := r.Elem.FindElements(".//" + PointerElement)
	ptrs := make([]*Pointer, 0, len(elems))
	for _, e := range elems {
		ptrs = append(ptrs, &Pointer{Elem: e})
	}
	return ptrs
}

// PropertyPointers returns the objsur elements directly inside the named property.
func (r *Record) PropertyPointers(name string) []*Pointer {
	p := r.Property(name)
	if p == nil {
		return nil
	}
	var ptrs []*Pointer
	for _, e := range p.SelectElements(PointerElement) {
		ptrs = append(ptrs, &Pointer{Elem: e})
	}
	return ptrs
}

// FirstPointerTarget returns the target of the first pointer in the named
// property, or "" when there is none.
func (r *Record) FirstPointerTarget(name string) string {
	ptrs := r.PropertyPointers(name)
	if len(ptrs) == 0 {
		return ""
	}
	return ptrs[0].Target()
}

// Pointer is an objsur element.
type Pointer struct {
	Elem *etree.Element
}

// Target returns the normalized identity the pointer refers to.
func (p *Pointer) Target() string {
	return NormalizeGUID(p.Elem.SelectAttrValue(AttrGUID, ""))
}

// SetTarget re-points the pointer.
func (p *Pointer) SetTarget(guid string) {
	p.Elem.CreateAttr(AttrGUID, guid)
}

// Kind returns whether the pointer owns its target.
func (p *Pointer) Kind() Kind {
	if p.Elem.SelectAttrValue(AttrKind, "") == "o" {
		return Owning
	}
	return Reference
}

// Property returns the tag of the element containing the pointer.
func (p *Pointer) Property() string {
	if parent := p.Elem.Parent(); parent != nil {
		return parent.Tag
	}
	return ""
}

// Detach removes the pointer from its record. When that leaves the
// enclosing property element without element children or text, the
// property element is removed as well. It reports whether the wrapper went.
func (p *Pointer) Detach() bool {
	parent := p.Elem.Parent()
	if parent == nil {
		return false
	}
	parent.RemoveChild(p.Elem)
	if parent.Tag == RecordElement || !IsEmpty(parent) {
		return false
	}
	grand := parent.Parent()
	if grand == nil {
		return false
	}
	grand.RemoveChild(parent)
	return true
}

// IsEmpty reports whether e has no child elements and no non-whitespace text.
func IsEmpty(e *etree.Element) bool {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			return false
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return false
			}
		}
	}
	return true
}

// Alternative returns the text of the ws-tagged alternative (AUni or AStr)
// inside a multistring property, or "" when absent.
func Alternative(prop *etree.Element, ws string) string {
	if prop == nil {
		return ""
	}
	for _, alt := range prop.ChildElements() {
		if alt.SelectAttrValue(AttrWS, "") == ws {
			return TextOf(alt)
		}
	}
	return ""
}

// FirstAlternative returns the text of the first non-empty alternative in a
// multistring property.
func FirstAlternative(prop *etree.Element) string {
	if prop == nil {
		return ""
	}
	for _, alt := range prop.ChildElements() {
		if t := TextOf(alt); t != "" {
			return t
		}
	}
	return ""
}

// TextOf returns the concatenated character data of e and its descendants,
// so that formatted strings (AStr with Run children) yield their plain text.
func TextOf(e *etree.Element) string {
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(e)
	return sb.String()
}
