package fixup

// PassContext holds the indices shared by every fixer during one pass.
// It is rebuilt from scratch at the start of each pass.
type PassContext struct {
	// Guids is the identity set.
	Guids map[string]struct{}
	// Spellings maps an identity to its guid attribute as first written.
	Spellings map[string]string
	// Owners maps an owned identity to its owner's identity.
	Owners map[string]string
	// OwnedChildren maps an owner to its directly owned children, in
	// document order. Records without children have no entry.
	OwnedChildren map[string][]string
	// Deleted holds identities to drop from this pass's output.
	Deleted map[string]struct{}
}

// NewPassContext returns an empty context.
func NewPassContext() *PassContext {
	return &PassContext{
		Guids:         make(map[string]struct{}),
		Spellings:     make(map[string]string),
		Owners:        make(map[string]string),
		OwnedChildren: make(map[string][]string),
		Deleted:       make(map[string]struct{}),
	}
}

// Known reports whether guid is in the identity set.
func (p *PassContext) Known(guid string) bool {
	_, ok := p.Guids[guid]
	return ok
}

// RawGUID returns guid as its record spells it, or guid itself when no
// record declared it.
func (p *PassContext) RawGUID(guid string) string {
	if raw, ok := p.Spellings[guid]; ok {
		return raw
	}
	return guid
}

// OwnerOf returns the recorded owner of guid.
func (p *PassContext) OwnerOf(guid string) (string, bool) {
	owner, ok := p.Owners[guid]
	return owner, ok
}

// IsDeleted reports whether guid has been flagged for removal.
func (p *PassContext) IsDeleted(guid string) bool {
	_, ok := p.Deleted[guid]
	return ok
}

// MarkForDeletion flags guid and its whole ownership closure for removal and
// returns how many identities were newly flagged.
func (p *PassContext) MarkForDeletion(guid string) int {
	added := 0
	work := []string{guid}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if p.IsDeleted(id) {
			continue
		}
		p.Deleted[id] = struct{}{}
		added++
		work = append(work, p.OwnedChildren[id]...)
	}
	return added
}
