package fixup

import (
	"fmt"
	"sort"
	"strings"
)

// Fixer names, in the order the driver applies them. Later fixers rely on
// corrections made by earlier ones.
const (
	OriginalFixerName    = "original"
	MorphBundleFixerName = "morph-bundle"
	CustomFieldFixerName = "custom-field"
	HomographFixerName   = "homograph"
)

type fixerDef struct {
	name string
	new  func() Fixer
}

// chain is the declared fixer order. Fixers are stateful, so each run
// constructs its own instances.
var chain = []fixerDef{
	{OriginalFixerName, func() Fixer { return NewOriginalFixer() }},
	{MorphBundleFixerName, func() Fixer { return NewMorphBundleFixer() }},
	{CustomFieldFixerName, func() Fixer { return NewCustomFieldFixer() }},
	{HomographFixerName, func() Fixer { return NewHomographFixer() }},
}

// Names returns the names of all fixers in application order.
func Names() []string {
	names := make([]string, 0, len(chain))
	for _, def := range chain {
		names = append(names, def.name)
	}
	return names
}

// DefaultFixers returns fresh instances of every fixer in application order.
func DefaultFixers() []Fixer {
	fixers, _ := NewChain(nil)
	return fixers
}

// NewChain returns fresh fixers in application order, leaving out the
// disabled ones. Unknown names are an error. Without the morph bundle fixer,
// the original fixer takes over dangling bundle links.
func NewChain(disabled []string) ([]Fixer, error) {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[strings.TrimSpace(name)] = true
	}
	var (
		fixers   []Fixer
		original *OriginalFixer
		bundles  bool
	)
	for _, def := range chain {
		if skip[def.name] {
			delete(skip, def.name)
			continue
		}
		f := def.new()
		switch f := f.(type) {
		case *OriginalFixer:
			original = f
		case *MorphBundleFixer:
			bundles = true
		}
		fixers = append(fixers, f)
	}
	if len(skip) > 0 {
		unknown := make([]string, 0, len(skip))
		for name := range skip {
			unknown = append(unknown, name)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fixer(s) %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(Names(), ", "))
	}
	if original != nil && !bundles {
		original.RepairBundleLinks = true
	}
	return fixers, nil
}
