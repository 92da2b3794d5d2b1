// Package circularref finds and breaks cycles among complex-form references.
//
// A complex-form reference owned by entry A that lists entry B (or one of
// B's senses) as a primary lexeme makes A depend on B. A chain of such
// dependencies that returns to its start is a cycle. Each cycle is broken by
// dropping one link, chosen by headword length.
package circularref

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/lexfix/pkg/lexicon"
)

// Report summarizes one run.
type Report struct {
	// Checked is the number of complex-form references examined.
	Checked int
	// Fixed is the number of cycles broken.
	Fixed int
	// Text has one line per repair.
	Text string
}

// Service breaks cycles in a lexicon.
type Service struct {
	logger *slog.Logger
}

// NewService creates a service. logger may be nil.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{logger: logger}
}

// BreakCycles examines every complex-form reference once and breaks every
// cycle it finds. Afterwards the reference graph is acyclic.
func (s *Service) BreakCycles(lex *lexicon.Lexicon) Report {
	var (
		report Report
		lines  []string
	)
	done := make(map[*lexicon.EntryRef]bool)
	for _, ref := range lex.ComplexForms() {
		// Earlier repairs may have deleted this reference.
		if !ref.IsComplexForm() || ref.Owner == nil {
			continue
		}
		report.Checked++
		if done[ref] {
			continue
		}
		for {
			cycle := findCycle(lex, ref, done)
			if cycle == nil {
				break
			}
			report.Fixed++
			line := s.repair(lex, cycle)
			lines = append(lines, line)
			if !ref.IsComplexForm() {
				break
			}
		}
	}
	report.Text = strings.Join(lines, "\n")
	return report
}

// frame is one reference on the DFS path.
type frame struct {
	ref     *lexicon.EntryRef
	targets []string
	next    int
	pending []*lexicon.EntryRef
}

// findCycle runs a depth-first search from start. It returns the references
// forming the first cycle found, from the reference whose owner closes the
// cycle to the reference that closes it, or nil. References fully explored
// without finding a cycle are added to done.
func findCycle(lex *lexicon.Lexicon, start *lexicon.EntryRef, done map[*lexicon.EntryRef]bool) []*lexicon.EntryRef {
	seen := make(map[*lexicon.Entry]bool)
	var path []*frame
	push := func(ref *lexicon.EntryRef) {
		seen[ref.Owner] = true
		path = append(path, &frame{ref: ref, targets: ref.PrimaryLexemes})
	}
	push(start)

	for len(path) > 0 {
		top := path[len(path)-1]
		if len(top.pending) > 0 {
			next := top.pending[0]
			top.pending = top.pending[1:]
			if next.IsComplexForm() && !done[next] {
				push(next)
			}
			continue
		}
		if top.next < len(top.targets) {
			target := lex.OwningEntry(top.targets[top.next])
			top.next++
			if target == nil {
				continue
			}
			if seen[target] {
				return witness(path, target)
			}
			top.pending = target.ComplexForms()
			continue
		}
		done[top.ref] = true
		delete(seen, top.ref.Owner)
		path = path[:len(path)-1]
	}
	return nil
}

func witness(path []*frame, closing *lexicon.Entry) []*lexicon.EntryRef {
	var cycle []*lexicon.EntryRef
	for i, f := range path {
		if f.ref.Owner == closing {
			for _, g := range path[i:] {
				cycle = append(cycle, g.ref)
			}
			break
		}
	}
	return cycle
}

// repair drops one link of the cycle. The shorter headword keeps its
// reference and loses the longer entry from it. When that link is not part
// of the cycle, or on a tie, the closing link is dropped instead.
func (s *Service) repair(lex *lexicon.Lexicon, cycle []*lexicon.EntryRef) string {
	first, last := cycle[0], cycle[len(cycle)-1]
	firstLen := utf8.RuneCountInString(first.Owner.Headword)
	lastLen := utf8.RuneCountInString(last.Owner.Headword)

	ref, drop := last, first.Owner
	if firstLen < lastLen && lex.RemoveTarget(first, last.Owner) > 0 {
		ref, drop = first, last.Owner
	} else {
		lex.RemoveTarget(last, first.Owner)
	}

	line := fmt.Sprintf("Removed '%s' from the components of complex form '%s' to break a circular reference.",
		drop.Headword, ref.Owner.Headword)
	if len(ref.ComponentLexemes) == 0 {
		lex.DeleteEntryRef(ref)
		line += fmt.Sprintf(" The reference had no components left and was deleted from '%s'.", ref.Owner.Headword)
	}
	s.logger.Debug("broke circular reference", "ref", ref.GUID, "entry", ref.Owner.GUID, "removed", drop.GUID)
	return line
}
