package output

import (
	"fmt"
	"io"
	"sync"
)

// ProgressBar reports record progress of a repair run on a single terminal
// line. Each SetRange starts a new pass.
type ProgressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	pass  int
	max   int
	dirty bool
}

// NewProgressBar returns a progress reporter writing to w.
func NewProgressBar(w io.Writer, label string) *ProgressBar {
	return &ProgressBar{w: w, label: label}
}

// SetRange starts a pass over total records.
func (p *ProgressBar) SetRange(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pass++
	p.max = total
	p.draw(0)
}

// SetPosition reports the number of records processed in the current pass.
func (p *ProgressBar) SetPosition(pos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw(pos)
}

func (p *ProgressBar) draw(pos int) {
	pct := 100
	if p.max > 0 {
		pct = pos * 100 / p.max
	}
	_, _ = fmt.Fprintf(p.w, "\r%s pass %d: %d/%d records (%d%%)", p.label, p.pass, pos, p.max, pct)
	p.dirty = true
}

// Done ends the progress line.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		_, _ = fmt.Fprintln(p.w)
		p.dirty = false
	}
}

// Passes returns the number of passes started.
func (p *ProgressBar) Passes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pass
}
