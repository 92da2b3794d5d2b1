// Package fixup repairs structural corruption in a project file.
//
// A Driver runs whole passes over the file until a pass repairs nothing:
// each pass builds the global indices from the current records, lets every
// Fixer inspect them, then streams the records through the fixers in their
// declared order into a new file. Repairs that only become visible after
// another repair (a deleted owner leaving dangling references behind) are
// picked up by the next pass.
package fixup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/leapstack-labs/lexfix/pkg/fwxml"
)

// ErrNotConverged is returned when the pass limit is reached while passes
// are still making repairs. The original file is left untouched.
var ErrNotConverged = errors.New("repair did not converge")

// Defaults applied by New for zero-valued options.
const (
	DefaultMaxPasses        = 10
	DefaultBackupSuffix     = ".bak"
	DefaultProgressInterval = 1000
)

// Options configures a Driver.
type Options struct {
	// Fixers to apply, in order. Nil means DefaultFixers().
	Fixers []Fixer
	// MaxPasses bounds the number of full passes.
	MaxPasses int
	// BackupSuffix is appended to the input path to name the backup.
	BackupSuffix string
	// ProgressInterval is the number of records between progress updates.
	ProgressInterval int
	// Progress is optional.
	Progress Progress
	// DryRun runs every pass but never replaces the input file.
	DryRun bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result summarizes a run.
type Result struct {
	Passes    int
	Fixed     int
	Warnings  int
	Converged bool
	// Replaced is true when the input file was rewritten.
	Replaced   bool
	BackupPath string
}

// Driver repairs one project file.
type Driver struct {
	path   string
	opts   Options
	logger *slog.Logger
}

// New creates a driver for the file at path.
func New(path string, opts Options) *Driver {
	if opts.Fixers == nil {
		opts.Fixers = DefaultFixers()
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = DefaultBackupSuffix
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{path: path, opts: opts, logger: logger}
}

// Run repairs the file. Either the file is fixed in place (the original
// kept under the backup suffix) or an error is returned and the file is
// untouched. A file that needs no repair is never rewritten.
func (d *Driver) Run(log LogFunc) (*Result, error) {
	if log == nil {
		log = func(string, bool) {}
	}

	res := &Result{}
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			if err := os.Remove(t); err != nil && !errors.Is(err, fs.ErrNotExist) {
				d.logger.Warn("failed to remove pass file", "path", t, "error", err)
			}
		}
		temps = nil
	}

	input := d.path
	for pass := 1; pass <= d.opts.MaxPasses; pass++ {
		output := fmt.Sprintf("%s.pass%d", d.path, pass)
		temps = append(temps, output)

		fixed := 0
		passLog := func(description string, autoFixed bool) {
			if autoFixed {
				fixed++
				res.Fixed++
			} else {
				res.Warnings++
			}
			log(description, autoFixed)
		}

		records, err := d.runPass(input, output, passLog)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		res.Passes = pass
		d.logger.Debug("pass complete", "pass", pass, "records", records, "fixed", fixed)

		if fixed == 0 {
			res.Converged = true
			break
		}
		input = output
	}

	if !res.Converged {
		cleanup()
		log(fmt.Sprintf("Repairs were still being made after %d passes; %s was left unchanged.",
			d.opts.MaxPasses, d.path), false)
		res.Warnings++
		return res, fmt.Errorf("%w after %d passes", ErrNotConverged, d.opts.MaxPasses)
	}

	if d.opts.DryRun || res.Passes == 1 {
		cleanup()
		return res, nil
	}

	final := temps[len(temps)-1]
	temps = temps[:len(temps)-1]
	backup, err := d.swap(final)
	if err != nil {
		temps = append(temps, final)
		cleanup()
		return nil, err
	}
	cleanup()
	res.Replaced = true
	res.BackupPath = backup
	return res, nil
}

// swap moves the input to its backup name and promotes final in its place.
func (d *Driver) swap(final string) (string, error) {
	backup, err := fwxml.ReplaceFile(d.path, final, d.opts.BackupSuffix)
	if err != nil {
		return "", err
	}
	d.logger.Debug("replaced file", "path", d.path, "backup", backup)
	return backup, nil
}

// runPass performs index build, inspection and the output pass, returning
// the number of records read.
func (d *Driver) runPass(inPath, outPath string, log LogFunc) (int, error) {
	for _, f := range d.opts.Fixers {
		f.Reset()
	}

	builder := NewIndexBuilder()
	if err := d.inspect(inPath, builder, log); err != nil {
		return 0, err
	}
	pass := builder.Context()
	for _, f := range d.opts.Fixers {
		f.FinalizeIndices(pass)
	}

	if err := d.write(inPath, outPath, pass, builder.Records(), log); err != nil {
		return 0, err
	}
	return builder.Records(), nil
}

func (d *Driver) inspect(inPath string, builder *IndexBuilder, log LogFunc) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inPath, err)
	}
	defer in.Close()

	r, err := fwxml.NewReader(in)
	if err != nil {
		return err
	}
	for {
		elem, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch elem.Tag {
		case fwxml.CustomFieldsElement:
			for _, f := range d.opts.Fixers {
				if ci, ok := f.(CustomFieldInspector); ok {
					ci.InspectCustomFields(elem)
				}
			}
		case fwxml.RecordElement:
			rec := fwxml.NewRecord(elem)
			builder.Add(rec, log)
			for _, f := range d.opts.Fixers {
				if ri, ok := f.(RecordInspector); ok {
					ri.InspectRecord(rec)
				}
			}
		}
	}
}

func (d *Driver) write(inPath, outPath string, pass *PassContext, total int, log LogFunc) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	r, err := fwxml.NewReader(in)
	if err != nil {
		return err
	}
	w := fwxml.NewWriter(out)
	if err := w.WriteHeader(r.Root()); err != nil {
		return err
	}

	if d.opts.Progress != nil {
		d.opts.Progress.SetRange(total)
	}
	count := 0
	for {
		elem, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if elem.Tag != fwxml.RecordElement {
			if err := w.WriteElement(elem); err != nil {
				return err
			}
			continue
		}

		count++
		if d.opts.Progress != nil && count%d.opts.ProgressInterval == 0 {
			d.opts.Progress.SetPosition(count)
		}

		rec := fwxml.NewRecord(elem)
		if pass.IsDeleted(rec.GUID()) {
			log(fmt.Sprintf("Removing object with guid '%s' (%s) and everything it owns.",
				rec.RawGUID(), rec.Class()), true)
			continue
		}
		if !d.fixRecord(rec, log) {
			continue
		}
		if err := w.WriteElement(elem); err != nil {
			return err
		}
	}
	if d.opts.Progress != nil {
		d.opts.Progress.SetPosition(count)
	}
	return w.Close()
}

func (d *Driver) fixRecord(rec *fwxml.Record, log LogFunc) bool {
	for _, f := range d.opts.Fixers {
		if !f.FixRecord(rec, log) {
			d.logger.Debug("record dropped", "guid", rec.GUID(), "class", rec.Class(), "fixer", f.Name())
			return false
		}
	}
	return true
}
