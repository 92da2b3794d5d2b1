package fwxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// ErrUnexpectedRoot is returned when the document element is not a project container.
var ErrUnexpectedRoot = errors.New("unexpected root element")

// Reader streams the top-level elements of a project file.
//
// It uses RawToken so that namespace prefixes are kept exactly as written;
// element nesting is verified by the reader itself.
type Reader struct {
	dec  *xml.Decoder
	root xml.StartElement
	done bool
}

// NewReader consumes the prolog and the root start tag. It fails with
// ErrUnexpectedRoot before anything else is read when the document element
// is not <languageproject>.
func NewReader(r io.Reader) (*Reader, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: document is empty", ErrUnexpectedRoot)
			}
			return nil, fmt.Errorf("failed to read prolog: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if qualified(start.Name) != RootElement {
			return nil, fmt.Errorf("%w: <%s>", ErrUnexpectedRoot, qualified(start.Name))
		}
		return &Reader{dec: dec, root: start.Copy()}, nil
	}
}

// Root returns the root start element, including its attributes.
func (r *Reader) Root() xml.StartElement {
	return r.root
}

// Next returns the next top-level element (a record, the custom field
// block, or anything else the file carries). It returns io.EOF once the
// root end tag has been read.
func (r *Reader) Next() (*etree.Element, error) {
	if r.done {
		return nil, io.EOF
	}
	for {
		tok, err := r.dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("missing </%s>: %w", RootElement, io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return r.readElement(t)
		case xml.EndElement:
			if qualified(t.Name) != RootElement {
				return nil, fmt.Errorf("unexpected </%s> at top level", qualified(t.Name))
			}
			r.done = true
			return nil, io.EOF
		}
	}
}

// readElement materializes the subtree rooted at start.
func (r *Reader) readElement(start xml.StartElement) (*etree.Element, error) {
	root := newElement(start)
	stack := []*etree.Element{root}
	for len(stack) > 0 {
		tok, err := r.dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("reading <%s>: %w", root.Tag, err)
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			child := newElement(t)
			top.AddChild(child)
			stack = append(stack, child)
		case xml.EndElement:
			if name := qualified(t.Name); name != top.FullTag() {
				return nil, fmt.Errorf("element <%s> closed by </%s>", top.FullTag(), name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			top.AddChild(etree.NewText(string(t)))
		case xml.Comment:
			top.CreateComment(string(t))
		case xml.ProcInst:
			top.CreateProcInst(t.Target, string(t.Inst))
		}
	}
	return root, nil
}

func newElement(start xml.StartElement) *etree.Element {
	e := etree.NewElement(qualified(start.Name))
	for _, a := range start.Attr {
		e.CreateAttr(qualified(a.Name), a.Value)
	}
	return e
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
