package fwxml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

const xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>`

// Writer writes a project file one top-level element at a time.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter returns a Writer that buffers output to w. Call Close to
// finish the document; it does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteHeader writes the XML declaration and the root start tag.
func (w *Writer) WriteHeader(root xml.StartElement) error {
	var sb strings.Builder
	sb.WriteString(xmlDeclaration)
	sb.WriteString("\n<")
	sb.WriteString(qualified(root.Name))
	for _, a := range root.Attr {
		sb.WriteByte(' ')
		sb.WriteString(qualified(a.Name))
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(a.Value))
		sb.WriteByte('"')
	}
	sb.WriteString(">\n")
	_, err := w.bw.WriteString(sb.String())
	return err
}

// WriteElement writes a top-level element followed by a newline.
func (w *Writer) WriteElement(e *etree.Element) error {
	doc := etree.NewDocument()
	doc.SetRoot(e)
	if _, err := doc.WriteTo(w.bw); err != nil {
		return fmt.Errorf("writing <%s>: %w", e.Tag, err)
	}
	return w.bw.WriteByte('\n')
}

// Close writes the root end tag and flushes buffered output.
func (w *Writer) Close() error {
	if _, err := w.bw.WriteString("</" + RootElement + ">\n"); err != nil {
		return err
	}
	return w.bw.Flush()
}

func escapeAttr(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
