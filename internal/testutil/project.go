package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Record renders an rt element. owner may be empty.
func Record(class, guid, owner, body string) string {
	ownerAttr := ""
	if owner != "" {
		ownerAttr = fmt.Sprintf(` ownerguid="%s"`, owner)
	}
	return fmt.Sprintf(`<rt class="%s" guid="%s"%s>%s</rt>`, class, guid, ownerAttr, body)
}

// Owns renders a property holding ownership pointers.
func Owns(prop string, targets ...string) string {
	return pointers(prop, "o", targets)
}

// Refs renders a property holding reference pointers.
func Refs(prop string, targets ...string) string {
	return pointers(prop, "r", targets)
}

func pointers(prop, kind string, targets []string) string {
	var sb strings.Builder
	sb.WriteString("<" + prop + ">")
	for _, t := range targets {
		fmt.Fprintf(&sb, `<objsur guid="%s" t="%s" />`, t, kind)
	}
	sb.WriteString("</" + prop + ">")
	return sb.String()
}

// Project renders a complete project file around the given top-level elements.
func Project(elems ...string) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	sb.WriteString("<languageproject version=\"7000072\">\n")
	for _, e := range elems {
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	sb.WriteString("</languageproject>\n")
	return sb.String()
}

// WriteProject writes a project file into a temp dir and returns its path.
func WriteProject(t testing.TB, elems ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.fwdata")
	if err := os.WriteFile(path, []byte(Project(elems...)), 0o600); err != nil {
		t.Fatalf("failed to write project: %v", err)
	}
	return path
}

// LogEntry is one captured fixer log line.
type LogEntry struct {
	Message   string
	AutoFixed bool
}

// LogCollector captures fixer log output.
type LogCollector struct {
	Entries []LogEntry
}

// Log has the shape of a fixer log callback.
func (c *LogCollector) Log(description string, autoFixed bool) {
	c.Entries = append(c.Entries, LogEntry{Message: description, AutoFixed: autoFixed})
}

// Fixed returns the number of auto-fixed entries.
func (c *LogCollector) Fixed() int {
	n := 0
	for _, e := range c.Entries {
		if e.AutoFixed {
			n++
		}
	}
	return n
}

// Contains reports whether any message contains substr.
func (c *LogCollector) Contains(substr string) bool {
	for _, e := range c.Entries {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
