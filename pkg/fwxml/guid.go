package fwxml

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeGUID returns the comparison form of an identity attribute.
// Values that parse as UUIDs (with or without braces or a urn prefix) are
// rendered in canonical lowercase form; anything else is trimmed and
// lowercased so that malformed identities still compare consistently.
func NormalizeGUID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	return strings.ToLower(s)
}
