package testutil

import "fmt"

// Entry renders a LexEntry with a citation form and the given entry references.
func Entry(guid, headword string, refs ...string) string {
	body := fmt.Sprintf(`<CitationForm><AUni ws="fr">%s</AUni></CitationForm>`, headword)
	if len(refs) > 0 {
		body += Owns("EntryRefs", refs...)
	}
	return Record("LexEntry", guid, "", body)
}

// ComplexForm renders a complex-form LexEntryRef whose components are also
// its primary lexemes.
func ComplexForm(guid, owner string, components ...string) string {
	body := `<RefType val="1" />` + Refs("ComponentLexemes", components...) + Refs("PrimaryLexemes", components...)
	return Record("LexEntryRef", guid, owner, body)
}
