package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a logical device attribute a spreadsheet column can map to.
type Field string

const (
	FieldSite          Field = "site"
	FieldOwner         Field = "owner"
	FieldMAC           Field = "mac"
	FieldDeviceType    Field = "deviceType"
	FieldArea          Field = "area"
	FieldLocationPoint Field = "locationPoint"
	FieldBrand         Field = "brand"
	FieldModel         Field = "model"
	FieldSerial        Field = "serial"
	FieldHostname      Field = "hostname"
	FieldNotes         Field = "notes"
)

// columnSynonyms lists the header fragments that identify each field. Headers are folded (accents removed, lower-cased)
// before matching, so synonyms are written folded too.
var columnSynonyms = []struct {
	field    Field
	synonyms []string
}{
	{FieldSite, []string{"ap", "access point", "sitio", "site"}},
	{FieldOwner, []string{"dueno", "owner", "usuario", "user"}},
	{FieldMAC, []string{"mac", "mac address"}},
	{FieldDeviceType, []string{"tipo", "device type", "type"}},
	{FieldArea, []string{"area"}},
	{FieldLocationPoint, []string{"punto", "ubicacion", "location"}},
	{FieldBrand, []string{"marca", "brand"}},
	{FieldModel, []string{"modelo", "model"}},
	{FieldSerial, []string{"serial", "serie"}},
	{FieldHostname, []string{"hostname", "host"}},
	{FieldNotes, []string{"notas", "notes"}},
}

// requiredFields must have a column for an import to start. The site may
// instead come from a fallback.
var requiredFields = []Field{FieldOwner, FieldMAC, FieldDeviceType, FieldArea, FieldLocationPoint}

// ColumnMap maps a field to its 0-based column index.
type ColumnMap map[Field]int

// MapColumns matches header cells to fields. A header is assigned to every
// field whose synonyms it contains, and a later column replaces an earlier
// one for the same field. Unrecognized headers are ignored.
func MapColumns(header []string) ColumnMap {
	m := make(ColumnMap)
	for i, cell := range header {
		name := foldHeader(cell)
		if name == "" {
			continue
		}
		for _, cs := range columnSynonyms {
			if containsAny(name, cs.synonyms) {
				m[cs.field] = i
			}
		}
	}
	return m
}

// Missing returns the required fields without a column. The site is only
// required when fallbackSite is empty.
func (m ColumnMap) Missing(fallbackSite string) []Field {
	var missing []Field
	for _, f := range requiredFields {
		if _, ok := m[f]; !ok {
			missing = append(missing, f)
		}
	}
	if _, ok := m[FieldSite]; !ok && strings.TrimSpace(fallbackSite) == "" {
		missing = append(missing, FieldSite)
	}
	return missing
}

// foldHeader lower-cases s, removes diacritics and trims surrounding space.
func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(strings.ToLower(folded))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
