// Package ini renders ordered sections of key-value entries into the
// INI-style text systemd Quadlet unit files require. Section order,
// blank-line placement, and value quoting are bit-significant to the
// external generator that later consumes these files, so this package
// hand-rolls the serialization instead of going through a general-purpose
// INI library -- the contract here is narrower and stricter than what a
// generic reader/writer guarantees.
package ini

import (
	"strings"

	"github.com/aryonoco/divban/internal/entry"
)

// Section is a single named INI section together with its ordered entries.
type Section struct {
	Name    string
	Entries entry.Entries
}

// canonicalOrder is the fixed section order the Quadlet generator expects.
// Any section name not listed here is emitted after these, in the order it
// was first encountered in the input.
var canonicalOrder = []string{"Unit", "Container", "Network", "Volume", "Service", "Install"}

// Render serializes sections to a single string. Sections with zero
// entries are omitted entirely. The fixed sections appear in
// canonicalOrder; any other section name is appended afterward in
// encounter order. The file always ends in exactly one trailing newline.
func Render(sections []Section) string {
	byName := make(map[string]entry.Entries, len(sections))
	var extra []string
	seen := make(map[string]bool, len(sections))

	for _, s := range sections {
		if len(s.Entries) == 0 {
			continue
		}
		byName[s.Name] = s.Entries
		if !seen[s.Name] {
			seen[s.Name] = true
			if !isCanonical(s.Name) {
				extra = append(extra, s.Name)
			}
		}
	}

	order := make([]string, 0, len(canonicalOrder)+len(extra))
	order = append(order, canonicalOrder...)
	order = append(order, extra...)

	var blocks []string
	for _, name := range order {
		entries, ok := byName[name]
		if !ok || len(entries) == 0 {
			continue
		}
		blocks = append(blocks, renderSection(name, entries))
	}

	if len(blocks) == 0 {
		return ""
	}

	return strings.Join(blocks, "\n\n") + "\n"
}

func isCanonical(name string) bool {
	for _, n := range canonicalOrder {
		if n == name {
			return true
		}
	}
	return false
}

func renderSection(name string, entries entry.Entries) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(name)
	b.WriteString("]")
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(e.Key)
		b.WriteString("=")
		b.WriteString(EscapeValue(e.Value))
	}
	return b.String()
}

// EscapeValue quotes a value if it contains a space, double quote, single
// quote, or equals sign, backslash-escaping any embedded double quote.
// Values that need no quoting are emitted verbatim.
func EscapeValue(v string) string {
	if !needsQuoting(v) {
		return v
	}
	escaped := strings.ReplaceAll(v, `"`, `\"`)
	return `"` + escaped + `"`
}

func needsQuoting(v string) bool {
	return strings.ContainsAny(v, ` "'=`)
}
