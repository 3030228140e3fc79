package prompt

import "strings"

// Separator joins the parts of a composed prompt.
const Separator = ", "

// Compose joins base and the selected values, in selection order, with
// Separator. Empty and whitespace-only parts are skipped; kept parts are
// not trimmed.
func Compose(base string, sel *Selections) string {
	parts := make([]string, 0, 1+sel.Len())
	parts = append(parts, base)
	parts = append(parts, sel.Values()...)

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, Separator)
}
