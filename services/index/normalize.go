package index

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s and collapses every run of whitespace into a single
// space. Terms are always written and read through Normalize.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
