package intent

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes text for pattern comparison: lowercase, every rune
// that is not a letter, digit, or underscore becomes a single space, and the
// result is trimmed. The same function is applied to catalog patterns at load
// time and to user text at request time; the two sides must never diverge.
func Normalize(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
