package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString prepares a free-text filter such as a car brand or customer name:
// surrounding space is trimmed, inner whitespace runs fold to one space, control
// characters are dropped and the result is cut to maxLen bytes on a rune boundary.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		size := utf8.RuneLen(r)
		if pendingSpace && b.Len() > 0 {
			size++
		}
		if maxLen > 0 && b.Len()+size > maxLen {
			break
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
