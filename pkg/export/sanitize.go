package export

import (
	"strings"
	"unicode"
)

// SanitizeTitle reduces a page title to a filesystem-safe name by
// keeping only letters, digits, spaces, hyphens and underscores, then
// trimming trailing whitespace. The result is intentionally permissive
// and not guaranteed unique: two titles may sanitize to the same name,
// in which case the later page overwrites the earlier one's document.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
