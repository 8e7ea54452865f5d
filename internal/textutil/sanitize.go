package textutil

import (
	"strings"
	"unicode"
)

// SanitizeToken reduces value to a lowercase token usable as a single path
// element. ASCII letters, digits, '-' and '_' survive; any run of other
// characters collapses to one '_'. Leading and trailing separators are
// trimmed and an empty result becomes "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pending := false
	for _, r := range strings.TrimSpace(value) {
		r = unicode.ToLower(r)
		keep := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
		if !keep {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}
