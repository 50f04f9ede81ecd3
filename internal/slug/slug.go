package slug

import (
	"strings"

	"github.com/google/uuid"
)

// Make lowercases s and collapses every non-alphanumeric run into a single
// hyphen. Returns "untitled" when nothing usable remains.
func Make(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// WithSuffix appends a short random suffix used to dodge slug collisions.
func WithSuffix(base string) string {
	return base + "-" + uuid.NewString()[:6]
}
