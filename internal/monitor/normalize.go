package monitor

import "strings"

// separators are the characters folded into spaces during normalization,
// in addition to all whitespace.
const separators = ".,!?;:'\"()[]{}/\\|-_"

func isSeparator(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
		return true
	}
	return strings.ContainsRune(separators, r)
}

// Normalize folds text into a canonical comparable form: ASCII lowercase,
// with every run of whitespace, hyphens, underscores, and common punctuation
// collapsed to a single space, then trimmed. It is pure and idempotent, so
// "iPhone-15-Pro", "iPhone 15 Pro", and "iphone, 15. pro!" all normalize to
// "iphone 15 pro". An empty input yields an empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if isSeparator(r) {
			if b.Len() > 0 {
				pendingSpace = true
			}
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
