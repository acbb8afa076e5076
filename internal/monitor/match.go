package monitor

import "strings"

// evidenceWindow is the number of characters captured on each side of a
// match when building the notification snippet.
const evidenceWindow = 80

var currencyRunes = []rune{'$', '€', '£', '₪'}

// Match reports whether normalizedPhrase appears as a contiguous substring
// of any normalized surface. The phrase must already be in canonical form
// (see Normalize); matching is plain substring search, never regex. On a
// match, best-effort evidence is attached: a snippet around the match, a
// link-like sibling surface, and a price-like token. Missing evidence fields
// are not errors.
func Match(surfaces []Surface, normalizedPhrase string) MatchResult {
	if normalizedPhrase == "" {
		return MatchResult{}
	}
	for _, s := range surfaces {
		normalized := Normalize(s.Text)
		idx := strings.Index(normalized, normalizedPhrase)
		if idx < 0 {
			continue
		}
		snippet := snippetAround(normalized, idx, len(normalizedPhrase))
		ev := &Evidence{
			SurfaceKind: s.Kind,
			Snippet:     snippet,
			Link:        findLink(surfaces, normalizedPhrase),
		}
		// Currency symbols and digits survive normalization, so the snippet
		// is scanned first to keep the price near the match.
		ev.Price = findPrice(snippet)
		if ev.Price == "" {
			ev.Price = findPrice(s.Text)
		}
		if ev.Price == "" {
			ev.Price = findPriceInSurfaces(surfaces)
		}
		return MatchResult{Matched: true, Evidence: ev}
	}
	return MatchResult{}
}

// snippetAround slices a window around [idx, idx+length) without splitting
// the bounds past the string ends. A negative idx yields the string head.
func snippetAround(text string, idx, length int) string {
	if text == "" {
		return ""
	}
	if idx < 0 {
		idx, length = 0, 0
	}
	start := idx - evidenceWindow
	if start < 0 {
		start = 0
	}
	end := idx + length + evidenceWindow
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

// findLink prefers an href surface that itself contains the phrase, falling
// back to the first href seen on the page.
func findLink(surfaces []Surface, normalizedPhrase string) string {
	first := ""
	for _, s := range surfaces {
		if s.Kind != SurfaceLinkHref || s.Text == "" {
			continue
		}
		if first == "" {
			first = s.Text
		}
		if strings.Contains(Normalize(s.Text), normalizedPhrase) {
			return s.Text
		}
	}
	return first
}

// findPrice returns the first whitespace-delimited token that carries both a
// currency symbol and a digit, e.g. "$1,299" or "1299₪".
func findPrice(text string) string {
	for _, token := range strings.Fields(text) {
		if hasCurrency(token) && hasDigit(token) {
			return token
		}
	}
	return ""
}

func findPriceInSurfaces(surfaces []Surface) string {
	for _, s := range surfaces {
		if s.Kind != SurfaceBodyText {
			continue
		}
		if price := findPrice(s.Text); price != "" {
			return price
		}
	}
	return ""
}

func hasCurrency(token string) bool {
	for _, c := range currencyRunes {
		if strings.ContainsRune(token, c) {
			return true
		}
	}
	return false
}

func hasDigit(token string) bool {
	for _, r := range token {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
