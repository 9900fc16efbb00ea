package search

import "strings"

// Stop words dropped during keyword normalization; they match nearly every
// chunk and carry no signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// normalizeKeywords lowercases, trims, deduplicates, and drops stop words.
// Order of first appearance is preserved.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	normalized := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		cleaned := strings.ToLower(strings.TrimSpace(keyword))
		if cleaned == "" || stopWords[cleaned] || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		normalized = append(normalized, cleaned)
	}

	return normalized
}

// countKeywordHits counts the distinct keywords appearing in text as
// case-insensitive substrings. Keywords must already be normalized.
func countKeywordHits(text string, keywords []string) int {
	lowered := strings.ToLower(text)

	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			hits++
		}
	}

	return hits
}
