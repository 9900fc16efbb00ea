package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{
			name:     "lowercases and trims",
			keywords: []string{" Revenue ", "BUDGET"},
			want:     []string{"revenue", "budget"},
		},
		{
			name:     "deduplicates preserving first appearance",
			keywords: []string{"alpha", "beta", "Alpha", "ALPHA"},
			want:     []string{"alpha", "beta"},
		},
		{
			name:     "drops stop words and blanks",
			keywords: []string{"the", "", "  ", "budget", "from"},
			want:     []string{"budget"},
		},
		{
			name:     "nothing left",
			keywords: []string{"the", "a", "an"},
			want:     []string{},
		},
		{
			name:     "nil input",
			keywords: nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKeywords(tt.keywords))
		})
	}
}

func TestCountKeywordHits(t *testing.T) {
	text := "Quarterly Revenue was reported alongside the travel budget."

	assert.Equal(t, 2, countKeywordHits(text, []string{"revenue", "budget"}))
	assert.Equal(t, 1, countKeywordHits(text, []string{"revenue", "payroll"}))
	assert.Equal(t, 0, countKeywordHits(text, []string{"payroll"}))
	assert.Equal(t, 0, countKeywordHits(text, nil))

	// Substring semantics: a keyword inside a longer word still counts.
	assert.Equal(t, 1, countKeywordHits(text, []string{"quarter"}))
}
