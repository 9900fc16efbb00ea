// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"regexp"
	"strings"

	"github.com/poiesic/quaerit/core"
)

// Patterns are ordered: an explicit labeled field always beats an inline
// guess, and the first non-empty capture wins.
var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Date:\s*([^\n]+)`),
		regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2})`),
	}

	authorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Author|By):\s*([^\n]+)`),
	}

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Location:\s*([^\n]+)`),
		regexp.MustCompile(`([A-Z][a-z]+,\s*[A-Z]{2})`),
	}
)

// MetadataExtractor recognizes structured attributes in document text.
// Extraction is best-effort and never fails; unrecognized attributes stay
// empty. Dates are kept as extracted text, not parsed.
type MetadataExtractor struct{}

// NewMetadataExtractor creates a metadata extractor.
func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Extract scans text for date, author, and location attributes.
func (e *MetadataExtractor) Extract(text string) core.Metadata {
	return core.Metadata{
		Date:     firstCapture(text, datePatterns),
		Author:   firstCapture(text, authorPatterns),
		Location: firstCapture(text, locationPatterns),
	}
}

// firstCapture returns the first pattern's trimmed capture group, skipping
// captures that trim to nothing so a blank labeled field falls through to
// the next pattern.
func firstCapture(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if value := strings.TrimSpace(match[1]); value != "" {
			return value
		}
	}
	return ""
}
