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


package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/quaerit/core"
)

// dateLayouts are the calendar forms the metadata extractor produces.
// Non-padded layouts accept padded values too.
var dateLayouts = []string{
	"January 2, 2006",
	"1/2/2006",
	"2006-1-2",
}

// Filters narrows semantic search results by extracted metadata. All set
// fields must match (conjunctive); zero values are inactive. A nil *Filters
// matches everything.
type Filters struct {
	// Date matches chunks whose extracted date is the same text, or the
	// same calendar day when both sides parse.
	Date string

	// DateFrom and DateTo bound the chunk date inclusively. A chunk
	// without a parseable date fails an active range bound.
	DateFrom string
	DateTo   string

	// Author matches case-insensitively, by equality or substring.
	Author string

	// Location matches case-insensitively, by equality or substring.
	Location string

	// DocumentID restricts results to chunks of one document.
	DocumentID core.ID
}

// Active reports whether any filter field is set.
func (f *Filters) Active() bool {
	if f == nil {
		return false
	}
	return f.Date != "" || f.DateFrom != "" || f.DateTo != "" ||
		f.Author != "" || f.Location != "" || f.DocumentID != 0
}

// Validate checks that the range bounds parse. The equality filter is
// exempt: it falls back to text comparison, so any value is legal there.
func (f *Filters) Validate() error {
	if f == nil {
		return nil
	}
	for _, bound := range []string{f.DateFrom, f.DateTo} {
		if bound == "" {
			continue
		}
		if _, ok := parseDate(bound); !ok {
			return fmt.Errorf("%w: %w: %q", core.ErrConfiguration, ErrInvalidDateBound, bound)
		}
	}
	return nil
}

// match applies every active filter to the chunk.
func (f *Filters) match(chunk *core.Chunk) bool {
	if f == nil {
		return true
	}

	if f.DocumentID != 0 && chunk.DocumentId != f.DocumentID {
		return false
	}

	if f.Date != "" && !dateEqual(chunk.Metadata.Date, f.Date) {
		return false
	}

	if f.DateFrom != "" || f.DateTo != "" {
		if !dateInRange(chunk.Metadata.Date, f.DateFrom, f.DateTo) {
			return false
		}
	}

	if f.Author != "" && !containsFold(chunk.Metadata.Author, f.Author) {
		return false
	}

	if f.Location != "" && !containsFold(chunk.Metadata.Location, f.Location) {
		return false
	}

	return true
}

// containsFold reports whether want appears in have, case-insensitively.
// An empty have never matches.
func containsFold(have, want string) bool {
	if have == "" {
		return false
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

// dateEqual compares two date texts: exact text equality first, then same
// calendar day when both parse.
func dateEqual(have, want string) bool {
	if have == "" {
		return false
	}
	if strings.TrimSpace(have) == strings.TrimSpace(want) {
		return true
	}

	haveDay, haveOK := parseDate(have)
	wantDay, wantOK := parseDate(want)
	if !haveOK || !wantOK {
		return false
	}
	return sameDay(haveDay, wantDay)
}

// dateInRange reports whether the chunk date falls inside [from, to].
// Either bound may be empty. A chunk date that does not parse fails.
func dateInRange(have, from, to string) bool {
	day, ok := parseDate(have)
	if !ok {
		return false
	}

	if from != "" {
		fromDay, ok := parseDate(from)
		if !ok || day.Before(fromDay) {
			return false
		}
	}

	if to != "" {
		toDay, ok := parseDate(to)
		if !ok || day.After(toDay) {
			return false
		}
	}

	return true
}

// parseDate tries the recognized calendar forms in order.
func parseDate(text string) (time.Time, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if day, err := time.Parse(layout, trimmed); err == nil {
			return day, true
		}
	}

	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	aYear, aMonth, aDay := a.Date()
	bYear, bMonth, bDay := b.Date()
	return aYear == bYear && aMonth == bMonth && aDay == bDay
}
