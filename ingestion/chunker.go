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
	"unicode"

	"github.com/poiesic/quaerit/core"
)

const (
	// DefaultChunkSize is the default window size in words.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default number of words shared between
	// consecutive windows.
	DefaultChunkOverlap = 50
)

// Chunker splits document text into overlapping word windows. Each window
// carries its byte span over the original text, so the chunk text is always
// the exact text[start:end] substring with interior whitespace preserved.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker producing windows of size words with the
// given overlap between consecutive windows. Size must be positive and
// overlap must be non-negative and strictly smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := core.ValidateChunkingParams(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of words shared between consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into overlapping word windows. A text shorter than the
// window size yields exactly one span covering all words; empty or
// all-whitespace text yields none. The final window may be shorter than
// size but is never empty.
func (c *Chunker) Chunk(text string) []core.ChunkSpan {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	spans := make([]core.ChunkSpan, 0, 1+(len(words)-1)/step)

	for start := 0; ; start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		byteStart := words[start].start
		byteEnd := words[end-1].end
		spans = append(spans, core.ChunkSpan{
			Start: byteStart,
			End:   byteEnd,
			Text:  text[byteStart:byteEnd],
		})

		// The window that reaches the last word is final. Stepping again
		// would produce a tail fully contained in this window.
		if end == len(words) {
			return spans
		}
	}
}

// wordSpan is the byte range of a single whitespace-delimited word.
type wordSpan struct {
	start int
	end   int
}

// splitWords locates every maximal run of non-whitespace bytes in text.
// Splitting is on Unicode whitespace, matching strings.Fields.
func splitWords(text string) []wordSpan {
	var words []wordSpan
	start := -1

	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, wordSpan{start: start, end: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}

	if start >= 0 {
		words = append(words, wordSpan{start: start, end: len(text)})
	}

	return words
}
