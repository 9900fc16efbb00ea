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


package core

import (
	"fmt"
)

// ValidateChunkingParams validates chunk size and overlap before any chunk
// is produced.
//
// Validation rules:
//   - size must be greater than 0
//   - overlap must be non-negative and strictly smaller than size
//
// Violations are configuration errors: both the specific error and
// ErrConfiguration match with errors.Is.
func ValidateChunkingParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrConfiguration, ErrInvalidChunkSize, size)
	}

	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: %w: size %d, overlap %d", ErrConfiguration, ErrInvalidOverlap, size, overlap)
	}

	return nil
}

// ValidateTopK validates a requested result count against the configured
// maximum. Requests above the maximum fail instead of being clamped.
func ValidateTopK(topK, maxTopK int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrConfiguration, ErrInvalidTopK, topK)
	}

	if maxTopK > 0 && topK > maxTopK {
		return fmt.Errorf("%w: %w: requested %d, maximum %d", ErrConfiguration, ErrTopKExceeded, topK, maxTopK)
	}

	return nil
}

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//
// NOT validated:
//   - Source (empty is valid for text ingested without a path)
//   - ID (any value derived by DocumentIDFor is valid)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Span must be well formed (End > Start, Start >= 0)
//   - DocumentId must be set
//
// NOT validated:
//   - Metadata (all fields optional)
//   - BaseScore (any value is a valid prior)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.Start < 0 || chunk.End <= chunk.Start {
		return fmt.Errorf("%w: %w: [%d, %d)", ErrInvalidChunk, ErrInvalidSpan, chunk.Start, chunk.End)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: document id is not set", ErrInvalidChunk)
	}

	return nil
}
