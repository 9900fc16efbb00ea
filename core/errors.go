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

import "errors"

// Configuration errors. Call sites wrap the specific error together with
// ErrConfiguration so callers can match either the class or the cause with
// errors.Is. These are fatal: they indicate the caller or deployment is
// misconfigured, and are never retried.
var (
	// ErrConfiguration is the base error for all configuration failures.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidChunkSize indicates a chunk size of zero or less.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidOverlap indicates an overlap that is negative or not smaller
	// than the chunk size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")

	// ErrDimensionMismatch indicates a vector whose dimension differs from
	// the index's fixed dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTopK indicates a requested result count of zero or less.
	ErrInvalidTopK = errors.New("top k must be greater than 0")

	// ErrTopKExceeded indicates a requested result count above the configured
	// maximum. The request fails rather than being clamped so callers notice
	// the misconfiguration.
	ErrTopKExceeded = errors.New("top k exceeds configured maximum")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyText indicates a required text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidSpan indicates a chunk span with end not greater than start.
	ErrInvalidSpan = errors.New("span end must be greater than span start")

	// ErrNegativeLength indicates serialized data carrying a negative length
	// prefix, which can only come from corruption.
	ErrNegativeLength = errors.New("negative length prefix")
)
