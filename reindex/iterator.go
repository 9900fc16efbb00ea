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


package reindex

import (
	"context"
	"fmt"

	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// DefaultBatchSize is the batch size used when none is configured.
const DefaultBatchSize = 100

// ChunkIterator walks every stored chunk in batches.
type ChunkIterator struct {
	chunks    storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates an iterator over the chunk repository.
// A batchSize less than 1 falls back to DefaultBatchSize.
func NewChunkIterator(chunks storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		chunks:    chunks,
		batchSize: batchSize,
	}
}

// ForEach calls fn once per batch, in chunk ID order. Iteration stops at the
// first error from fn. Context cancellation is honored between batches, never
// mid-batch.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func(chunks []*core.Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	chunks, err := it.chunks.GetAllChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chunks: %w", err)
	}

	for start := 0; start < len(chunks); start += it.batchSize {
		end := start + it.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := fn(chunks[start:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
