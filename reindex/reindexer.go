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
	"log/slog"
	"time"

	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// checkpointOperation is the name under which reindex progress is saved.
const checkpointOperation = "reindex"

// Config holds configuration for a reindex run.
type Config struct {
	// BatchSize is the number of chunks to embed per provider call
	BatchSize int

	// MaxRetries is the maximum number of retry attempts for failed
	// embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Reindexer re-embeds every stored chunk and rebuilds the vector index.
type Reindexer struct {
	chunks      storage.ChunkRepository
	vectors     storage.VectorIndex
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	config      *Config
	progress    Progress
	processor   *BatchProcessor
	iterator    *ChunkIterator
	logger      *slog.Logger
}

// NewReindexer creates a reindexer over the given stores.
// A nil config uses DefaultConfig; a nil progress discards updates.
func NewReindexer(chunks storage.ChunkRepository, vectors storage.VectorIndex, checkpoints storage.CheckpointRepository, embedder ai.Embedder, config *Config, progress Progress) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = NopProgress{}
	}

	processor := NewBatchProcessor(embedder, vectors, config.MaxRetries, config.RetryDelay)
	iterator := NewChunkIterator(chunks, config.BatchSize)

	return &Reindexer{
		chunks:      chunks,
		vectors:     vectors,
		checkpoints: checkpoints,
		embedder:    embedder,
		config:      config,
		progress:    progress,
		processor:   processor,
		iterator:    iterator,
		logger:      slog.Default(),
	}
}

// Run re-embeds every chunk with the configured embedder and writes the
// vectors into the index. A checkpoint is saved after each batch and cleared
// once the run completes, so an interrupted run is detectable.
//
// If the new embedder produces vectors of a different dimension than the
// index currently holds, the index is cleared before the first batch is
// stored. Until that point the existing index is untouched, so a run that
// fails on its first embedding call leaves search fully operational.
func (r *Reindexer) Run(ctx context.Context) error {
	total, err := r.chunks.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		r.logger.Info("no chunks to reindex")
		return nil
	}

	stale, err := r.checkpoints.LoadCheckpoint(ctx, checkpointOperation)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if stale != nil {
		r.logger.Warn("previous reindex did not finish, starting over",
			"lastChunk", uint64(stale.LastChunkId), "interrupted", stale.UpdatedAt)
	}

	r.logger.Info("reindexing chunks", "chunks", total, "batchSize", r.config.BatchSize)

	start := time.Now()
	r.progress.Start(total)

	processed := 0
	dimensionChecked := false

	err = r.iterator.ForEach(ctx, func(batch []*core.Chunk) error {
		embeddings, err := r.processor.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		// The first successful batch reveals the new model's dimension.
		// Nothing has been written yet, so this is the last safe moment
		// to clear an incompatible index.
		if !dimensionChecked {
			if err := r.prepareDimension(ctx, len(embeddings[0])); err != nil {
				return err
			}
			dimensionChecked = true
		}

		if err := r.processor.Store(ctx, batch, embeddings); err != nil {
			return fmt.Errorf("failed to store batch: %w", err)
		}

		processed += len(batch)
		r.progress.Update(processed)

		checkpoint := &core.Checkpoint{
			Operation:   checkpointOperation,
			LastChunkId: batch[len(batch)-1].Id,
		}
		if err := r.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
			r.logger.Warn("failed to save reindex checkpoint", "error", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := r.vectors.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	if err := r.checkpoints.ClearCheckpoint(ctx, checkpointOperation); err != nil {
		r.logger.Warn("failed to clear reindex checkpoint", "error", err)
	}

	r.progress.Finish()

	elapsed := time.Since(start)
	r.logger.Info("reindex complete",
		"chunks", processed, "elapsed", elapsed.Round(time.Millisecond))

	return nil
}

// prepareDimension clears the index when the embedder's output dimension no
// longer matches what the index holds, so the batches that follow can be
// added at the new dimension.
func (r *Reindexer) prepareDimension(ctx context.Context, dimension int) error {
	current := r.vectors.Dimension()
	if current == 0 || current == dimension {
		return nil
	}

	r.logger.Info("embedding dimension changed, clearing vector index",
		"from", current, "to", dimension)

	chunks, err := r.chunks.GetAllChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chunks: %w", err)
	}

	for _, chunk := range chunks {
		if err := r.vectors.Remove(ctx, chunk.Id); err != nil {
			return fmt.Errorf("failed to remove vector for chunk %d: %w", uint64(chunk.Id), err)
		}
	}

	// With no vectors left on disk the rebuild resets the stored dimension.
	return r.vectors.Rebuild(ctx)
}
