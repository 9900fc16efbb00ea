package reindex

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// BatchProcessor embeds batches of chunks and writes the resulting vectors
// into the index. Embedding and storing are separate steps so a caller can
// inspect the embeddings (for instance, their dimension) before committing
// anything.
type BatchProcessor struct {
	embedder   ai.Embedder
	vectors    storage.VectorIndex
	maxRetries int
	retryDelay time.Duration
}

// NewBatchProcessor creates a batch processor.
// maxRetries: maximum retry attempts per embedding call
// retryDelay: base delay for exponential backoff
func NewBatchProcessor(embedder ai.Embedder, vectors storage.VectorIndex, maxRetries int, retryDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		embedder:   embedder,
		vectors:    vectors,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// EmbedBatch generates one embedding per chunk, retrying transient provider
// failures with exponential backoff. The result is verified to contain
// exactly one vector per chunk, all of the same dimension.
func (bp *BatchProcessor) EmbedBatch(ctx context.Context, chunks []*core.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = bp.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, bp.maxRetries, bp.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i, embedding := range embeddings {
		if len(embedding) != len(embeddings[0]) {
			return nil, fmt.Errorf("embedding dimension mismatch within batch: vector %d has %d dimensions, expected %d",
				i, len(embedding), len(embeddings[0]))
		}
	}

	return embeddings, nil
}

// Store normalizes the embeddings and writes them into the vector index,
// replacing any existing entry for each chunk.
func (bp *BatchProcessor) Store(ctx context.Context, chunks []*core.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i, chunk := range chunks {
		if err := bp.vectors.Add(ctx, chunk.Id, core.NormalizeVector(embeddings[i])); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", uint64(chunk.Id), err)
		}
	}

	return nil
}
