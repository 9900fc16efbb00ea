package storage

import (
	"context"

	"github.com/poiesic/quaerit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocument stores a document, replacing any previous version with the
	// same ID. Sets IngestedAt if not already set.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns nil, nil if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves all documents, ordered by ID.
	GetDocuments(ctx context.Context) ([]*core.Document, error)

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if the document doesn't exist. Chunks, vectors and
	// feedback derived from the document are the caller's responsibility.
	DeleteDocument(ctx context.Context, id core.ID) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	Repository
	// AddChunks stores chunks in a single transaction, replacing any existing
	// chunks with the same IDs.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns nil, nil if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of one document, ordered by
	// ordinal position.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetAllChunks retrieves every stored chunk, ordered by ID.
	// Keyword search scans this; corpora are expected to stay memory-sized.
	GetAllChunks(ctx context.Context) ([]*core.Chunk, error)

	// DeleteChunksByDocument removes all chunks of a document and returns the
	// IDs that were removed, so callers can drop dependent vectors and
	// feedback. Removing a document with no chunks returns an empty slice.
	DeleteChunksByDocument(ctx context.Context, documentID core.ID) ([]core.ID, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// FeedbackRepository accumulates per-chunk relevance feedback.
type FeedbackRepository interface {
	Repository
	// RecordFeedback adds score to the chunk's cumulative feedback and
	// increments its event count, creating the record on first feedback.
	// Concurrent calls for the same chunk serialize; accumulation is
	// commutative so call order does not affect the final score.
	RecordFeedback(ctx context.Context, chunkID core.ID, score float64) (*core.FeedbackRecord, error)

	// GetFeedback retrieves the feedback record for a chunk.
	// Returns nil, nil if no feedback has been recorded.
	GetFeedback(ctx context.Context, chunkID core.ID) (*core.FeedbackRecord, error)

	// GetFeedbackScore returns the cumulative score for a chunk, or 0 if no
	// feedback has been recorded.
	GetFeedbackScore(ctx context.Context, chunkID core.ID) (float64, error)

	// GetFeedbackScores returns cumulative scores for the given chunks.
	// Chunks without feedback are absent from the result map.
	GetFeedbackScores(ctx context.Context, chunkIDs ...core.ID) (map[core.ID]float64, error)

	// DeleteFeedback removes the feedback record for a chunk.
	// No-op if no record exists.
	DeleteFeedback(ctx context.Context, chunkID core.ID) error

	// CountFeedback returns the number of chunks with recorded feedback.
	CountFeedback(ctx context.Context) (int, error)
}

// VectorIndex stores one embedding vector per chunk and answers
// nearest-neighbor queries under a fixed similarity metric (cosine).
//
// The index owns vector storage exclusively; chunks never carry vectors.
// Mutations are atomic with respect to any single query: a query observes
// either the pre- or post-mutation state, never a partial write.
type VectorIndex interface {
	// Add inserts the vector for a chunk, replacing any existing vector
	// (idempotent for the re-index-same-document case). The first vector ever
	// added fixes the index dimension; adding a vector of a different
	// dimension fails with a configuration error and mutates nothing.
	Add(ctx context.Context, chunkID core.ID, vector []float32) error

	// Remove deletes a chunk's vector. No-op soft success if absent.
	Remove(ctx context.Context, chunkID core.ID) error

	// Query returns up to k chunks nearest to the given vector, ordered by
	// descending similarity with ties broken by chunk ID ascending. Fewer
	// than k entries in the index is not an error; an empty index yields an
	// empty result.
	Query(ctx context.Context, vector []float32, k int) ([]core.VectorMatch, error)

	// Size returns the number of indexed vectors.
	Size() int

	// Dimension returns the fixed vector dimension, or 0 before any vector
	// has been added.
	Dimension() int

	// Rebuild reloads the in-memory structure from durable storage and
	// re-verifies dimensional uniformity. Index hygiene, not correctness.
	Rebuild(ctx context.Context) error
}

// CheckpointRepository persists progress markers for long-running
// maintenance operations so they can resume after interruption.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for an operation, stamping
	// UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for an operation.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, operation string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for an operation.
	// No-op if no checkpoint exists.
	ClearCheckpoint(ctx context.Context, operation string) error
}
