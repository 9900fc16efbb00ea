package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// All IDs are derived from content, never assigned by the database, so the
// same input reproduces the same ID across processes and rebuilds.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocumentIDFor derives a document ID from its source path, or from the raw
// text when no source is known (e.g. text piped in on stdin).
func DocumentIDFor(source, text string) ID {
	if source != "" {
		return IDFromContent("doc:" + source)
	}
	return IDFromContent("doc:" + text)
}

// ChunkIDFor derives a chunk ID from its parent document and byte span.
// Re-chunking the same document with the same parameters reproduces the same
// spans and therefore the same chunk IDs, which is what lets feedback
// accumulate across re-indexing.
func ChunkIDFor(documentID ID, start, end int) ID {
	return IDFromContent(fmt.Sprintf("chunk:%016x:%d:%d", uint64(documentID), start, end))
}

// Document is the immutable unit of ingestion. Chunks reference their parent
// document by ID; deleting a document deletes everything derived from it.
type Document struct {
	Id         ID
	Source     string    // Path or label the text came from; may be empty
	Text       string    // Full raw text as ingested
	IngestedAt time.Time // When the document entered the corpus
}

// Metadata holds the structured attributes extracted from chunk text.
// An empty string means the attribute was not recognized; the extractor
// never produces empty non-absent values, so absence is unambiguous.
type Metadata struct {
	Date     string // Extracted date text, verbatim (e.g. "January 15, 2024" or "2024-01-15")
	Author   string
	Location string
}

// Chunk is the atomic retrieval unit: a bounded segment of one document.
// The embedding vector is NOT stored here; the vector index owns vectors
// exclusively, keyed by chunk ID.
type Chunk struct {
	Id         ID
	DocumentId ID
	Ordinal    int // Position within the document, starting at 0
	Start      int // Byte offset into the parent text, inclusive
	End        int // Byte offset into the parent text, exclusive
	Text       string
	Metadata   Metadata
	BaseScore  float64 // Relevance prior assigned at index time; 0 unless a ranker sets it
}

// ChunkSpan is a chunker output before the chunk is assembled: the byte span
// and the exact substring it covers.
type ChunkSpan struct {
	Start int
	End   int
	Text  string
}

// FeedbackRecord accumulates explicit relevance feedback for one chunk.
// Score is a running signed sum; Events counts how many times feedback was
// recorded. Records live exactly as long as their chunk does.
type FeedbackRecord struct {
	ChunkId   ID
	Score     float64
	Events    uint64
	UpdatedAt time.Time
}

// VectorMatch is a vector index hit: a chunk ID and its similarity to the
// query vector under the index's metric.
type VectorMatch struct {
	ChunkId    ID
	Similarity float64
}

// Checkpoint marks how far a long-running maintenance operation got, so it
// can resume after interruption. Keyed by operation name.
type Checkpoint struct {
	Operation   string
	LastChunkId ID
	UpdatedAt   time.Time
}

// SearchResult is one ranked retrieval hit. Similarity is the raw metric
// score from the index (for keyword search, the keyword match count);
// Adjusted folds in accumulated feedback. Results are ephemeral and never
// persisted.
type SearchResult struct {
	Chunk      *Chunk
	Similarity float64
	Adjusted   float64
	Rank       int // 1-based position in the returned ranking
}
