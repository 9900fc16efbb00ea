package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedQuery generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error for empty text or if the embedding generation fails;
	// failures propagate unretried so callers decide retry policy.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedQuery multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AnswerGenerator produces a natural-language answer to a question from
// retrieved passages. Implementations must be thread-safe for concurrent use.
type AnswerGenerator interface {
	// GenerateAnswer answers the question using only the given passages as
	// context. The passages arrive ranked most relevant first.
	// Returns an error if generation fails.
	GenerateAnswer(ctx context.Context, question string, passages []Passage) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and AnswerGenerator
// instances, ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// AnswerGenerator returns the answer generation service.
	// The returned AnswerGenerator is safe for concurrent use.
	AnswerGenerator() AnswerGenerator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
