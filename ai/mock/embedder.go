package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/poiesic/quaerit/ai"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedQueryFunc is called by EmbedQuery if set.
	// If nil, uses default deterministic behavior.
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	callCount int
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedQuery generates a deterministic embedding from the text's tokens.
func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.count()

	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}

	if text == "" {
		return nil, ai.ErrEmptyText
	}
	return generateDeterministicVector(text, 384), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.count()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, ai.ErrEmptyText
		}
		vectors[i] = generateDeterministicVector(text, 384)
	}
	return vectors, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedQueryFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// generateDeterministicVector creates a bag-of-words embedding: each token
// hashes into a handful of dimensions, so texts sharing words land near each
// other under cosine similarity. Crude, but it makes relevance in tests
// behave the way a real embedding model would, and the same text always
// produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)

	for _, token := range tokenizeForVector(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		seed := h.Sum32()

		// Spread each token over a few dimensions to soften hash collisions
		for j := 0; j < 3; j++ {
			seed = seed*1664525 + 1013904223 // LCG constants
			vector[seed%uint32(dim)] += 1.0
		}
	}

	// Normalize to unit vector
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}

// tokenizeForVector lowercases and strips surrounding punctuation so
// "Revenue?" and "revenue" hash identically.
func tokenizeForVector(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,;:!?\"'()[]{}")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
