package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/quaerit/ai"
)

// MockAnswerGenerator is a test double for ai.AnswerGenerator.
// It allows custom behavior injection via function fields.
type MockAnswerGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	// If nil, uses default deterministic behavior.
	GenerateAnswerFunc func(ctx context.Context, question string, passages []ai.Passage) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockAnswerGenerator creates a mock generator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockAnswerGenerator() *MockAnswerGenerator {
	return &MockAnswerGenerator{}
}

// GenerateAnswer returns a canned answer naming the question and how many
// passages informed it.
func (m *MockAnswerGenerator) GenerateAnswer(ctx context.Context, question string, passages []ai.Passage) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, question, passages)
	}

	return fmt.Sprintf("Mock answer to %q based on %d passages.", question, len(passages)), nil
}

// CallCount returns the number of times GenerateAnswer was called.
func (m *MockAnswerGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockAnswerGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.GenerateAnswerFunc = nil
}
