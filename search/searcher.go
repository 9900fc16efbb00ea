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


package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

const (
	// DefaultTopK is the result count used when a caller expresses no
	// preference. Callers substitute it themselves; Search never treats
	// any topK value as a sentinel.
	DefaultTopK = 5

	// MaxTopK is the largest permitted result count. Larger requests fail
	// instead of being clamped.
	MaxTopK = 20

	// DefaultOverfetchFactor widens the initial candidate fetch when
	// filters are active, since filtering discards candidates.
	DefaultOverfetchFactor = 3

	// DefaultFeedbackWeight scales accumulated feedback into the adjusted
	// score. Small relative to cosine's [-1, 1] range, so feedback nudges
	// rankings without dominating similarity.
	DefaultFeedbackWeight = 0.05
)

// Searcher ranks indexed chunks against queries: semantically through the
// vector index, or by keyword matching over chunk text.
type Searcher struct {
	documents       storage.DocumentRepository
	chunks          storage.ChunkRepository
	feedback        storage.FeedbackRepository
	vectors         storage.VectorIndex
	embedder        ai.Embedder
	maxTopK         int
	overfetchFactor int
	feedbackWeight  float64
	monitor         Monitor
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor sets the monitor receiving per-stage callbacks.
// Default is a no-op monitor.
func WithMonitor(monitor Monitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithMaxTopK sets the largest permitted result count.
// Default is MaxTopK.
func WithMaxTopK(maxTopK int) Option {
	return func(s *Searcher) error {
		if maxTopK < 1 {
			maxTopK = 1
		}
		s.maxTopK = maxTopK
		return nil
	}
}

// WithOverfetchFactor sets the candidate widening factor used when filters
// are active. Default is DefaultOverfetchFactor.
func WithOverfetchFactor(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			factor = 1
		}
		s.overfetchFactor = factor
		return nil
	}
}

// WithFeedbackWeight sets the weight of accumulated feedback in the
// adjusted score. Zero disables feedback influence.
// Default is DefaultFeedbackWeight.
func WithFeedbackWeight(weight float64) Option {
	return func(s *Searcher) error {
		s.feedbackWeight = weight
		return nil
	}
}

// NewSearcher creates a new searcher. The embedder may be nil, in which
// case only KeywordSearch and UpdateRelevance are available.
func NewSearcher(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	feedback storage.FeedbackRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if feedback == nil {
		return nil, ErrFeedbackRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}

	s := &Searcher{
		documents:       documents,
		chunks:          chunks,
		feedback:        feedback,
		vectors:         vectors,
		embedder:        embedder,
		maxTopK:         MaxTopK,
		overfetchFactor: DefaultOverfetchFactor,
		feedbackWeight:  DefaultFeedbackWeight,
		monitor:         &noopMonitor{},
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// scoredChunk pairs a candidate chunk with its query similarity.
type scoredChunk struct {
	chunk      *core.Chunk
	similarity float64
}

// Search embeds the query and returns up to topK chunks ranked by
// feedback-adjusted similarity. Filters are conjunctive; candidates failing
// them are replaced by widening the index fetch until topK results pass or
// the index is exhausted. Empty outcomes are empty-success, never errors.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filters *Filters) ([]*core.SearchResult, error) {
	if err := core.ValidateTopK(topK, s.maxTopK); err != nil {
		return nil, err
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if s.embedder == nil {
		return nil, ErrEmbedderRequired
	}

	if filters != nil && filters.DocumentID != 0 {
		doc, err := s.documents.GetDocument(ctx, filters.DocumentID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: document %d", storage.ErrNotFound, uint64(filters.DocumentID))
		}
	}

	s.monitor.Start(query)

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error embedding query", "err", err)
		return nil, err
	}
	s.monitor.QueryEmbedded(len(queryVector))

	candidateK := topK
	if filters.Active() {
		candidateK = topK * s.overfetchFactor
	}

	var passing []scoredChunk
	for {
		matches, err := s.vectors.Query(ctx, queryVector, candidateK)
		if err != nil {
			return nil, err
		}
		s.monitor.CandidatesFetched(len(matches))

		passing, err = s.collectPassing(ctx, matches, filters)
		if err != nil {
			return nil, err
		}

		// Fewer matches than requested means the index has nothing more
		// to offer; otherwise widen and retry until topK results pass.
		if len(passing) >= topK || len(matches) < candidateK {
			break
		}
		candidateK *= 2
	}

	results, err := s.rank(ctx, passing, topK)
	if err != nil {
		return nil, err
	}

	s.monitor.Finish(results)
	return results, nil
}

// KeywordSearch scans chunk text for the given keywords, OR semantics, and
// ranks by the count of distinct matching keywords. It needs no embedder.
func (s *Searcher) KeywordSearch(ctx context.Context, keywords []string, topK int) ([]*core.SearchResult, error) {
	if err := core.ValidateTopK(topK, s.maxTopK); err != nil {
		return nil, err
	}

	normalized := normalizeKeywords(keywords)
	if len(normalized) == 0 {
		return []*core.SearchResult{}, nil
	}

	chunks, err := s.chunks.GetAllChunks(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		hits := countKeywordHits(chunk.Text, normalized)
		if hits == 0 {
			continue
		}
		results = append(results, &core.SearchResult{
			Chunk:      chunk,
			Similarity: float64(hits),
			Adjusted:   float64(hits),
		})
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Id, b.Chunk.Id)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i, result := range results {
		result.Rank = i + 1
	}

	return results, nil
}

// UpdateRelevance records relevance feedback for a chunk. Unknown chunk IDs
// are rejected so a stale UI reference surfaces instead of accumulating
// feedback for nothing.
func (s *Searcher) UpdateRelevance(ctx context.Context, chunkID core.ID, score float64) error {
	chunk, err := s.chunks.GetChunk(ctx, chunkID)
	if err != nil {
		return err
	}
	if chunk == nil {
		return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, uint64(chunkID))
	}

	_, err = s.feedback.RecordFeedback(ctx, chunkID, score)
	return err
}

// collectPassing resolves matches to chunk records and applies filters,
// preserving match order.
func (s *Searcher) collectPassing(ctx context.Context, matches []core.VectorMatch, filters *Filters) ([]scoredChunk, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]core.ID, len(matches))
	for i, match := range matches {
		ids[i] = match.ChunkId
	}

	chunks, err := s.chunks.GetChunks(ctx, ids...)
	if err != nil {
		return nil, err
	}

	byID := make(map[core.ID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.Id] = chunk
	}

	passing := make([]scoredChunk, 0, len(matches))
	for _, match := range matches {
		chunk, ok := byID[match.ChunkId]
		if !ok {
			s.logger.Warn("indexed vector has no chunk record", "chunk", match.ChunkId)
			continue
		}
		if !filters.match(chunk) {
			s.monitor.FilterRejected(chunk)
			continue
		}
		s.monitor.FilterPassed(chunk)
		passing = append(passing, scoredChunk{chunk: chunk, similarity: match.Similarity})
	}

	return passing, nil
}

// rank folds feedback into similarity, orders, truncates to topK, and
// assigns 1-based ranks.
func (s *Searcher) rank(ctx context.Context, passing []scoredChunk, topK int) ([]*core.SearchResult, error) {
	if len(passing) == 0 {
		return []*core.SearchResult{}, nil
	}

	ids := make([]core.ID, len(passing))
	for i, entry := range passing {
		ids[i] = entry.chunk.Id
	}

	feedbackScores, err := s.feedback.GetFeedbackScores(ctx, ids...)
	if err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, len(passing))
	for i, entry := range passing {
		adjusted := entry.similarity + entry.chunk.BaseScore + s.feedbackWeight*feedbackScores[entry.chunk.Id]
		results[i] = &core.SearchResult{
			Chunk:      entry.chunk,
			Similarity: entry.similarity,
			Adjusted:   adjusted,
		}
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if c := cmp.Compare(b.Adjusted, a.Adjusted); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Id, b.Chunk.Id)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i, result := range results {
		result.Rank = i + 1
	}

	return results, nil
}
