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


package quaerit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/ai/openai"
	"github.com/poiesic/quaerit/config"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/ingestion"
	"github.com/poiesic/quaerit/reindex"
	"github.com/poiesic/quaerit/search"
	"github.com/poiesic/quaerit/storage"
	"github.com/poiesic/quaerit/storage/badger"
)

const (
	// answerContextSize is how many top results feed answer generation.
	answerContextSize = 3

	// sourceExcerptLimit caps source excerpts, in runes.
	sourceExcerptLimit = 300

	noContextAnswer = "I could not find relevant information to answer your question."
)

// Engine is the top-level handle on a corpus: one database, one AI provider,
// and the ingestion and retrieval machinery wired over them.
type Engine struct {
	stores      *badger.Stores
	provider    ai.Provider
	pipeline    *ingestion.Pipeline
	searcher    *search.Searcher
	defaultTopK int
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	inMemory          bool
	provider          ai.Provider
	aiConfig          *ai.Config
	logger            *slog.Logger
	chunkSize         int
	chunkOverlap      int
	defaultTopK       int
	maxTopK           int
	overfetchFactor   int
	feedbackWeight    float64
	feedbackWeightSet bool
}

// WithInMemory keeps the whole corpus in memory. Nothing survives Close.
func WithInMemory() Option {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithProvider injects an AI provider instead of the default
// OpenAI-compatible one. The engine takes ownership and closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithAIConfig configures the default OpenAI-compatible provider. Ignored
// when a provider is injected with WithProvider.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithConfig applies a loaded configuration file. Options given after this
// one override the file's values.
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) {
		if cfg == nil {
			return
		}
		if cfg.Database.InMemory {
			o.inMemory = true
		}
		o.aiConfig = cfg.AIConfig()
		o.chunkSize = cfg.Chunking.Size
		o.chunkOverlap = cfg.Chunking.Overlap
		o.defaultTopK = cfg.Search.DefaultTopK
		o.maxTopK = cfg.Search.MaxTopK
		o.overfetchFactor = cfg.Search.OverfetchFactor
		o.feedbackWeight = cfg.Search.FeedbackWeight
		o.feedbackWeightSet = true
	}
}

// WithLogger sets the logger shared by the engine's components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithChunking sets the word window size and overlap for ingestion.
func WithChunking(size, overlap int) Option {
	return func(o *engineOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithSearchPolicy sets the top-k substituted when a caller passes 0 and the
// hard ceiling requests may not exceed.
func WithSearchPolicy(defaultTopK, maxTopK int) Option {
	return func(o *engineOptions) {
		o.defaultTopK = defaultTopK
		o.maxTopK = maxTopK
	}
}

// WithOverfetchFactor sets the candidate multiplier for filtered searches.
func WithOverfetchFactor(factor int) Option {
	return func(o *engineOptions) {
		o.overfetchFactor = factor
	}
}

// WithFeedbackWeight sets the weight of accumulated feedback in ranking.
func WithFeedbackWeight(weight float64) Option {
	return func(o *engineOptions) {
		o.feedbackWeight = weight
		o.feedbackWeightSet = true
	}
}

// Open opens (creating if needed) the corpus database at path and wires the
// full engine over it. Close the engine when done.
func Open(path string, opts ...Option) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	stores, err := badger.NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		aiConfig := options.aiConfig
		if aiConfig == nil {
			aiConfig = ai.DefaultConfig()
		}
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			stores.Close()
			return nil, err
		}
	}

	ingestOpts := []ingestion.Option{ingestion.WithLogger(logger)}
	if options.chunkSize > 0 || options.chunkOverlap > 0 {
		ingestOpts = append(ingestOpts, ingestion.WithChunking(options.chunkSize, options.chunkOverlap))
	}

	pipeline, err := ingestion.NewPipeline(
		stores.Documents, stores.Chunks, stores.Feedback, stores.Vectors,
		provider.Embedder(), ingestOpts...)
	if err != nil {
		provider.Close()
		stores.Close()
		return nil, err
	}

	searchOpts := []search.Option{search.WithLogger(logger)}
	if options.maxTopK > 0 {
		searchOpts = append(searchOpts, search.WithMaxTopK(options.maxTopK))
	}
	if options.overfetchFactor > 0 {
		searchOpts = append(searchOpts, search.WithOverfetchFactor(options.overfetchFactor))
	}
	if options.feedbackWeightSet {
		searchOpts = append(searchOpts, search.WithFeedbackWeight(options.feedbackWeight))
	}

	searcher, err := search.NewSearcher(
		stores.Documents, stores.Chunks, stores.Feedback, stores.Vectors,
		provider.Embedder(), searchOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		stores.Close()
		return nil, err
	}

	defaultTopK := options.defaultTopK
	if defaultTopK < 1 {
		defaultTopK = search.DefaultTopK
	}

	return &Engine{
		stores:      stores,
		provider:    provider,
		pipeline:    pipeline,
		searcher:    searcher,
		defaultTopK: defaultTopK,
		logger:      logger,
	}, nil
}

// Close releases the engine: the worker pool, the AI provider, and the
// database, in that order.
func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.stores.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// IndexDocument ingests one document: chunk, extract metadata, embed, store,
// index. Re-ingesting unchanged text is a no-op for derived state; changed
// text replaces the document's chunks and drops stale vectors and feedback.
func (e *Engine) IndexDocument(ctx context.Context, source, text string) (*core.Document, error) {
	return e.pipeline.IndexDocument(ctx, source, text)
}

// DeleteDocument removes a document with everything derived from it: chunks,
// their vectors, and their feedback records.
func (e *Engine) DeleteDocument(ctx context.Context, id core.ID) error {
	doc, err := e.stores.Documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: document %d", storage.ErrNotFound, uint64(id))
	}

	removed, err := e.stores.Chunks.DeleteChunksByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	for _, chunkID := range removed {
		if err := e.stores.Vectors.Remove(ctx, chunkID); err != nil {
			return fmt.Errorf("failed to remove vector for chunk %d: %w", uint64(chunkID), err)
		}
		if err := e.stores.Feedback.DeleteFeedback(ctx, chunkID); err != nil {
			return fmt.Errorf("failed to delete feedback for chunk %d: %w", uint64(chunkID), err)
		}
	}

	return e.stores.Documents.DeleteDocument(ctx, id)
}

// GetDocument retrieves one document's record.
func (e *Engine) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	doc, err := e.stores.Documents.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", storage.ErrNotFound, uint64(id))
	}
	return doc, nil
}

// GetDocuments lists every document, ordered by ID.
func (e *Engine) GetDocuments(ctx context.Context) ([]*core.Document, error) {
	return e.stores.Documents.GetDocuments(ctx)
}

// Search runs a semantic query. A topK of 0 uses the engine's default.
func (e *Engine) Search(ctx context.Context, query string, topK int, filters *search.Filters) ([]*core.SearchResult, error) {
	if topK == 0 {
		topK = e.defaultTopK
	}
	return e.searcher.Search(ctx, query, topK, filters)
}

// KeywordSearch runs a keyword query. A topK of 0 uses the engine's default.
// Available even when the embedding service is down.
func (e *Engine) KeywordSearch(ctx context.Context, keywords []string, topK int) ([]*core.SearchResult, error) {
	if topK == 0 {
		topK = e.defaultTopK
	}
	return e.searcher.KeywordSearch(ctx, keywords, topK)
}

// UpdateRelevanceScore records relevance feedback for a chunk. Positive
// scores promote it in future rankings, negative scores demote it.
func (e *Engine) UpdateRelevanceScore(ctx context.Context, chunkID core.ID, score float64) error {
	return e.searcher.UpdateRelevance(ctx, chunkID, score)
}

// AnswerQuestion generates an answer to the question from the given search
// results, using the top results as context. Empty results produce a canned
// answer with zero confidence and no generator call.
//
// Confidence sums the top results' adjusted scores over the context size, so
// thin context means low confidence even when the one hit is strong.
func (e *Engine) AnswerQuestion(ctx context.Context, question string, results []*core.SearchResult) (*ai.Answer, error) {
	if len(results) == 0 {
		return &ai.Answer{
			Answer:     noContextAnswer,
			Confidence: 0,
		}, nil
	}

	if len(results) > answerContextSize {
		results = results[:answerContextSize]
	}

	passages := make([]ai.Passage, len(results))
	sources := make([]ai.Source, len(results))
	scoreSum := 0.0

	for i, result := range results {
		var source string
		doc, err := e.stores.Documents.GetDocument(ctx, result.Chunk.DocumentId)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			source = doc.Source
		}

		passages[i] = ai.Passage{
			Source: source,
			Author: result.Chunk.Metadata.Author,
			Date:   result.Chunk.Metadata.Date,
			Text:   result.Chunk.Text,
		}
		sources[i] = ai.Source{
			Source:     source,
			Author:     result.Chunk.Metadata.Author,
			Date:       result.Chunk.Metadata.Date,
			Similarity: result.Adjusted,
			Excerpt:    excerpt(result.Chunk.Text),
		}
		scoreSum += result.Adjusted
	}

	answer, err := e.provider.AnswerGenerator().GenerateAnswer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	confidence := scoreSum / answerContextSize
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return &ai.Answer{
		Answer:     answer,
		Confidence: confidence,
		Sources:    sources,
	}, nil
}

// Stats reports corpus-level counts.
type Stats struct {
	Documents int
	Chunks    int
	Vectors   int
	Dimension int
	Feedback  int
}

// Stats returns counts of stored documents, chunks, indexed vectors, and
// feedback records, plus the index's vector dimension.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	documents, err := e.stores.Documents.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}

	chunks, err := e.stores.Chunks.CountChunks(ctx)
	if err != nil {
		return nil, err
	}

	feedback, err := e.stores.Feedback.CountFeedback(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Documents: documents,
		Chunks:    chunks,
		Vectors:   e.stores.Vectors.Size(),
		Dimension: e.stores.Vectors.Dimension(),
		Feedback:  feedback,
	}, nil
}

// NewReindexer builds a reindexer over this engine's stores and provider.
func (e *Engine) NewReindexer(cfg *reindex.Config, progress reindex.Progress) *reindex.Reindexer {
	return reindex.NewReindexer(
		e.stores.Chunks, e.stores.Vectors, e.stores.Checkpoints,
		e.provider.Embedder(), cfg, progress)
}

// excerpt returns the first sourceExcerptLimit runes of text, with an
// ellipsis when truncated.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= sourceExcerptLimit {
		return text
	}
	return string(runes[:sourceExcerptLimit]) + "..."
}
