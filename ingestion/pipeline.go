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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/quaerit/ai"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// DefaultEmbedBatchSize is the number of chunk texts sent to the embedder
// in one call.
const DefaultEmbedBatchSize = 32

// Pipeline turns raw document text into stored chunks and indexed vectors.
// Embedding calls run concurrently on a worker pool, and every embedding
// completes before the first store or index mutation, so a provider failure
// leaves previously indexed state untouched.
type Pipeline struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	feedback  storage.FeedbackRepository
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	chunker   *Chunker
	extractor *MetadataExtractor
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk window size and overlap in words.
// Default is DefaultChunkSize and DefaultChunkOverlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		chunker, err := NewChunker(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunk texts are embedded per provider call.
// Default is DefaultEmbedBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	feedback storage.FeedbackRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
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
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	chunker, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		chunks:    chunks,
		feedback:  feedback,
		vectors:   vectors,
		embedder:  embedder,
		chunker:   chunker,
		extractor: NewMetadataExtractor(),
		pool:      pool,
		batchSize: DefaultEmbedBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IndexDocument ingests one document: chunk, extract metadata, embed, then
// store and index. Re-ingesting an unchanged document is idempotent; a
// changed document replaces its chunks and drops vectors and feedback for
// chunks that no longer exist.
func (p *Pipeline) IndexDocument(ctx context.Context, source, text string) (*core.Document, error) {
	doc := &core.Document{
		Id:         core.DocumentIDFor(source, text),
		Source:     source,
		Text:       text,
		IngestedAt: time.Now().UTC(),
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	spans := p.chunker.Chunk(text)
	metadata := p.extractor.Extract(text)

	chunks := make([]*core.Chunk, len(spans))
	texts := make([]string, len(spans))
	for i, span := range spans {
		chunks[i] = &core.Chunk{
			Id:         core.ChunkIDFor(doc.Id, span.Start, span.End),
			DocumentId: doc.Id,
			Ordinal:    i,
			Start:      span.Start,
			End:        span.End,
			Text:       span.Text,
			Metadata:   metadata,
		}
		texts[i] = span.Text
	}

	p.logger.Info("indexing document", "source", source, "document", doc.Id, "chunks", len(chunks))

	// Every provider call completes before the first mutation below; an
	// embedding failure leaves store and index exactly as they were.
	embedded, err := p.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	removed, err := p.chunks.DeleteChunksByDocument(ctx, doc.Id)
	if err != nil {
		return nil, err
	}

	// Chunk IDs are content-derived, so chunks reproduced by this ingest
	// keep their IDs and their accumulated feedback. Only chunks that no
	// longer exist lose vectors and feedback.
	current := make(map[core.ID]struct{}, len(chunks))
	for _, chunk := range chunks {
		current[chunk.Id] = struct{}{}
	}
	for _, id := range removed {
		if _, ok := current[id]; ok {
			continue
		}
		if err := p.vectors.Remove(ctx, id); err != nil {
			return nil, err
		}
		if err := p.feedback.DeleteFeedback(ctx, id); err != nil {
			return nil, err
		}
	}

	added, err := p.documents.AddDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		if err := p.chunks.AddChunks(ctx, chunks...); err != nil {
			return nil, err
		}
	}

	for i, chunk := range chunks {
		if err := p.vectors.Add(ctx, chunk.Id, core.NormalizeVector(embedded[i])); err != nil {
			return nil, err
		}
	}

	return added, nil
}

// embedAll generates embeddings for all texts, batched across the worker
// pool. The result preserves input order. Any batch failure fails the whole
// call.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embedded := make([][]float32, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		offset, batch := start, texts[start:end]

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if failed() || ctx.Err() != nil {
				return
			}

			vectors, err := p.embedder.EmbedTexts(ctx, batch)
			if err != nil {
				setErr(err)
				return
			}
			if len(vectors) != len(batch) {
				setErr(fmt.Errorf("embedding result mismatch: expected %d, received %d", len(batch), len(vectors)))
				return
			}

			copy(embedded[offset:], vectors)
		})
		if err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return embedded, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
