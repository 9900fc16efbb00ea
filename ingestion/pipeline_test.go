package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/quaerit/ai/mock"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labeledWordText builds n words from the given format, single-space
// separated. Different formats give different word lengths and therefore
// different byte spans.
func labeledWordText(n int, format string) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf(format, i)
	}
	return strings.Join(words, " ")
}

func setupPipeline(t *testing.T, opts ...Option) (*Pipeline, *badger.Stores, *mock.MockEmbedder) {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	embedder := mock.NewMockEmbedder()

	options := append([]Option{WithChunking(5, 1)}, opts...)
	pipeline, err := NewPipeline(stores.Documents, stores.Chunks, stores.Feedback, stores.Vectors, embedder, options...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, stores, embedder
}

func TestNewPipelineRequiresDependencies(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	embedder := mock.NewMockEmbedder()

	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr error
	}{
		{
			name: "nil document repository",
			build: func() (*Pipeline, error) {
				return NewPipeline(nil, stores.Chunks, stores.Feedback, stores.Vectors, embedder)
			},
			wantErr: ErrDocumentRepositoryRequired,
		},
		{
			name: "nil chunk repository",
			build: func() (*Pipeline, error) {
				return NewPipeline(stores.Documents, nil, stores.Feedback, stores.Vectors, embedder)
			},
			wantErr: ErrChunkRepositoryRequired,
		},
		{
			name: "nil feedback repository",
			build: func() (*Pipeline, error) {
				return NewPipeline(stores.Documents, stores.Chunks, nil, stores.Vectors, embedder)
			},
			wantErr: ErrFeedbackRepositoryRequired,
		},
		{
			name: "nil vector index",
			build: func() (*Pipeline, error) {
				return NewPipeline(stores.Documents, stores.Chunks, stores.Feedback, nil, embedder)
			},
			wantErr: ErrVectorIndexRequired,
		},
		{
			name: "nil embedder",
			build: func() (*Pipeline, error) {
				return NewPipeline(stores.Documents, stores.Chunks, stores.Feedback, stores.Vectors, nil)
			},
			wantErr: ErrEmbedderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, err := tt.build()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, pipeline)
		})
	}
}

func TestNewPipelineInvalidChunkingFails(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	pipeline, err := NewPipeline(stores.Documents, stores.Chunks, stores.Feedback, stores.Vectors,
		mock.NewMockEmbedder(), WithChunking(0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidChunkSize)
	assert.Nil(t, pipeline)
}

func TestIndexDocumentStoresChunksAndVectors(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	// 12 words at size 5, overlap 1: windows over words [0,5) [4,9) [8,12).
	text := wordText(12)
	doc, err := pipeline.IndexDocument(ctx, "notes/report.txt", text)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, core.DocumentIDFor("notes/report.txt", text), doc.Id)
	assert.False(t, doc.IngestedAt.IsZero())

	stored, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, text, stored.Text)
	assert.Equal(t, "notes/report.txt", stored.Source)

	chunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal)
		assert.Equal(t, doc.Id, chunk.DocumentId)
		assert.Equal(t, text[chunk.Start:chunk.End], chunk.Text)
		assert.Equal(t, core.ChunkIDFor(doc.Id, chunk.Start, chunk.End), chunk.Id)
	}

	assert.Equal(t, 3, stores.Vectors.Size())
}

func TestIndexDocumentIdempotent(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	text := wordText(12)
	first, err := pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)

	firstChunks, err := stores.Chunks.GetChunksByDocument(ctx, first.Id)
	require.NoError(t, err)

	second, err := pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)

	secondChunks, err := stores.Chunks.GetChunksByDocument(ctx, second.Id)
	require.NoError(t, err)
	require.Len(t, secondChunks, len(firstChunks))
	for i := range firstChunks {
		assert.Equal(t, firstChunks[i].Id, secondChunks[i].Id)
	}

	count, err := stores.Documents.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, len(firstChunks), stores.Vectors.Size())
}

func TestIndexDocumentReplacesChangedDocument(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	oldText := wordText(12)
	doc, err := pipeline.IndexDocument(ctx, "memo.txt", oldText)
	require.NoError(t, err)

	oldChunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, oldChunks)

	_, err = stores.Feedback.RecordFeedback(ctx, oldChunks[0].Id, 2.0)
	require.NoError(t, err)

	// Different word lengths shift every byte span, so no chunk ID survives.
	newText := labeledWordText(10, "item%04d")
	updated, err := pipeline.IndexDocument(ctx, "memo.txt", newText)
	require.NoError(t, err)
	assert.Equal(t, doc.Id, updated.Id)

	newChunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, newChunks)

	for _, old := range oldChunks {
		got, err := stores.Chunks.GetChunk(ctx, old.Id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	assert.Equal(t, len(newChunks), stores.Vectors.Size())

	score, err := stores.Feedback.GetFeedbackScore(ctx, oldChunks[0].Id)
	require.NoError(t, err)
	assert.Zero(t, score)

	stored, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, newText, stored.Text)
}

func TestIndexDocumentUnchangedKeepsFeedback(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	text := wordText(12)
	doc, err := pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)

	chunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	_, err = stores.Feedback.RecordFeedback(ctx, chunks[0].Id, 3.5)
	require.NoError(t, err)

	_, err = pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)

	score, err := stores.Feedback.GetFeedbackScore(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, 3.5, score)
}

func TestIndexDocumentEmbedFailureLeavesStateUntouched(t *testing.T) {
	pipeline, stores, embedder := setupPipeline(t)
	ctx := context.Background()

	text := wordText(12)
	doc, err := pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)

	chunksBefore, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	sizeBefore := stores.Vectors.Size()

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	_, err = pipeline.IndexDocument(ctx, "memo.txt", labeledWordText(10, "item%04d"))
	require.Error(t, err)

	chunksAfter, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunksAfter, len(chunksBefore))
	for i := range chunksBefore {
		assert.Equal(t, chunksBefore[i].Id, chunksAfter[i].Id)
	}
	assert.Equal(t, sizeBefore, stores.Vectors.Size())

	stored, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, text, stored.Text)
}

func TestIndexDocumentEmptyTextRejected(t *testing.T) {
	pipeline, _, _ := setupPipeline(t)

	doc, err := pipeline.IndexDocument(context.Background(), "memo.txt", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	assert.ErrorIs(t, err, core.ErrEmptyText)
	assert.Nil(t, doc)
}

func TestIndexDocumentWhitespaceOnlyStoresNoChunks(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	doc, err := pipeline.IndexDocument(ctx, "blank.txt", "   \n\t  ")
	require.NoError(t, err)
	require.NotNil(t, doc)

	chunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, stores.Vectors.Size())
}

func TestIndexDocumentAttachesDocumentMetadata(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	// The header words land in the first window only; the attributes must
	// still reach every chunk.
	text := "Author: Jane Smith\nDate: 3/4/2024\n" + wordText(10)
	doc, err := pipeline.IndexDocument(ctx, "memo.txt", text)
	require.NoError(t, err)

	chunks, err := stores.Chunks.GetChunksByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.Equal(t, "Jane Smith", chunk.Metadata.Author)
		assert.Equal(t, "3/4/2024", chunk.Metadata.Date)
	}
	assert.NotContains(t, chunks[len(chunks)-1].Text, "Author:")
}

func TestIndexDocumentSourcelessDerivesIDFromText(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)
	ctx := context.Background()

	first, err := pipeline.IndexDocument(ctx, "", "one small untitled note")
	require.NoError(t, err)
	assert.Equal(t, core.DocumentIDFor("", "one small untitled note"), first.Id)

	second, err := pipeline.IndexDocument(ctx, "", "a different untitled note")
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	count, err := stores.Documents.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexDocumentBatchesEmbeddingCalls(t *testing.T) {
	pipeline, stores, embedder := setupPipeline(t, WithBatchSize(2))
	ctx := context.Background()

	// 21 words at size 5, overlap 1: five windows, so three batches of 2+2+1.
	_, err := pipeline.IndexDocument(ctx, "memo.txt", wordText(21))
	require.NoError(t, err)

	assert.Equal(t, 5, stores.Vectors.Size())
	assert.Equal(t, 3, embedder.CallCount())
}

func TestIndexDocumentCanceledContext(t *testing.T) {
	pipeline, stores, _ := setupPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.IndexDocument(ctx, "memo.txt", wordText(12))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	count, err := stores.Documents.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, stores.Vectors.Size())
}
