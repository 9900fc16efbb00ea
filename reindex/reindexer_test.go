package reindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/quaerit/ai/mock"
	"github.com/poiesic/quaerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProgress struct {
	totals   []int
	updates  []int
	finished int
}

func (p *recordingProgress) Start(total int)      { p.totals = append(p.totals, total) }
func (p *recordingProgress) Update(completed int) { p.updates = append(p.updates, completed) }
func (p *recordingProgress) Finish()              { p.finished++ }

func testConfig(batchSize int) *Config {
	return &Config{
		BatchSize:  batchSize,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.RetryDelay)
}

func TestNewReindexer_NilConfigAndProgress(t *testing.T) {
	stores := setupStores(t)

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, mock.NewMockEmbedder(), nil, nil)

	assert.Equal(t, DefaultConfig().BatchSize, r.config.BatchSize)
	assert.Equal(t, DefaultConfig().MaxRetries, r.config.MaxRetries)
	assert.IsType(t, NopProgress{}, r.progress)
}

func TestReindexer_FreshIndex(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 5)

	ctx := context.Background()
	embedder := mock.NewMockEmbedder()

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, embedder, testConfig(2), nil)
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, 5, stores.Vectors.Size(), "every chunk should be indexed")
	assert.Equal(t, 384, stores.Vectors.Dimension())
	assert.Equal(t, 3, embedder.CallCount(), "5 chunks at batch size 2 is 3 calls")

	checkpoint, err := stores.Checkpoints.LoadCheckpoint(ctx, checkpointOperation)
	require.NoError(t, err)
	assert.Nil(t, checkpoint, "checkpoint should be cleared on success")

	// The index is queryable with the same embedder that produced it.
	query, err := embedder.EmbedQuery(ctx, "chunk text 3")
	require.NoError(t, err)

	matches, err := stores.Vectors.Query(ctx, query, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.ID(3), matches[0].ChunkId)
}

func TestReindexer_EmptyStore(t *testing.T) {
	stores := setupStores(t)

	embedder := mock.NewMockEmbedder()
	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, embedder, testConfig(10), nil)

	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, embedder.CallCount(), "no chunks means no provider calls")
	assert.Zero(t, stores.Vectors.Size())
}

func TestReindexer_DimensionChange(t *testing.T) {
	stores := setupStores(t)
	chunks := seedChunks(t, stores, 4)

	ctx := context.Background()

	// Index everything at dimension 3, as if an older model built it.
	for _, chunk := range chunks {
		require.NoError(t, stores.Vectors.Add(ctx, chunk.Id, []float32{1, 0, 0}))
	}
	require.Equal(t, 3, stores.Vectors.Dimension())

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0, 1}
		}
		return vectors, nil
	}

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, embedder, testConfig(2), nil)
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, 2, stores.Vectors.Dimension(), "index should adopt the new dimension")
	assert.Equal(t, 4, stores.Vectors.Size())

	matches, err := stores.Vectors.Query(ctx, []float32{0, 1}, 4)
	require.NoError(t, err)
	assert.Len(t, matches, 4)
}

func TestReindexer_FirstBatchFailureLeavesIndexIntact(t *testing.T) {
	stores := setupStores(t)
	chunks := seedChunks(t, stores, 3)

	ctx := context.Background()

	for _, chunk := range chunks {
		require.NoError(t, stores.Vectors.Add(ctx, chunk.Id, []float32{1, 0, 0}))
	}

	providerErr := errors.New("provider down")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, providerErr
	}

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, embedder, testConfig(2), nil)

	err := r.Run(ctx)
	require.ErrorIs(t, err, providerErr)

	assert.Equal(t, 3, stores.Vectors.Size(), "old index should be untouched")
	assert.Equal(t, 3, stores.Vectors.Dimension(), "old dimension should be untouched")

	checkpoint, loadErr := stores.Checkpoints.LoadCheckpoint(ctx, checkpointOperation)
	require.NoError(t, loadErr)
	assert.Nil(t, checkpoint, "no batch was stored, so no checkpoint")
}

func TestReindexer_ResumesAfterInterruption(t *testing.T) {
	stores := setupStores(t)
	chunks := seedChunks(t, stores, 4)

	ctx := context.Background()

	providerErr := errors.New("provider down")
	calls := 0
	flaky := mock.NewMockEmbedder()
	flaky.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls >= 2 {
			return nil, providerErr
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, flaky, testConfig(2), nil)

	err := r.Run(ctx)
	require.ErrorIs(t, err, providerErr, "second batch should fail")

	assert.Equal(t, 2, stores.Vectors.Size(), "first batch should be stored")

	checkpoint, loadErr := stores.Checkpoints.LoadCheckpoint(ctx, checkpointOperation)
	require.NoError(t, loadErr)
	require.NotNil(t, checkpoint, "interrupted run should leave its checkpoint")
	assert.Equal(t, chunks[1].Id, checkpoint.LastChunkId)

	// A later run with a healthy provider starts over and completes.
	healthy := mock.NewMockEmbedder()
	healthy.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0, 1}
		}
		return vectors, nil
	}

	r = NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, healthy, testConfig(2), nil)
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, 4, stores.Vectors.Size(), "all chunks reindexed")

	checkpoint, loadErr = stores.Checkpoints.LoadCheckpoint(ctx, checkpointOperation)
	require.NoError(t, loadErr)
	assert.Nil(t, checkpoint, "checkpoint should be cleared on success")
}

func TestReindexer_ReportsProgress(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 5)

	progress := &recordingProgress{}
	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, mock.NewMockEmbedder(), testConfig(2), progress)

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []int{5}, progress.totals)
	assert.Equal(t, []int{2, 4, 5}, progress.updates)
	assert.Equal(t, 1, progress.finished)
}

func TestReindexer_ContextCanceled(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 6)

	ctx, cancel := context.WithCancel(context.Background())

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		cancel()
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	r := NewReindexer(stores.Chunks, stores.Vectors, stores.Checkpoints, embedder, testConfig(2), nil)

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, stores.Vectors.Size(), 6, "run should stop before indexing everything")
}
