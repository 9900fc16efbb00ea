package reindex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStores(t *testing.T) *badger.Stores {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	return stores
}

func seedChunks(t *testing.T, stores *badger.Stores, n int) []*core.Chunk {
	t.Helper()

	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			Id:         core.ID(i + 1),
			DocumentId: 1,
			Ordinal:    i,
			Start:      i * 10,
			End:        i*10 + 9,
			Text:       fmt.Sprintf("chunk text %d", i+1),
		}
	}
	require.NoError(t, stores.Chunks.AddChunks(context.Background(), chunks...))

	return chunks
}

func TestChunkIterator_Basic(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 3)

	iter := NewChunkIterator(stores.Chunks, 2)

	var ids []core.ID
	err := iter.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		for _, chunk := range chunks {
			ids = append(ids, chunk.Id)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []core.ID{1, 2, 3}, ids, "should visit every chunk in ID order")
}

func TestChunkIterator_BatchSizes(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 10)

	tests := []struct {
		name          string
		batchSize     int
		expectedBatch int
	}{
		{"batch size 1", 1, 10},
		{"batch size 3", 3, 4}, // 3+3+3+1
		{"batch size 5", 5, 2}, // 5+5
		{"batch size 10", 10, 1},
		{"batch size 100", 100, 1}, // All in one batch
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iter := NewChunkIterator(stores.Chunks, tt.batchSize)
			batchCount := 0
			totalChunks := 0

			err := iter.ForEach(context.Background(), func(chunks []*core.Chunk) error {
				batchCount++
				totalChunks += len(chunks)
				assert.LessOrEqual(t, len(chunks), tt.batchSize, "batch should not exceed batchSize")
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedBatch, batchCount, "batch count")
			assert.Equal(t, 10, totalChunks, "total chunks")
		})
	}
}

func TestChunkIterator_EmptyStore(t *testing.T) {
	stores := setupStores(t)

	iter := NewChunkIterator(stores.Chunks, 10)
	calls := 0

	err := iter.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls, "callback should not run for an empty store")
}

func TestChunkIterator_StopsOnError(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 6)

	iter := NewChunkIterator(stores.Chunks, 2)
	batches := 0
	boom := errors.New("boom")

	err := iter.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		batches++
		if batches == 2 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, batches, "iteration should stop at the failing batch")
}

func TestChunkIterator_ContextCanceled(t *testing.T) {
	stores := setupStores(t)
	seedChunks(t, stores, 6)

	ctx, cancel := context.WithCancel(context.Background())

	iter := NewChunkIterator(stores.Chunks, 2)
	batches := 0

	err := iter.ForEach(ctx, func(chunks []*core.Chunk) error {
		batches++
		cancel()
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, batches, "cancellation should be honored between batches")
}

func TestChunkIterator_InvalidBatchSizeFallsBack(t *testing.T) {
	stores := setupStores(t)

	iter := NewChunkIterator(stores.Chunks, 0)
	assert.Equal(t, DefaultBatchSize, iter.batchSize)

	iter = NewChunkIterator(stores.Chunks, -5)
	assert.Equal(t, DefaultBatchSize, iter.batchSize)
}

func TestChunkIterator_OrderedByID(t *testing.T) {
	stores := setupStores(t)

	for _, id := range []core.ID{50, 2, 17} {
		chunk := &core.Chunk{
			Id:         id,
			DocumentId: 1,
			Ordinal:    int(id),
			Start:      0,
			End:        5,
			Text:       "text",
		}
		require.NoError(t, stores.Chunks.AddChunks(context.Background(), chunk))
	}

	iter := NewChunkIterator(stores.Chunks, 10)

	var ids []core.ID
	err := iter.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		for _, chunk := range chunks {
			ids = append(ids, chunk.Id)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []core.ID{2, 17, 50}, ids)
}
