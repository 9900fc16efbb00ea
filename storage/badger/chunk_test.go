package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/quaerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestChunks builds n contiguous chunks of one document.
func makeTestChunks(documentID core.ID, n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	offset := 0
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("Chunk %d of document %d with some content.", i, documentID)
		chunks[i] = &core.Chunk{
			DocumentId: documentID,
			Ordinal:    i,
			Start:      offset,
			End:        offset + len(text),
			Text:       text,
		}
		offset += len(text)
	}
	return chunks
}

func TestAddChunks_DerivesIDs(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docID := core.DocumentIDFor("report.txt", "")
	chunks := makeTestChunks(docID, 3)

	err = stores.Chunks.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	for _, chunk := range chunks {
		assert.Equal(t, core.ChunkIDFor(docID, chunk.Start, chunk.End), chunk.Id)
	}
}

func TestAddChunks_Idempotent(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docID := core.DocumentIDFor("report.txt", "")

	err = stores.Chunks.AddChunks(ctx, makeTestChunks(docID, 3)...)
	require.NoError(t, err)

	// Adding the same chunks again replaces, never duplicates
	err = stores.Chunks.AddChunks(ctx, makeTestChunks(docID, 3)...)
	require.NoError(t, err)

	count, err := stores.Chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetChunk_Missing(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	chunk, err := stores.Chunks.GetChunk(context.Background(), core.ID(555))
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestGetChunks_SkipsMissing(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docID := core.DocumentIDFor("report.txt", "")
	chunks := makeTestChunks(docID, 2)

	err = stores.Chunks.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	got, err := stores.Chunks.GetChunks(ctx, chunks[0].Id, core.ID(777), chunks[1].Id)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetChunksByDocument_OrdinalOrder(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docA := core.DocumentIDFor("a.txt", "")
	docB := core.DocumentIDFor("b.txt", "")

	// Insert B first so iteration order isn't insertion order
	require.NoError(t, stores.Chunks.AddChunks(ctx, makeTestChunks(docB, 2)...))
	require.NoError(t, stores.Chunks.AddChunks(ctx, makeTestChunks(docA, 4)...))

	got, err := stores.Chunks.GetChunksByDocument(ctx, docA)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, chunk := range got {
		assert.Equal(t, docA, chunk.DocumentId)
		assert.Equal(t, i, chunk.Ordinal)
	}
}

func TestGetChunksByDocument_Empty(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	got, err := stores.Chunks.GetChunksByDocument(context.Background(), core.ID(1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetAllChunks_OrderedByID(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Chunks.AddChunks(ctx, makeTestChunks(core.DocumentIDFor("a.txt", ""), 3)...))
	require.NoError(t, stores.Chunks.AddChunks(ctx, makeTestChunks(core.DocumentIDFor("b.txt", ""), 3)...))

	all, err := stores.Chunks.GetAllChunks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Id, all[i].Id)
	}
}

func TestDeleteChunksByDocument(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docA := core.DocumentIDFor("a.txt", "")
	docB := core.DocumentIDFor("b.txt", "")
	chunksA := makeTestChunks(docA, 3)

	require.NoError(t, stores.Chunks.AddChunks(ctx, chunksA...))
	require.NoError(t, stores.Chunks.AddChunks(ctx, makeTestChunks(docB, 2)...))

	removed, err := stores.Chunks.DeleteChunksByDocument(ctx, docA)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	for i, chunk := range chunksA {
		assert.Equal(t, chunk.Id, removed[i])
	}

	// Other document untouched
	count, err := stores.Chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Index entries gone with the records
	left, err := stores.Chunks.GetChunksByDocument(ctx, docA)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDeleteChunksByDocument_NoChunks(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	removed, err := stores.Chunks.DeleteChunksByDocument(context.Background(), core.ID(404))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestChunkRoundTrip_PreservesMetadata(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	docID := core.DocumentIDFor("memo.txt", "")
	chunk := &core.Chunk{
		DocumentId: docID,
		Ordinal:    0,
		Start:      0,
		End:        52,
		Text:       "Date: January 15, 2024\nAuthor: Sarah Chen\nQ4 results",
		Metadata: core.Metadata{
			Date:     "January 15, 2024",
			Author:   "Sarah Chen",
			Location: "Austin, TX",
		},
	}

	require.NoError(t, stores.Chunks.AddChunks(ctx, chunk))

	loaded, err := stores.Chunks.GetChunk(ctx, chunk.Id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, chunk.Text, loaded.Text)
	assert.Equal(t, chunk.Metadata, loaded.Metadata)
	assert.Equal(t, chunk.Start, loaded.Start)
	assert.Equal(t, chunk.End, loaded.End)
}
