package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/quaerit/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	chunkRecordPrefix    = "chkrec"
	chunkDocumentPrefix  = "chkdoc"
	feedbackRecordPrefix = "fbkrec"
	vectorRecordPrefix   = "vecrec"
	vectorDimensionKey   = "vecdim"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the chunk-by-document
// index. Format: prefix:documentID:ordinal, with both fixed-width BigEndian
// so iterating a document's prefix yields chunks in ordinal order.
func makeChunkDocumentKey(documentID core.ID, ordinal int) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for ordinal
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makePartialChunkDocumentKey generates a partial key covering all index
// entries of one document. Format: prefix:documentID
func makePartialChunkDocumentKey(documentID core.ID) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeFeedbackKey generates a key for a feedback record by chunk ID.
func makeFeedbackKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", feedbackRecordPrefix, chunkID))
}

// makeVectorKey generates a key for an embedding vector by chunk ID.
func makeVectorKey(chunkID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", vectorRecordPrefix, chunkID))
}

// makeCheckpointKey generates a key for operation checkpoints.
func makeCheckpointKey(operation string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", operation))
}
