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


package badger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB.
//
// Queries run as an exact scan over an in-memory copy of every vector;
// badger holds the durable copy and is written through on every mutation.
// Corpora are expected to stay memory-sized, so the scan is the whole
// search structure. The first vector added fixes the dimension, which is
// persisted so it survives restarts.
type VectorIndex struct {
	backend *Backend

	mu      sync.RWMutex
	vectors map[core.ID][]float32
	dim     int
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// OpenVectorIndex creates a VectorIndex and loads all persisted vectors
// into memory.
func OpenVectorIndex(backend *Backend) (*VectorIndex, error) {
	idx := &VectorIndex{
		backend: backend,
		vectors: make(map[core.ID][]float32),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Close releases resources. The in-memory copy needs no teardown.
func (idx *VectorIndex) Close() error {
	return nil
}

// Add inserts the vector for a chunk, replacing any existing vector.
// The first vector ever added fixes the index dimension; adding a vector of
// a different dimension fails and mutates nothing.
func (idx *VectorIndex) Add(ctx context.Context, chunkID core.ID, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: %w: empty vector for chunk %d", core.ErrConfiguration, core.ErrDimensionMismatch, chunkID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dim != 0 && len(vector) != idx.dim {
		return fmt.Errorf("%w: %w: index dimension %d, got %d", core.ErrConfiguration, core.ErrDimensionMismatch, idx.dim, len(vector))
	}

	// Durable copy first; the in-memory map only changes once the write
	// transaction committed.
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		if idx.dim == 0 {
			if err := tx.Set([]byte(vectorDimensionKey), marshalDimension(len(vector))); err != nil {
				return err
			}
		}
		if err := tx.Set(makeVectorKey(chunkID), storage.MarshalVector(vector)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	if idx.dim == 0 {
		idx.dim = len(vector)
	}
	idx.vectors[chunkID] = slices.Clone(vector)
	return nil
}

// Remove deletes a chunk's vector. No-op if absent.
func (idx *VectorIndex) Remove(ctx context.Context, chunkID core.ID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeVectorKey(chunkID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	delete(idx.vectors, chunkID)
	return nil
}

// Query returns up to k chunks nearest to the given vector under cosine
// similarity, ordered by descending similarity with ties broken by chunk ID
// ascending. An empty index yields an empty result.
func (idx *VectorIndex) Query(ctx context.Context, vector []float32, k int) ([]core.VectorMatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %w: got %d", core.ErrConfiguration, core.ErrInvalidTopK, k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, nil
	}

	if len(vector) != idx.dim {
		return nil, fmt.Errorf("%w: %w: index dimension %d, query dimension %d", core.ErrConfiguration, core.ErrDimensionMismatch, idx.dim, len(vector))
	}

	matches := make([]core.VectorMatch, 0, len(idx.vectors))
	for chunkID, candidate := range idx.vectors {
		matches = append(matches, core.VectorMatch{
			ChunkId:    chunkID,
			Similarity: core.CosineSimilarity(vector, candidate),
		})
	}

	// Descending similarity, ties by chunk ID ascending so equal scores
	// rank deterministically.
	slices.SortFunc(matches, func(a, b core.VectorMatch) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Size returns the number of indexed vectors.
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimension returns the fixed vector dimension, or 0 before any vector has
// been added.
func (idx *VectorIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Rebuild reloads the in-memory structure from durable storage and
// re-verifies dimensional uniformity. When no vectors remain on disk the
// dimension resets, so a fully cleared index can adopt a new embedding
// model.
func (idx *VectorIndex) Rebuild(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.loadLocked()
}

// load populates the in-memory map from badger.
func (idx *VectorIndex) load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.loadLocked()
}

func (idx *VectorIndex) loadLocked() error {
	vectors := make(map[core.ID][]float32)
	dim := 0

	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		if item, err := tx.Get([]byte(vectorDimensionKey)); err == nil {
			err = item.Value(func(val []byte) error {
				var err error
				dim, err = unmarshalDimension(val)
				return err
			})
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		prefix := []byte(vectorRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			chunkID, err := parseDecimalID(item.Key()[len(prefix):])
			if err != nil {
				return err
			}

			var vector []float32
			err = item.Value(func(val []byte) error {
				var err error
				vector, err = storage.UnmarshalVector(val)
				return err
			})
			if err != nil {
				return err
			}

			if dim == 0 {
				dim = len(vector)
			}
			if len(vector) != dim {
				return fmt.Errorf("%w: %w: stored vector for chunk %d has dimension %d, index dimension %d",
					core.ErrConfiguration, core.ErrDimensionMismatch, chunkID, len(vector), dim)
			}
			vectors[chunkID] = vector
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	// All vectors gone: unfix the dimension so the next Add establishes a
	// fresh one.
	if len(vectors) == 0 && dim != 0 {
		dim = 0
		err := idx.backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Delete([]byte(vectorDimensionKey)); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return err
		}
	}

	idx.vectors = vectors
	idx.dim = dim
	return nil
}

// marshalDimension encodes the index dimension record.
func marshalDimension(dim int) []byte {
	buf := make([]byte, varint.Int.Size(dim))
	varint.Int.Marshal(dim, buf)
	return buf
}

// unmarshalDimension decodes the index dimension record.
func unmarshalDimension(data []byte) (int, error) {
	dim, _, err := varint.Int.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return dim, nil
}

// parseDecimalID parses the decimal chunk ID suffix of a vector key.
func parseDecimalID(data []byte) (core.ID, error) {
	var id uint64
	if _, err := fmt.Sscanf(string(data), "%d", &id); err != nil {
		return 0, fmt.Errorf("%w: bad vector key suffix %q", storage.ErrSerializationFailed, data)
	}
	return core.ID(id), nil
}
