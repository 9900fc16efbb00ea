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
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/storage"
)

// FeedbackRepository implements storage.FeedbackRepository for BadgerDB.
//
// RecordFeedback is a read-modify-write; the mutex serializes writers so
// concurrent feedback for the same chunk accumulates instead of conflicting
// under badger's SSI.
type FeedbackRepository struct {
	backend *Backend
	mu      sync.Mutex
}

var _ storage.FeedbackRepository = (*FeedbackRepository)(nil)

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(backend *Backend) (*FeedbackRepository, error) {
	return &FeedbackRepository{
		backend: backend,
	}, nil
}

// Close releases resources. FeedbackRepository has no resources to release.
func (r *FeedbackRepository) Close() error {
	return nil
}

// RecordFeedback adds score to the chunk's cumulative feedback and
// increments its event count, creating the record on first feedback.
func (r *FeedbackRepository) RecordFeedback(ctx context.Context, chunkID core.ID, score float64) (*core.FeedbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var record *core.FeedbackRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFeedbackKey(chunkID)

		var err error
		record, err = readFeedback(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			record = &core.FeedbackRecord{ChunkId: chunkID}
		}

		record.Score += score
		record.Events++
		record.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalFeedbackRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetFeedback retrieves the feedback record for a chunk.
// Returns nil, nil if no feedback has been recorded.
func (r *FeedbackRepository) GetFeedback(ctx context.Context, chunkID core.ID) (*core.FeedbackRecord, error) {
	var record *core.FeedbackRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readFeedback(tx, makeFeedbackKey(chunkID))
		return err
	}, false)
	return record, err
}

// GetFeedbackScore returns the cumulative score for a chunk, or 0 if no
// feedback has been recorded.
func (r *FeedbackRepository) GetFeedbackScore(ctx context.Context, chunkID core.ID) (float64, error) {
	record, err := r.GetFeedback(ctx, chunkID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.Score, nil
}

// GetFeedbackScores returns cumulative scores for the given chunks.
// Chunks without feedback are absent from the result map.
func (r *FeedbackRepository) GetFeedbackScores(ctx context.Context, chunkIDs ...core.ID) (map[core.ID]float64, error) {
	scores := make(map[core.ID]float64, len(chunkIDs))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunkID := range chunkIDs {
			record, err := readFeedback(tx, makeFeedbackKey(chunkID))
			if err != nil {
				return err
			}
			if record != nil {
				scores[record.ChunkId] = record.Score
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// DeleteFeedback removes the feedback record for a chunk.
// No-op if no record exists.
func (r *FeedbackRepository) DeleteFeedback(ctx context.Context, chunkID core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeFeedbackKey(chunkID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountFeedback returns the number of chunks with recorded feedback.
func (r *FeedbackRepository) CountFeedback(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(feedbackRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readFeedback reads a feedback record from the transaction.
// Returns nil, nil if the key does not exist.
func readFeedback(tx *badger.Txn, key []byte) (*core.FeedbackRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.FeedbackRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalFeedbackRecord(val)
		return err
	})
	return record, err
}
