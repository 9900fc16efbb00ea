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
	"errors"

	"github.com/poiesic/quaerit/storage"
)

// Stores bundles every repository over a single backend. Used by tests and
// by callers that want the full storage surface wired in one call.
type Stores struct {
	Documents   storage.DocumentRepository
	Chunks      storage.ChunkRepository
	Feedback    storage.FeedbackRepository
	Vectors     storage.VectorIndex
	Checkpoints storage.CheckpointRepository
	Backend     *Backend
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must Close the stores when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	stores, err := NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return stores, nil
}

// NewStores wires all repositories over an already opened backend.
func NewStores(backend *Backend) (*Stores, error) {
	documents, err := NewDocumentRepository(backend)
	if err != nil {
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		return nil, err
	}

	feedback, err := NewFeedbackRepository(backend)
	if err != nil {
		return nil, err
	}

	vectors, err := OpenVectorIndex(backend)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Documents:   documents,
		Chunks:      chunks,
		Feedback:    feedback,
		Vectors:     vectors,
		Checkpoints: NewCheckpointRepository(backend),
		Backend:     backend,
	}, nil
}

// Close closes all repositories and the backend.
func (s *Stores) Close() error {
	var errs []error
	errs = append(errs, s.Feedback.Close())
	errs = append(errs, s.Chunks.Close())
	errs = append(errs, s.Documents.Close())
	errs = append(errs, s.Backend.Close())
	return errors.Join(errs...)
}
