package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/storage"
)

const (
	// KeyPrefix is the object storage prefix of staged datasets.
	KeyPrefix = "staging/"
	// ContentType of a staged dataset object.
	ContentType = "application/json"
)

// ErrDatasetNotFound is returned when no dataset is staged for a run.
var ErrDatasetNotFound = errors.New("staged dataset not found")

// Store keeps the parsed feed of a run in object storage, one JSON array
// per run, so batches can be applied across steps and process restarts.
type Store struct {
	objects storage.ObjectStorage

	mu     sync.Mutex
	runID  string
	cached []domain.ProductRecord
}

// NewStore creates a staging store over objects.
// Parameters:
//   - objects: object storage holding the dataset blobs.
//
// Returns:
//   - *Store: initialized staging store.
func NewStore(objects storage.ObjectStorage) *Store {
	return &Store{objects: objects}
}

// Key returns the object key of the dataset staged for runID.
func Key(runID string) string {
	return KeyPrefix + runID + ".json"
}

// Save stages records for runID, replacing any previous dataset for it.
func (s *Store) Save(ctx context.Context, runID string, records []domain.ProductRecord) error {
	if records == nil {
		records = []domain.ProductRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode staged dataset: %w", err)
	}
	if err := s.objects.Upload(ctx, Key(runID), bytes.NewReader(data), int64(len(data)), ContentType); err != nil {
		return fmt.Errorf("failed to store staged dataset: %w", err)
	}

	s.mu.Lock()
	s.runID, s.cached = runID, records
	s.mu.Unlock()
	return nil
}

// Load returns the full dataset staged for runID.
// Returns:
//   - []domain.ProductRecord: staged records in feed order.
//   - error: ErrDatasetNotFound if nothing is staged for runID.
func (s *Store) Load(ctx context.Context, runID string) ([]domain.ProductRecord, error) {
	s.mu.Lock()
	if s.runID == runID && s.cached != nil {
		records := s.cached
		s.mu.Unlock()
		return records, nil
	}
	s.mu.Unlock()

	rc, err := s.objects.Download(ctx, Key(runID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to read staged dataset: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged dataset: %w", err)
	}
	var records []domain.ProductRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode staged dataset: %w", err)
	}

	s.mu.Lock()
	s.runID, s.cached = runID, records
	s.mu.Unlock()
	return records, nil
}

// Batch returns at most limit records starting at offset. An offset past the
// end yields an empty batch.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run whose dataset is read.
//   - offset: index of the first record.
//   - limit: maximum number of records.
//
// Returns:
//   - []domain.ProductRecord: the batch.
//   - error: ErrDatasetNotFound or a read failure.
func (s *Store) Batch(ctx context.Context, runID string, offset, limit int) ([]domain.ProductRecord, error) {
	records, err := s.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) || limit <= 0 {
		return []domain.ProductRecord{}, nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end], nil
}

// Delete removes the dataset staged for runID. Deleting a missing dataset is
// not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	if s.runID == runID {
		s.runID, s.cached = "", nil
	}
	s.mu.Unlock()

	if err := s.objects.Delete(ctx, Key(runID)); err != nil {
		return fmt.Errorf("failed to delete staged dataset: %w", err)
	}
	return nil
}
