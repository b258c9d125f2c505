package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"legalrag-backend/models"
)

// JSONCaseRecordStore is a file-backed CaseRecordStore for the embedded deployment,
// where chunks live in a persistent chromem directory and no database is configured.
// The whole index is rewritten on every Create.
type JSONCaseRecordStore struct {
	*MemoryCaseRecordStore
	path    string
	writeMu sync.Mutex
}

// OpenJSONCaseRecordStore loads path if it exists
func OpenJSONCaseRecordStore(path string) (*JSONCaseRecordStore, error) {
	s := &JSONCaseRecordStore{MemoryCaseRecordStore: NewMemoryCaseRecordStore(), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading case record index: %w", err)
	}

	var records []models.CaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding case record index %s: %w", path, err)
	}
	for i := range records {
		if err := s.MemoryCaseRecordStore.Create(context.Background(), &records[i]); err != nil && !errors.Is(err, ErrCaseRecordExists) {
			return nil, err
		}
	}
	return s, nil
}

// Create adds the record and persists the index
func (s *JSONCaseRecordStore) Create(ctx context.Context, rec *models.CaseRecord) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.MemoryCaseRecordStore.Create(ctx, rec); err != nil {
		return err
	}
	return s.flush()
}

// flush writes to a temp file and renames it over the index
func (s *JSONCaseRecordStore) flush() error {
	s.mu.RLock()
	records := make([]models.CaseRecord, 0, len(s.ordered))
	for _, hash := range s.ordered {
		records = append(records, s.byHash[hash])
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding case record index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing case record index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing case record index: %w", err)
	}
	return nil
}
