package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"legalrag-backend/models"

	"github.com/google/uuid"
)

// MemoryCaseRecordStore keeps case records in process, for tests and one-shot CLI runs
type MemoryCaseRecordStore struct {
	mu      sync.RWMutex
	byHash  map[string]models.CaseRecord
	ordered []string
}

// NewMemoryCaseRecordStore creates an empty store
func NewMemoryCaseRecordStore() *MemoryCaseRecordStore {
	return &MemoryCaseRecordStore{byHash: make(map[string]models.CaseRecord)}
}

func (s *MemoryCaseRecordStore) Create(ctx context.Context, rec *models.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[rec.ContentHash]; ok {
		return ErrCaseRecordExists
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.byHash[rec.ContentHash] = *rec
	s.ordered = append(s.ordered, rec.ContentHash)
	return nil
}

func (s *MemoryCaseRecordStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

func (s *MemoryCaseRecordStore) GetByHash(ctx context.Context, hash string) (*models.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryCaseRecordStore) List(ctx context.Context, collections []string) ([]models.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CaseRecord
	for _, hash := range s.ordered {
		rec := s.byHash[hash]
		if inCollections(rec.Collection, collections) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

// sortRecords matches the ORDER BY of the database repository
func sortRecords(records []models.CaseRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Collection != records[j].Collection {
			return records[i].Collection < records[j].Collection
		}
		return records[i].SourceFilename < records[j].SourceFilename
	})
}

// MemoryJobStore keeps ingestion jobs in process
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.IngestionJob
}

// NewMemoryJobStore creates an empty store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]models.IngestionJob)}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *models.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job.ID = uuid.New()
	job.CreatedAt, job.UpdatedAt = now, now
	if job.Steps == nil {
		job.Steps = make(models.IngestionSteps, 0)
	}
	s.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (s *MemoryJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	job = cloneJob(job)
	return &job, nil
}

func (s *MemoryJobStore) update(id uuid.UUID, fn func(*models.IngestionJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = cloneJob(job)
	return nil
}

func (s *MemoryJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestionJobStatus) error {
	return s.update(id, func(j *models.IngestionJob) { j.Status = status })
}

func (s *MemoryJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestionSteps) error {
	return s.update(id, func(j *models.IngestionJob) {
		j.CurrentStep = &currentStep
		j.Steps = steps
	})
}

func (s *MemoryJobStore) Complete(ctx context.Context, id uuid.UUID, report *models.IngestionReport) error {
	return s.update(id, func(j *models.IngestionJob) {
		now := time.Now().UTC()
		j.Status = models.JobStatusCompleted
		j.Report = report
		j.CompletedAt = &now
	})
}

func (s *MemoryJobStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return s.update(id, func(j *models.IngestionJob) {
		j.Status = models.JobStatusFailed
		j.ErrorMessage = &errorMessage
	})
}

// cloneJob copies the steps slice so callers never share it with the store
func cloneJob(job models.IngestionJob) models.IngestionJob {
	steps := make(models.IngestionSteps, len(job.Steps))
	copy(steps, job.Steps)
	job.Steps = steps
	return job
}

// MemorySourceDocumentStore keeps source document records in process
type MemorySourceDocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]models.SourceDocument
}

// NewMemorySourceDocumentStore creates an empty store
func NewMemorySourceDocumentStore() *MemorySourceDocumentStore {
	return &MemorySourceDocumentStore{docs: make(map[uuid.UUID]models.SourceDocument)}
}

func (s *MemorySourceDocumentStore) Create(ctx context.Context, doc *models.SourceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.CreatedAt = time.Now().UTC()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *MemorySourceDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemorySourceDocumentStore) ListByCollection(ctx context.Context, collection string) ([]*models.SourceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SourceDocument
	for _, doc := range s.docs {
		if doc.Collection == collection {
			d := doc
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemorySourceDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
