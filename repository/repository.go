package repository

import (
	"context"
	"errors"

	"legalrag-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrCaseRecordExists = errors.New("case record already exists for content hash")
)

// CaseRecordStore is the append-only metadata index of extracted case records,
// keyed by content hash
type CaseRecordStore interface {
	// Create inserts rec and returns ErrCaseRecordExists if its content hash is present
	Create(ctx context.Context, rec *models.CaseRecord) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	GetByHash(ctx context.Context, hash string) (*models.CaseRecord, error)
	// List returns records of the given collections, or of every collection when empty
	List(ctx context.Context, collections []string) ([]models.CaseRecord, error)
}

// JobStore persists asynchronous ingestion jobs
type JobStore interface {
	Create(ctx context.Context, job *models.IngestionJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IngestionJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestionJobStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestionSteps) error
	Complete(ctx context.Context, id uuid.UUID, report *models.IngestionReport) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// SourceDocumentStore records archived raw uploads
type SourceDocumentStore interface {
	Create(ctx context.Context, doc *models.SourceDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error)
	ListByCollection(ctx context.Context, collection string) ([]*models.SourceDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func inCollections(collection string, collections []string) bool {
	if len(collections) == 0 {
		return true
	}
	for _, c := range collections {
		if c == collection {
			return true
		}
	}
	return false
}
