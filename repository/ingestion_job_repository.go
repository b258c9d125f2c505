package repository

import (
	"context"
	"errors"
	"time"

	"legalrag-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IngestionJobRepository handles database operations for ingestion jobs
type IngestionJobRepository struct {
	db *pgxpool.Pool
}

// NewIngestionJobRepository creates a new ingestion job repository
func NewIngestionJobRepository(db *pgxpool.Pool) *IngestionJobRepository {
	return &IngestionJobRepository{db: db}
}

// Create creates a new ingestion job
func (r *IngestionJobRepository) Create(ctx context.Context, job *models.IngestionJob) error {
	query := `
		INSERT INTO ingestion_jobs (
			collection, status, current_step, steps, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	if job.Steps == nil {
		job.Steps = make(models.IngestionSteps, 0)
	}

	err := r.db.QueryRow(
		ctx, query,
		job.Collection,
		job.Status,
		job.CurrentStep,
		job.Steps,
		job.ErrorMessage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	return err
}

// GetByID retrieves an ingestion job by ID
func (r *IngestionJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestionJob, error) {
	job := &models.IngestionJob{}
	var report *models.IngestionReport
	query := `
		SELECT id, collection, status, current_step, steps, report, error_message,
			created_at, updated_at, completed_at
		FROM ingestion_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Collection,
		&job.Status,
		&job.CurrentStep,
		&job.Steps,
		&report,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	job.Report = report
	// Scan leaves Steps nil for a NULL column
	if job.Steps == nil {
		job.Steps = make(models.IngestionSteps, 0)
	}

	return job, nil
}

// UpdateStatus updates the status of an ingestion job
func (r *IngestionJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IngestionJobStatus) error {
	query := `
		UPDATE ingestion_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress updates the progress of an ingestion job
func (r *IngestionJobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IngestionSteps) error {
	query := `
		UPDATE ingestion_jobs SET
			current_step = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps)
	return err
}

// Complete marks an ingestion job as completed and stores its report
func (r *IngestionJobRepository) Complete(ctx context.Context, id uuid.UUID, report *models.IngestionReport) error {
	now := time.Now()
	query := `
		UPDATE ingestion_jobs SET
			status = $2,
			report = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, report, now)
	return err
}

// Fail marks an ingestion job as failed
func (r *IngestionJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE ingestion_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusFailed, errorMessage)
	return err
}
