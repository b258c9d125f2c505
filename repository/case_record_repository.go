package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"legalrag-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRecordRepository handles database operations for case records.
// The full record lives in a JSONB column next to the indexed lookup fields.
type CaseRecordRepository struct {
	db *pgxpool.Pool
}

// NewCaseRecordRepository creates a new case record repository
func NewCaseRecordRepository(db *pgxpool.Pool) *CaseRecordRepository {
	return &CaseRecordRepository{db: db}
}

// Create inserts a case record; a duplicate content hash is reported, never updated
func (r *CaseRecordRepository) Create(ctx context.Context, rec *models.CaseRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode case record: %w", err)
	}

	query := `
		INSERT INTO case_records (
			content_hash, collection, source_filename, case_number, document_type,
			authority_weight, record
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (content_hash) DO NOTHING
		RETURNING id, created_at`

	err = r.db.QueryRow(
		ctx, query,
		rec.ContentHash,
		rec.Collection,
		rec.SourceFilename,
		rec.CaseNumber,
		rec.DocumentType,
		rec.AuthorityWeight,
		body,
	).Scan(&rec.ID, &rec.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCaseRecordExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert case record: %w", err)
	}
	return nil
}

// ExistsByHash reports whether a record with the content hash was ingested
func (r *CaseRecordRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM case_records WHERE content_hash = $1)`, hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check case record: %w", err)
	}
	return exists, nil
}

// GetByHash retrieves a case record by content hash
func (r *CaseRecordRepository) GetByHash(ctx context.Context, hash string) (*models.CaseRecord, error) {
	query := `
		SELECT id, record, created_at
		FROM case_records
		WHERE content_hash = $1`

	rec, err := scanCaseRecord(r.db.QueryRow(ctx, query, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves case records ordered by collection and source filename
func (r *CaseRecordRepository) List(ctx context.Context, collections []string) ([]models.CaseRecord, error) {
	query := `
		SELECT id, record, created_at
		FROM case_records
		WHERE cardinality($1::text[]) = 0 OR collection = ANY($1::text[])
		ORDER BY collection, source_filename`

	if collections == nil {
		collections = []string{}
	}
	rows, err := r.db.Query(ctx, query, collections)
	if err != nil {
		return nil, fmt.Errorf("failed to query case records: %w", err)
	}
	defer rows.Close()

	var records []models.CaseRecord
	for rows.Next() {
		rec, err := scanCaseRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case records: %w", err)
	}
	return records, nil
}

func scanCaseRecord(row pgx.Row) (*models.CaseRecord, error) {
	var (
		rec       models.CaseRecord
		body      []byte
		id        = rec.ID
		createdAt = rec.CreatedAt
	)
	if err := row.Scan(&id, &body, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode case record: %w", err)
	}
	// the columns are authoritative for id and timestamp
	rec.ID, rec.CreatedAt = id, createdAt
	return &rec, nil
}
