package repository

import (
	"context"
	"errors"

	"legalrag-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceDocumentRepository handles database operations for archived uploads
type SourceDocumentRepository struct {
	db *pgxpool.Pool
}

// NewSourceDocumentRepository creates a new source document repository
func NewSourceDocumentRepository(db *pgxpool.Pool) *SourceDocumentRepository {
	return &SourceDocumentRepository{db: db}
}

// Create creates a new source document record
func (r *SourceDocumentRepository) Create(ctx context.Context, doc *models.SourceDocument) error {
	query := `
		INSERT INTO source_documents (
			id, content_hash, collection, filename, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	err := r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.ContentHash,
		doc.Collection,
		doc.Filename,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
	).Scan(&doc.CreatedAt)

	return err
}

// GetByID retrieves a source document by ID
func (r *SourceDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	doc := &models.SourceDocument{}
	query := `
		SELECT id, content_hash, collection, filename, mime_type, size, storage_path, created_at
		FROM source_documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.ContentHash,
		&doc.Collection,
		&doc.Filename,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ListByCollection retrieves all source documents of a collection
func (r *SourceDocumentRepository) ListByCollection(ctx context.Context, collection string) ([]*models.SourceDocument, error) {
	query := `
		SELECT id, content_hash, collection, filename, mime_type, size, storage_path, created_at
		FROM source_documents
		WHERE collection = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.SourceDocument
	for rows.Next() {
		doc := &models.SourceDocument{}
		err := rows.Scan(
			&doc.ID,
			&doc.ContentHash,
			&doc.Collection,
			&doc.Filename,
			&doc.MimeType,
			&doc.Size,
			&doc.StoragePath,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Delete deletes a source document record
func (r *SourceDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM source_documents WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
