package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/vectorstore"

	"github.com/google/uuid"
)

var (
	ErrArchiveNotConfigured = errors.New("source document archive is not configured")
	ErrDocumentNotFound     = errors.New("source document not found")
)

// ListSourceDocuments returns the archived uploads of a collection, newest first
func (s *IngestService) ListSourceDocuments(ctx context.Context, collection string) ([]*models.SourceDocument, error) {
	if s.documents == nil {
		return nil, ErrArchiveNotConfigured
	}
	if err := vectorstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list source documents: %w", err)
	}
	if docs == nil {
		docs = []*models.SourceDocument{}
	}
	return docs, nil
}

// GetSourceDocument returns the archive record of one upload
func (s *IngestService) GetSourceDocument(ctx context.Context, id uuid.UUID) (*models.SourceDocument, error) {
	if s.documents == nil {
		return nil, ErrArchiveNotConfigured
	}
	doc, err := s.documents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source document: %w", err)
	}
	return doc, nil
}

// OpenSourceDocument returns the archive record and its content. The caller closes the reader.
func (s *IngestService) OpenSourceDocument(ctx context.Context, id uuid.UUID) (*models.SourceDocument, io.ReadCloser, error) {
	doc, err := s.GetSourceDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.archive == nil {
		return nil, nil, ErrArchiveNotConfigured
	}
	r, err := s.archive.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download %s: %w", doc.Filename, err)
	}
	return doc, r, nil
}
