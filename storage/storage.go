package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"legalrag-backend/config"
)

var ErrFileNotFound = errors.New("archived file not found")

// Storage archives raw source documents
type Storage interface {
	// Upload stores a document under its collection and returns the storage path
	Upload(ctx context.Context, docID uuid.UUID, collection, filename string, data io.Reader) (string, error)

	// Download retrieves a document by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a document by storage path
	Delete(ctx context.Context, storagePath string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// NewStorage creates the archive backend named by cfg.Type
func NewStorage(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("an S3 bucket is required for s3 storage")
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

var pathReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_")

// generateStoragePath builds "<collection>/<id[:2]>/<id>_<name><ext>"
func generateStoragePath(docID uuid.UUID, collection, filename string) string {
	ext := filepath.Ext(filename)
	baseName := pathReplacer.Replace(strings.TrimSuffix(filepath.Base(filename), ext))
	if collection == "" {
		collection = "default"
	}
	id := docID.String()
	return fmt.Sprintf("%s/%s/%s_%s%s", pathReplacer.Replace(collection), id[:2], id, baseName, ext)
}

// ContentTypeFor determines the content type from the filename extension
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
