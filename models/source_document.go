package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceDocument is an archived raw upload
type SourceDocument struct {
	ID          uuid.UUID `json:"id"`
	ContentHash string    `json:"content_hash"`
	Collection  string    `json:"collection"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
