package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IngestionJobStatus represents the status of an ingestion job
type IngestionJobStatus string

const (
	JobStatusPending    IngestionJobStatus = "pending"
	JobStatusInProgress IngestionJobStatus = "in_progress"
	JobStatusCompleted  IngestionJobStatus = "completed"
	JobStatusFailed     IngestionJobStatus = "failed"
)

// Step status values
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepCompleted  = "completed"
	StepSkipped    = "skipped"
	StepFailed     = "failed"
)

// IngestionStep represents one document of a batch
type IngestionStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// IngestionSteps represents a list of ingestion steps
type IngestionSteps []IngestionStep

// Value implements driver.Valuer for JSONB
func (s IngestionSteps) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *IngestionSteps) Scan(value interface{}) error {
	if value == nil {
		*s = make(IngestionSteps, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = make(IngestionSteps, 0)
		return nil
	}

	if len(bytes) == 0 {
		*s = make(IngestionSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// IngestionJob tracks an asynchronous batch ingestion
type IngestionJob struct {
	ID           uuid.UUID          `json:"id"`
	Collection   string             `json:"collection"`
	Status       IngestionJobStatus `json:"status"`
	CurrentStep  *string            `json:"current_step,omitempty"`
	Steps        IngestionSteps     `json:"steps"`
	Report       *IngestionReport   `json:"report,omitempty"`
	ErrorMessage *string            `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}
