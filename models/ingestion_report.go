package models

import (
	"database/sql/driver"
	"encoding/json"
)

// IngestionReport summarizes one ingest run
type IngestionReport struct {
	Collection    string            `json:"collection"`
	Processed     int               `json:"processed"`
	Skipped       int               `json:"skipped"`
	Failed        int               `json:"failed"`
	TotalChunks   int               `json:"total_chunks"`
	DocumentTypes map[string]int    `json:"document_types"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// NewIngestionReport creates an empty report for a collection
func NewIngestionReport(collection string) *IngestionReport {
	return &IngestionReport{
		Collection:    collection,
		DocumentTypes: make(map[string]int),
		Errors:        make(map[string]string),
	}
}

// RecordFailure notes a document that could not be ingested
func (r *IngestionReport) RecordFailure(source string, err error) {
	r.Failed++
	r.Errors[source] = err.Error()
}

// Value implements driver.Valuer for JSONB
func (r IngestionReport) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *IngestionReport) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, r)
}
