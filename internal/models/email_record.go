package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailRecord is an OutputRow persisted by the sqlite sink
type EmailRecord struct {
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	OutputRow
	CreatedAt time.Time `json:"created_at"`
}

// NewEmailRecord creates a new EmailRecord with a generated UUID
func NewEmailRecord(runID string, row OutputRow) *EmailRecord {
	return &EmailRecord{
		ID:        uuid.New().String(),
		RunID:     runID,
		OutputRow: row,
		CreatedAt: time.Now(),
	}
}
