package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptViolation is one persisted entry of an attempt's violation log.
type AttemptViolation struct {
	ID          int64     `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	CandidateID int       `json:"candidate_id"`
	Kind        string    `json:"kind"`
	Severity    string    `json:"severity"`
	RecordedAt  time.Time `json:"recorded_at"`
}
