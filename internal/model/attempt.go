package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states as persisted.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusAborted    AttemptStatus = "ABORTED"
)

// ExamAttempt represents a candidate's attempt at an exam product. The
// in-memory session lives in the exam engine while running; this row is
// the durable record, finalized once after grading.
type ExamAttempt struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	CandidateID    int             `json:"candidate_id"`
	Level          string          `json:"level"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	Status         AttemptStatus   `json:"status"`
	SubmitReason   *string         `json:"submit_reason,omitempty"`
	RawScore       *int            `json:"raw_score,omitempty"`
	Percentage     *float64        `json:"percentage,omitempty"`
	Passed         *bool           `json:"passed,omitempty"`
	ViolationCount int             `json:"violation_count"`
	PerSection     json.RawMessage `json:"per_section,omitempty"`
}

// StartAttemptRequest carries the pre-exam identity details. Structural
// well-formedness is enforced here and again by the engine before the
// session may start.
type StartAttemptRequest struct {
	Name    string `json:"name" binding:"required,min=3,max=100"`
	Age     int    `json:"age" binding:"required,gte=10,lte=100"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Address string `json:"address" binding:"required,max=500"`
}

// AttemptState is the resume payload for an in-flight attempt.
type AttemptState struct {
	ProductID        uuid.UUID         `json:"product_id"`
	CandidateID      int               `json:"candidate_id"`
	Phase            string            `json:"phase"`
	RemainingSeconds float64           `json:"remaining_seconds"`
	ViolationCount   int               `json:"violation_count"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
}
