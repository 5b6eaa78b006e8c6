package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

// Persistence jobs flow from the live exam engine through Redis queues to
// the background workers. The engine never blocks on PostgreSQL.

// ViolationJob is one violation log entry awaiting persistence.
type ViolationJob struct {
	ProductID   uuid.UUID `json:"product_id"`
	CandidateID int       `json:"candidate_id"`
	Kind        string    `json:"kind"`
	Severity    string    `json:"severity"`
	At          time.Time `json:"at"`
}

// AnswerJob is one autosaved answer awaiting persistence.
type AnswerJob struct {
	ProductID   uuid.UUID `json:"product_id"`
	CandidateID int       `json:"candidate_id"`
	QuestionID  string    `json:"q_id"`
	Option      int       `json:"option"`
	SavedAt     time.Time `json:"saved_at"`
}

// ResultJob is one graded attempt awaiting persistence.
type ResultJob struct {
	AttemptID      uuid.UUID              `json:"attempt_id"`
	ProductID      uuid.UUID              `json:"product_id"`
	CandidateID    int                    `json:"candidate_id"`
	Reason         string                 `json:"reason"`
	RawScore       int                    `json:"raw_score"`
	MaxScore       int                    `json:"max_score"`
	Percentage     float64                `json:"percentage"`
	Passed         bool                   `json:"passed"`
	ViolationCount int                    `json:"violation_count"`
	PerSection     []proctor.SectionScore `json:"per_section"`
	GradedAt       time.Time              `json:"graded_at"`
}

// MonitorEvent is published over Redis PubSub to every live dashboard
// watching a product.
type MonitorEvent struct {
	Type        string    `json:"type"` // violation, graded, aborted
	ProductID   uuid.UUID `json:"product_id"`
	CandidateID int       `json:"candidate_id"`
	Kind        string    `json:"kind,omitempty"`
	Count       int       `json:"count,omitempty"`
	Percentage  *float64  `json:"percentage,omitempty"`
	At          time.Time `json:"at"`
}
