package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

// ProductStatus enumerates the possible states of an exam product.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusPublished ProductStatus = "PUBLISHED"
	ProductStatusArchived  ProductStatus = "ARCHIVED"
)

// ExamProduct is one sellable mock-test: a plan tier instance carrying
// its time limit, question count, marking scheme, violation limit, and
// pass threshold. All of these are data configurable per product.
type ExamProduct struct {
	ID                 uuid.UUID     `json:"id"`
	Level              string        `json:"level"`
	Title              string        `json:"title"`
	DurationMinutes    int           `json:"duration_minutes"`
	QuestionCount      int           `json:"question_count"`
	MarkCorrect        int           `json:"mark_correct"`
	MarkWrong          int           `json:"mark_wrong"`
	MaxViolations      int           `json:"max_violations"`
	PassPercent        float64       `json:"pass_percent"`
	IdleTimeoutSeconds int           `json:"idle_timeout_seconds"`
	Status             ProductStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TierSettings converts the product row into the engine's tier knobs.
func (p *ExamProduct) TierSettings() proctor.TierSettings {
	return proctor.TierSettings{
		Level:         p.Level,
		TimeLimit:     time.Duration(p.DurationMinutes) * time.Minute,
		MaxViolations: p.MaxViolations,
		Scheme:        proctor.MarkingScheme{Correct: p.MarkCorrect, Wrong: p.MarkWrong},
		PassPercent:   p.PassPercent,
		IdleThreshold: time.Duration(p.IdleTimeoutSeconds) * time.Second,
	}
}

// CreateProductRequest is the payload for creating a new exam product.
type CreateProductRequest struct {
	Level              string  `json:"level" binding:"required,min=2,max=40"`
	Title              string  `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes    int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	MarkCorrect        int     `json:"mark_correct" binding:"required,min=1,max=20"`
	MarkWrong          int     `json:"mark_wrong" binding:"min=0,max=20"`
	MaxViolations      int     `json:"max_violations" binding:"min=0,max=50"`
	PassPercent        float64 `json:"pass_percent" binding:"min=0,max=100"`
	IdleTimeoutSeconds int     `json:"idle_timeout_seconds" binding:"min=0,max=3600"`
}

// UpdateProductRequest is the payload for updating an existing product.
type UpdateProductRequest struct {
	Level              string   `json:"level" binding:"omitempty,min=2,max=40"`
	Title              string   `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes    *int     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	MarkCorrect        *int     `json:"mark_correct" binding:"omitempty,min=1,max=20"`
	MarkWrong          *int     `json:"mark_wrong" binding:"omitempty,min=0,max=20"`
	MaxViolations      *int     `json:"max_violations" binding:"omitempty,min=0,max=50"`
	PassPercent        *float64 `json:"pass_percent" binding:"omitempty,min=0,max=100"`
	IdleTimeoutSeconds *int     `json:"idle_timeout_seconds" binding:"omitempty,min=0,max=3600"`
}
