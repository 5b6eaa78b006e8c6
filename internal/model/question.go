package model

import (
	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

// ProductQuestion represents a single question of an exam product.
// Every question carries exactly four options.
type ProductQuestion struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	Section       string    `json:"section"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	OrderNum      int       `json:"order_num"`
}

// EngineQuestion converts the row into the engine's question shape.
func (q *ProductQuestion) EngineQuestion() proctor.Question {
	return proctor.Question{
		ID:            q.ID.String(),
		Section:       q.Section,
		Options:       q.Options,
		CorrectOption: q.CorrectOption,
	}
}

// QuestionForCandidate is a question without the correct answer, as sent
// to the exam UI.
type QuestionForCandidate struct {
	ID       uuid.UUID `json:"id"`
	Section  string    `json:"section"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	OrderNum int       `json:"order_num"`
}

// ProductPaper is the Redis-cached payload served to candidates.
type ProductPaper struct {
	ProductID       uuid.UUID              `json:"product_id"`
	Title           string                 `json:"title"`
	DurationMinutes int                    `json:"duration_minutes"`
	Questions       []QuestionForCandidate `json:"questions"`
}

// AddQuestionRequest is the payload for adding a question to a product.
type AddQuestionRequest struct {
	Section       string   `json:"section" binding:"required,min=1,max=100"`
	Prompt        string   `json:"prompt" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0,max=3"`
	OrderNum      int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
