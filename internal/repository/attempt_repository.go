package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/model"
)

// AttemptResult combines candidate data with their attempt details, for
// the back-office results listing.
type AttemptResult struct {
	CandidateID    int                 `json:"candidate_id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Status         model.AttemptStatus `json:"status"`
	SubmitReason   *string             `json:"submit_reason"`
	RawScore       *int                `json:"raw_score"`
	Percentage     *float64            `json:"percentage"`
	Passed         *bool               `json:"passed"`
	ViolationCount int                 `json:"violation_count"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at"`
}

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, product_id, candidate_id, level, started_at, finished_at, status,
	 submit_reason, raw_score, percentage, passed, violation_count, per_section`

func scanAttempt(row interface{ Scan(dest ...any) error }) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := row.Scan(&a.ID, &a.ProductID, &a.CandidateID, &a.Level, &a.StartedAt, &a.FinishedAt,
		&a.Status, &a.SubmitReason, &a.RawScore, &a.Percentage, &a.Passed, &a.ViolationCount, &a.PerSection)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByProductAndCandidate retrieves an attempt for a product-candidate pair.
func (r *AttemptRepository) GetByProductAndCandidate(ctx context.Context, productID uuid.UUID, candidateID int) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE product_id = $1 AND candidate_id = $2`, productID, candidateID))
}

// Create inserts a new attempt (candidate enters the exam). A second call
// for the same product-candidate pair leaves the original row untouched
// and returns its id and start time.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (product_id, candidate_id, level, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, candidate_id) DO UPDATE SET level = exam_attempts.level
		 RETURNING id, started_at, status`,
		a.ProductID, a.CandidateID, a.Level, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt, &a.Status)
}

// MarkAborted flags an attempt as abandoned without a grade.
func (r *AttemptRepository) MarkAborted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET status = $1, finished_at = NOW() WHERE id = $2`,
		model.AttemptStatusAborted, id)
	return err
}

// ListByCandidate retrieves all attempts of a candidate, newest first.
func (r *AttemptRepository) ListByCandidate(ctx context.Context, candidateID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE candidate_id = $1
		 ORDER BY started_at DESC`, candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByProduct retrieves candidate results for a product, with pagination.
func (r *AttemptRepository) ListByProduct(ctx context.Context, productID uuid.UUID, page, perPage int) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE product_id = $1`, productID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ea.candidate_id, c.name, c.email, ea.status, ea.submit_reason, ea.raw_score,
		        ea.percentage, ea.passed, ea.violation_count, ea.started_at, ea.finished_at
		 FROM exam_attempts ea
		 JOIN candidates c ON ea.candidate_id = c.id
		 WHERE ea.product_id = $1
		 ORDER BY ea.percentage DESC NULLS LAST, c.name
		 LIMIT $2 OFFSET $3`, productID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(&res.CandidateID, &res.Name, &res.Email, &res.Status, &res.SubmitReason,
			&res.RawScore, &res.Percentage, &res.Passed, &res.ViolationCount, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// ListViolations retrieves the persisted violation log of one attempt.
func (r *AttemptRepository) ListViolations(ctx context.Context, productID uuid.UUID, candidateID int) ([]model.AttemptViolation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, candidate_id, kind, severity, recorded_at
		 FROM attempt_violations
		 WHERE product_id = $1 AND candidate_id = $2
		 ORDER BY recorded_at`, productID, candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.AttemptViolation
	for rows.Next() {
		var v model.AttemptViolation
		if err := rows.Scan(&v.ID, &v.ProductID, &v.CandidateID, &v.Kind, &v.Severity, &v.RecordedAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
