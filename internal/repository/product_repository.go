package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/model"
)

const productColumns = `id, level, title, duration_minutes, question_count, mark_correct, mark_wrong,
	 max_violations, pass_percent, idle_timeout_seconds, status, created_at, updated_at`

// ProductRepository handles exam product data access.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row interface{ Scan(dest ...any) error }) (*model.ExamProduct, error) {
	p := &model.ExamProduct{}
	err := row.Scan(&p.ID, &p.Level, &p.Title, &p.DurationMinutes, &p.QuestionCount,
		&p.MarkCorrect, &p.MarkWrong, &p.MaxViolations, &p.PassPercent,
		&p.IdleTimeoutSeconds, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamProduct, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM exam_products WHERE id = $1`, id))
}

// ListAll retrieves every product regardless of status, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) ([]model.ExamProduct, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM exam_products ORDER BY created_at DESC`)
}

// ListPublished retrieves the storefront catalog: published products only.
func (r *ProductRepository) ListPublished(ctx context.Context) ([]model.ExamProduct, error) {
	return r.list(ctx,
		`SELECT `+productColumns+` FROM exam_products WHERE status = $1 ORDER BY level`,
		model.ProductStatusPublished)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]model.ExamProduct, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.ExamProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Create inserts a new product in DRAFT status.
func (r *ProductRepository) Create(ctx context.Context, p *model.ExamProduct) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_products
		 (level, title, duration_minutes, mark_correct, mark_wrong, max_violations, pass_percent, idle_timeout_seconds, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, question_count, created_at, updated_at`,
		p.Level, p.Title, p.DurationMinutes, p.MarkCorrect, p.MarkWrong,
		p.MaxViolations, p.PassPercent, p.IdleTimeoutSeconds, model.ProductStatusDraft,
	).Scan(&p.ID, &p.QuestionCount, &p.CreatedAt, &p.UpdatedAt)
}

// Update modifies an existing product's settings.
func (r *ProductRepository) Update(ctx context.Context, p *model.ExamProduct) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_products
		 SET level = $1, title = $2, duration_minutes = $3, mark_correct = $4, mark_wrong = $5,
		     max_violations = $6, pass_percent = $7, idle_timeout_seconds = $8, updated_at = NOW()
		 WHERE id = $9`,
		p.Level, p.Title, p.DurationMinutes, p.MarkCorrect, p.MarkWrong,
		p.MaxViolations, p.PassPercent, p.IdleTimeoutSeconds, p.ID)
	return err
}

// UpdateStatus transitions a product between DRAFT, PUBLISHED and ARCHIVED.
func (r *ProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProductStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_products SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// SyncQuestionCount recomputes the denormalized question count.
func (r *ProductRepository) SyncQuestionCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_products
		 SET question_count = (SELECT COUNT(*) FROM product_questions WHERE product_id = $1),
		     updated_at = NOW()
		 WHERE id = $1`, id)
	return err
}

// Delete removes a product by ID.
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exam_products WHERE id = $1`, id)
	return err
}
