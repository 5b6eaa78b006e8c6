package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/model"
)

// QuestionRepository handles product question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByProduct retrieves all questions for a product, ordered by order_num.
func (r *QuestionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.ProductQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, section, prompt, options, correct_option, order_num
		 FROM product_questions WHERE product_id = $1
		 ORDER BY order_num`, productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.ProductQuestion
	for rows.Next() {
		var q model.ProductQuestion
		if err := rows.Scan(&q.ID, &q.ProductID, &q.Section, &q.Prompt, &q.Options, &q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.ProductQuestion) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO product_questions (product_id, section, prompt, options, correct_option, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.ProductID, q.Section, q.Prompt, q.Options, q.CorrectOption, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceForProduct atomically swaps the full question set of a product.
// The new rows are bulk-loaded with COPY inside a single transaction.
func (r *QuestionRepository) ReplaceForProduct(ctx context.Context, productID uuid.UUID, questions []model.ProductQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM product_questions WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	if len(questions) > 0 {
		rows := make([][]any, len(questions))
		for i, q := range questions {
			rows[i] = []any{productID, q.Section, q.Prompt, q.Options, q.CorrectOption, i + 1}
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"product_questions"},
			[]string{"product_id", "section", "prompt", "options", "correct_option", "order_num"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy questions: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE exam_products SET question_count = $1, updated_at = NOW() WHERE id = $2`,
		len(questions), productID); err != nil {
		return fmt.Errorf("sync question count: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM product_questions WHERE id = $1`, id)
	return err
}

// CountByProduct returns how many questions a product currently has.
func (r *QuestionRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM product_questions WHERE product_id = $1`, productID,
	).Scan(&count)
	return count, err
}
