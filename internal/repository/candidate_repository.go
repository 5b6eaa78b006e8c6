package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("candidate with this email already exists")

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, age, address, created_at, updated_at
		 FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.Age, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByEmail retrieves a candidate by their unique email.
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, age, address, created_at, updated_at
		 FROM candidates WHERE email = $1`, email,
	).Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.Age, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListPaginated retrieves candidates with pagination.
func (r *CandidateRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Candidate, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, password_hash, age, address, created_at, updated_at
		 FROM candidates
		 ORDER BY name LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash, &c.Age, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, c)
	}
	return candidates, total, rows.Err()
}

// Create inserts a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (email, name, password_hash, age, address)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		c.Email, c.Name, c.PasswordHash, c.Age, c.Address,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

// Update modifies an existing candidate. An empty passwordHash keeps the
// current password.
func (r *CandidateRepository) Update(ctx context.Context, c *model.Candidate) error {
	var err error
	if c.PasswordHash != "" {
		_, err = r.pool.Exec(ctx,
			`UPDATE candidates
			 SET email = $1, name = $2, password_hash = $3, age = $4, address = $5, updated_at = NOW()
			 WHERE id = $6`,
			c.Email, c.Name, c.PasswordHash, c.Age, c.Address, c.ID)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE candidates
			 SET email = $1, name = $2, age = $3, address = $4, updated_at = NOW()
			 WHERE id = $5`,
			c.Email, c.Name, c.Age, c.Address, c.ID)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

// Delete removes a candidate by ID.
func (r *CandidateRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	return err
}
