package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/model"
)

// EntitlementRepository handles purchased exam access records.
type EntitlementRepository struct {
	pool *pgxpool.Pool
}

// NewEntitlementRepository creates a new EntitlementRepository.
func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

// Grant records that a candidate may attempt a product. Granting twice is
// a no-op.
func (r *EntitlementRepository) Grant(ctx context.Context, candidateID int, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO entitlements (candidate_id, product_id)
		 VALUES ($1, $2)
		 ON CONFLICT (candidate_id, product_id) DO NOTHING`,
		candidateID, productID)
	return err
}

// Has reports whether a candidate owns access to a product.
func (r *EntitlementRepository) Has(ctx context.Context, candidateID int, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM entitlements WHERE candidate_id = $1 AND product_id = $2)`,
		candidateID, productID,
	).Scan(&exists)
	return exists, err
}

// Revoke removes a candidate's access to a product.
func (r *EntitlementRepository) Revoke(ctx context.Context, candidateID int, productID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM entitlements WHERE candidate_id = $1 AND product_id = $2`,
		candidateID, productID)
	return err
}

// ListProductIDs returns the products a candidate owns access to.
func (r *EntitlementRepository) ListProductIDs(ctx context.Context, candidateID int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id FROM entitlements WHERE candidate_id = $1 ORDER BY granted_at`,
		candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEntitlements returns the full entitlement rows for a candidate.
func (r *EntitlementRepository) ListEntitlements(ctx context.Context, candidateID int) ([]model.Entitlement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, candidate_id, product_id, granted_at
		 FROM entitlements WHERE candidate_id = $1 ORDER BY granted_at`,
		candidateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ents []model.Entitlement
	for rows.Next() {
		var e model.Entitlement
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.ProductID, &e.GrantedAt); err != nil {
			return nil, err
		}
		ents = append(ents, e)
	}
	return ents, rows.Err()
}
