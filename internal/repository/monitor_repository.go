package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// MonitorRepository provides data access for the live proctoring dashboard.
// It combines PostgreSQL (attempt state, violation log) and Redis (live
// autosaved answer counts).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// GetInProgressCandidateIDs returns all candidate IDs with an active
// attempt at the given product.
func (r *MonitorRepository) GetInProgressCandidateIDs(ctx context.Context, productID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id FROM exam_attempts WHERE product_id = $1 AND status = 'IN_PROGRESS'`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAnsweredCounts returns, per candidate, how many answers are currently
// autosaved in Redis for the given product.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, productID uuid.UUID, candidateIDs []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(candidateIDs))

	pipe := r.rdb.Pipeline()
	cmds := make(map[int]*redis.IntCmd, len(candidateIDs))
	for _, cid := range candidateIDs {
		cmds[cid] = pipe.HLen(ctx, config.CacheKey.AttemptAnswersKey(productID.String(), cid))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for cid, cmd := range cmds {
		counts[cid] = cmd.Val()
	}
	return counts, nil
}

// GetViolationCounts returns the number of persisted violations recorded
// for each candidate attempting the given product.
func (r *MonitorRepository) GetViolationCounts(ctx context.Context, productID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id, COUNT(*)
		 FROM attempt_violations
		 WHERE product_id = $1
		 GROUP BY candidate_id`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var cid int
		var count int64
		if err := rows.Scan(&cid, &count); err != nil {
			return nil, err
		}
		counts[cid] = count
	}

	return counts, rows.Err()
}
