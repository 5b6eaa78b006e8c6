package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker consumes the violation queue and bulk-inserts the
// entries into attempt_violations.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]*model.ViolationJob, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for 1 second. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var job model.ViolationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &job)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*model.ViolationJob) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*model.ViolationJob) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, job := range batch {
		rows = append(rows, []interface{}{
			job.ProductID, job.CandidateID, job.Kind, job.Severity, job.At,
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_violations"},
		[]string{"product_id", "candidate_id", "kind", "severity", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*model.ViolationJob) {
	requeueList := make([]*model.ViolationJob, 0)

	for _, job := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO attempt_violations (product_id, candidate_id, kind, severity, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			job.ProductID, job.CandidateID, job.Kind, job.Severity, job.At,
		)
		if err != nil {
			w.log.Error().Err(err).Int("candidate_id", job.CandidateID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, job)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*model.ViolationJob) {
	pipe := w.rdb.Pipeline()
	for _, job := range items {
		data, _ := json.Marshal(job)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}

	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*model.ViolationJob) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
