package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes the results queue and finalizes graded attempts
// in PostgreSQL with a single bulk UPDATE per batch.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.ResultJob, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.ResultJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &job)
		}
	}
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ResultJob) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkFinalize(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result update failed, using fallback")

		for _, job := range batch {
			if err := w.persistSingle(ctx, job); err != nil {
				w.log.Error().Err(err).Str("attempt_id", job.AttemptID.String()).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(job)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// Finalized attempts no longer need their live buffers.
	w.bulkClearAttemptBuffers(ctx, batch)
}

// bulkFinalize updates a whole batch of attempts with a single UNNEST query.
func (w *ResultWorker) bulkFinalize(ctx context.Context, batch []*model.ResultJob) error {
	n := len(batch)

	attemptIDs := make([]uuid.UUID, 0, n)
	reasons := make([]string, 0, n)
	rawScores := make([]int, 0, n)
	percentages := make([]float64, 0, n)
	passes := make([]bool, 0, n)
	violationCounts := make([]int, 0, n)
	perSections := make([]string, 0, n)
	gradedAts := make([]time.Time, 0, n)

	for _, job := range batch {
		sections, err := json.Marshal(job.PerSection)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, job.AttemptID)
		reasons = append(reasons, job.Reason)
		rawScores = append(rawScores, job.RawScore)
		percentages = append(percentages, job.Percentage)
		passes = append(passes, job.Passed)
		violationCounts = append(violationCounts, job.ViolationCount)
		perSections = append(perSections, string(sections))
		gradedAts = append(gradedAts, job.GradedAt)
	}

	query := `
		UPDATE exam_attempts AS a
		SET status = 'COMPLETED',
		    submit_reason = t.reason,
		    raw_score = t.raw_score,
		    percentage = t.percentage,
		    passed = t.passed,
		    violation_count = t.violation_count,
		    per_section = t.per_section::jsonb,
		    finished_at = t.graded_at
		FROM (
			SELECT
				u.attempt_id,
				u.reason,
				u.raw_score,
				u.percentage,
				u.passed,
				u.violation_count,
				u.per_section,
				u.graded_at
			FROM UNNEST(
				$1::uuid[],
				$2::text[],
				$3::int[],
				$4::float8[],
				$5::bool[],
				$6::int[],
				$7::text[],
				$8::timestamptz[]
			) AS u (attempt_id, reason, raw_score, percentage, passed, violation_count, per_section, graded_at)
		) AS t
		WHERE a.id = t.attempt_id
	`

	_, err := w.pool.Exec(ctx, query,
		attemptIDs, reasons, rawScores, percentages, passes, violationCounts, perSections, gradedAts)
	return err
}

// bulkClearAttemptBuffers deletes the autosave hash and resume violation
// log of every finalized attempt.
func (w *ResultWorker) bulkClearAttemptBuffers(ctx context.Context, batch []*model.ResultJob) {
	pipe := w.rdb.Pipeline()

	for _, job := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(job.ProductID.String(), job.CandidateID))
		pipe.Del(ctx, config.CacheKey.AttemptViolationsKey(job.ProductID.String(), job.CandidateID))
	}

	_, _ = pipe.Exec(ctx)
}

func (w *ResultWorker) persistSingle(ctx context.Context, job *model.ResultJob) error {
	sections, err := json.Marshal(job.PerSection)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = 'COMPLETED',
		     submit_reason = $1,
		     raw_score = $2,
		     percentage = $3,
		     passed = $4,
		     violation_count = $5,
		     per_section = $6::jsonb,
		     finished_at = $7
		 WHERE id = $8`,
		job.Reason, job.RawScore, job.Percentage, job.Passed,
		job.ViolationCount, sections, job.GradedAt, job.AttemptID,
	)
	return err
}
