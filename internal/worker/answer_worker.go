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

// AnswerWorker consumes the answers queue and UPSERTs autosaved answers
// into PostgreSQL, so an attempt survives a Redis flush.
type AnswerWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "answer_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnswerWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var job model.AnswerJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistAnswer(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Int("candidate_id", job.CandidateID).
			Str("product_id", job.ProductID.String()).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AnswerWorker) persistAnswer(ctx context.Context, job *model.AnswerJob) error {
	questionID, err := uuid.Parse(job.QuestionID)
	if err != nil {
		return err
	}

	// UPSERT: later saves of the same question overwrite earlier ones.
	_, err = w.pool.Exec(ctx,
		`INSERT INTO attempt_answers (product_id, candidate_id, question_id, selected_option, saved_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (product_id, candidate_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option, saved_at = EXCLUDED.saved_at`,
		job.ProductID, job.CandidateID, questionID, job.Option, job.SavedAt,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var job model.AnswerJob
		if err := json.Unmarshal([]byte(result), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistAnswer(ctx, &job); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
