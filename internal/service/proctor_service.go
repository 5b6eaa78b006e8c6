package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Proctoring errors.
var (
	ErrNotEntitled     = errors.New("candidate has not purchased this product")
	ErrAttemptFinished = errors.New("attempt has already finished")
	ErrNoLiveSession   = errors.New("no live session for this attempt")
)

// ProctorEventKind tags a push notification for the exam UI.
type ProctorEventKind string

const (
	EventPhase     ProctorEventKind = "phase"
	EventRemaining ProctorEventKind = "remaining"
	EventWarning   ProctorEventKind = "warning"
	EventGraded    ProctorEventKind = "graded"
	EventBlackout  ProctorEventKind = "blackout"
)

// ProctorEvent is one push notification emitted by a live session. The
// WebSocket handler drains the session's event channel and translates
// these into wire frames.
type ProctorEvent struct {
	Kind             ProctorEventKind
	Phase            proctor.Phase
	Reason           proctor.SubmitReason
	RemainingSeconds float64
	Warning          *proctor.Warning
	Summary          *proctor.Summary
}

// LiveSession is one in-memory proctored attempt: the engine controller,
// the signal bridge its monitor listens on, and the event channel the
// exam UI consumes.
type LiveSession struct {
	AttemptID   uuid.UUID
	ProductID   uuid.UUID
	CandidateID int
	Controller  *proctor.Controller
	Bridge      *SignalBridge
	Events      chan ProctorEvent
}

// ProctorService owns the registry of live exam sessions. Everything that
// happens between "start" and "graded" flows through here; PostgreSQL
// only sees the final outcome, delivered via Redis queues.
type ProctorService struct {
	catalog      *CatalogService
	entitlements *EntitlementService
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	clock        proctor.Clock
	log          zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*LiveSession
}

// NewProctorService creates a new ProctorService.
func NewProctorService(
	catalog *CatalogService,
	entitlements *EntitlementService,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	clock proctor.Clock,
	log zerolog.Logger,
) *ProctorService {
	return &ProctorService{
		catalog:      catalog,
		entitlements: entitlements,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		clock:        clock,
		log:          log.With().Str("component", "proctor_service").Logger(),
		sessions:     make(map[string]*LiveSession),
	}
}

func sessionKey(productID uuid.UUID, candidateID int) string {
	return productID.String() + ":" + strconv.Itoa(candidateID)
}

// SessionCount returns how many sessions are live in this process.
func (s *ProctorService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Session returns the live session for an attempt, if one exists.
func (s *ProctorService) Session(productID uuid.UUID, candidateID int) (*LiveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(productID, candidateID)]
	return sess, ok
}

// StartAttempt begins (or resumes) a proctored attempt. The candidate must
// own the product, the product must be published, and the attempt must not
// already be graded or aborted. Calling it again while a session is live
// returns the existing session, so a page refresh rejoins instead of
// restarting.
func (s *ProctorService) StartAttempt(ctx context.Context, productID uuid.UUID, candidateID int, req *model.StartAttemptRequest) (*LiveSession, error) {
	key := sessionKey(productID, candidateID)

	s.mu.Lock()
	if sess, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	entitled, err := s.entitlements.Has(ctx, candidateID, productID)
	if err != nil {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}
	if !entitled {
		return nil, ErrNotEntitled
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.Status != model.ProductStatusPublished {
		return nil, ErrProductNotPublished
	}

	questions, err := s.catalog.GetEngineQuestions(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	attempt, err := s.attemptRepo.GetByProductAndCandidate(ctx, productID, candidateID)
	resuming := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if resuming && attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrAttemptFinished
	}

	sess := &LiveSession{
		ProductID:   productID,
		CandidateID: candidateID,
		Bridge:      NewSignalBridge(),
		Events:      make(chan ProctorEvent, 256),
	}
	sess.Controller = proctor.NewController(
		product.TierSettings(), questions, s.clock, s.buildHooks(sess), s.log)

	if resuming {
		sess.AttemptID = attempt.ID
		answers := s.loadAutosavedAnswers(ctx, productID, candidateID)
		violations := s.loadViolationLog(ctx, productID, candidateID)
		if err := sess.Controller.Resume(candidateID, attempt.StartedAt, answers, violations, sess.Bridge); err != nil {
			return nil, fmt.Errorf("resume attempt: %w", err)
		}
	} else {
		details := proctor.CandidateDetails{
			Name:    req.Name,
			Age:     req.Age,
			Email:   req.Email,
			Address: req.Address,
		}

		attempt = &model.ExamAttempt{
			ProductID:   productID,
			CandidateID: candidateID,
			Level:       product.Level,
		}
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		if attempt.Status != model.AttemptStatusInProgress {
			return nil, ErrAttemptFinished
		}
		sess.AttemptID = attempt.ID

		if err := sess.Controller.Begin(candidateID, details, sess.Bridge); err != nil {
			return nil, err
		}

		startKey := config.CacheKey.AttemptStartKey(productID.String(), candidateID)
		if err := s.rdb.Set(ctx, startKey, attempt.StartedAt.Unix(), 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache attempt start time")
		}
	}

	s.mu.Lock()
	// A concurrent start may have raced us; first one in wins.
	if existing, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		sess.Controller.Abort()
		return existing, nil
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	s.log.Info().
		Str("product_id", productID.String()).
		Int("candidate_id", candidateID).
		Bool("resumed", resuming).
		Msg("Attempt session started")
	return sess, nil
}

// buildHooks wires the engine's callbacks into the event channel, the
// persistence queues, and the live monitor PubSub channel.
func (s *ProctorService) buildHooks(sess *LiveSession) proctor.Hooks {
	return proctor.Hooks{
		OnPhase: func(phase proctor.Phase, reason proctor.SubmitReason) {
			s.push(sess, ProctorEvent{Kind: EventPhase, Phase: phase, Reason: reason})
		},
		OnRemaining: func(remaining time.Duration) {
			s.push(sess, ProctorEvent{Kind: EventRemaining, RemainingSeconds: remaining.Seconds()})
		},
		OnWarning: func(w proctor.Warning) {
			s.push(sess, ProctorEvent{Kind: EventWarning, Warning: &w})
			s.persistViolation(sess, w)
		},
		OnGraded: func(summary *proctor.Summary) {
			s.push(sess, ProctorEvent{Kind: EventGraded, Summary: summary})
			s.finalize(sess, summary)
		},
		OnBlackout: func() {
			s.push(sess, ProctorEvent{Kind: EventBlackout})
		},
	}
}

// push delivers an event without ever blocking the engine. A full channel
// means the UI consumer is gone or hopelessly behind; dropping is safe
// because the state endpoint rebuilds the full picture on reconnect.
func (s *ProctorService) push(sess *LiveSession, ev ProctorEvent) {
	select {
	case sess.Events <- ev:
	default:
		s.log.Warn().
			Str("kind", string(ev.Kind)).
			Int("candidate_id", sess.CandidateID).
			Msg("Event channel full, dropping event")
	}
}

func (s *ProctorService) persistViolation(sess *LiveSession, w proctor.Warning) {
	s.persistViolationRecord(sess, proctor.ViolationRecord{
		At:       s.clock.Now(),
		Kind:     w.Kind,
		Severity: w.Level,
	}, w.Count)
}

// persistViolationRecord fans one violation out to the persistence queue,
// the Redis resume log, and the live monitor channel.
func (s *ProctorService) persistViolationRecord(sess *LiveSession, rec proctor.ViolationRecord, count int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := json.Marshal(model.ViolationJob{
		ProductID:   sess.ProductID,
		CandidateID: sess.CandidateID,
		Kind:        string(rec.Kind),
		Severity:    string(rec.Severity),
		At:          rec.At,
	})
	if err != nil {
		return
	}

	record, err := json.Marshal(rec)
	if err != nil {
		return
	}

	monitorMsg, _ := json.Marshal(model.MonitorEvent{
		Type:        "violation",
		ProductID:   sess.ProductID,
		CandidateID: sess.CandidateID,
		Kind:        string(rec.Kind),
		Count:       count,
		At:          rec.At,
	})

	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, config.WorkerKey.PersistViolationsQueue, job)
	pipe.RPush(ctx, config.CacheKey.AttemptViolationsKey(sess.ProductID.String(), sess.CandidateID), record)
	pipe.Publish(ctx, config.CacheKey.ProductMonitorChannel(sess.ProductID.String()), monitorMsg)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to enqueue violation")
	}
}

// finalize runs once per attempt, when the engine grades it.
func (s *ProctorService) finalize(sess *LiveSession, summary *proctor.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The violation that trips the cap force-submits instead of warning,
	// so it never went through persistViolation. Flush it here so the
	// durable log carries every counted violation.
	if summary.Reason == proctor.ReasonViolations && len(summary.Violations) > 0 {
		last := summary.Violations[len(summary.Violations)-1]
		s.persistViolationRecord(sess, last, summary.ViolationCount)
	}

	job, err := json.Marshal(model.ResultJob{
		AttemptID:      sess.AttemptID,
		ProductID:      sess.ProductID,
		CandidateID:    sess.CandidateID,
		Reason:         string(summary.Reason),
		RawScore:       summary.Result.RawScore,
		MaxScore:       summary.Result.MaxScore,
		Percentage:     summary.Result.Percentage,
		Passed:         summary.Result.Passed,
		ViolationCount: summary.ViolationCount,
		PerSection:     summary.Result.PerSection,
		GradedAt:       summary.GradedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal result job")
		return
	}

	monitorMsg, _ := json.Marshal(model.MonitorEvent{
		Type:        "graded",
		ProductID:   sess.ProductID,
		CandidateID: sess.CandidateID,
		Percentage:  &summary.Result.Percentage,
		At:          summary.GradedAt,
	})

	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, config.WorkerKey.PersistResultsQueue, job)
	pipe.Publish(ctx, config.CacheKey.ProductMonitorChannel(sess.ProductID.String()), monitorMsg)
	pipe.Del(ctx, config.CacheKey.AttemptStartKey(sess.ProductID.String(), sess.CandidateID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to enqueue result")
	}

	s.remove(sess)

	s.log.Info().
		Str("attempt_id", sess.AttemptID.String()).
		Str("reason", string(summary.Reason)).
		Float64("percentage", summary.Result.Percentage).
		Msg("Attempt graded")
}

func (s *ProctorService) remove(sess *LiveSession) {
	s.mu.Lock()
	key := sessionKey(sess.ProductID, sess.CandidateID)
	if s.sessions[key] == sess {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
}

// Answer records a single answer: in the engine, in the Redis autosave
// hash, and on the persistence queue. A negative option clears the answer.
func (s *ProctorService) Answer(ctx context.Context, sess *LiveSession, questionID string, option int) error {
	sess.Controller.AnswerSelected(questionID, option)

	answersKey := config.CacheKey.AttemptAnswersKey(sess.ProductID.String(), sess.CandidateID)
	if option < 0 {
		if err := s.rdb.HDel(ctx, answersKey, questionID).Err(); err != nil {
			return fmt.Errorf("clear autosave: %w", err)
		}
		return nil
	}

	job, err := json.Marshal(model.AnswerJob{
		ProductID:   sess.ProductID,
		CandidateID: sess.CandidateID,
		QuestionID:  questionID,
		Option:      option,
		SavedAt:     s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal answer job: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, answersKey, questionID, option)
	pipe.LPush(ctx, config.WorkerKey.PersistAnswersQueue, job)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosave answer: %w", err)
	}
	return nil
}

// Submit asks the engine to grade the attempt now. Grading and all
// follow-up persistence happen synchronously through the hooks; a second
// call is a no-op.
func (s *ProctorService) Submit(sess *LiveSession) {
	sess.Controller.SubmitRequested()
}

// Abort abandons an attempt without grading. The attempt is terminal
// afterwards; it can never be resumed.
func (s *ProctorService) Abort(ctx context.Context, sess *LiveSession) error {
	sess.Controller.Abort()
	s.remove(sess)

	if err := s.attemptRepo.MarkAborted(ctx, sess.AttemptID); err != nil {
		return fmt.Errorf("mark aborted: %w", err)
	}

	monitorMsg, _ := json.Marshal(model.MonitorEvent{
		Type:        "aborted",
		ProductID:   sess.ProductID,
		CandidateID: sess.CandidateID,
		At:          s.clock.Now(),
	})

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptStartKey(sess.ProductID.String(), sess.CandidateID))
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(sess.ProductID.String(), sess.CandidateID))
	pipe.Del(ctx, config.CacheKey.AttemptViolationsKey(sess.ProductID.String(), sess.CandidateID))
	pipe.Publish(ctx, config.CacheKey.ProductMonitorChannel(sess.ProductID.String()), monitorMsg)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clean up aborted attempt keys")
	}
	return nil
}

// State returns the resume snapshot for an attempt: live engine state when
// a session is in memory, otherwise a reconstruction from Redis and
// PostgreSQL.
func (s *ProctorService) State(ctx context.Context, productID uuid.UUID, candidateID int) (*model.AttemptState, error) {
	if sess, ok := s.Session(productID, candidateID); ok {
		answers := make(map[string]string)
		for qid, opt := range sess.Controller.Answers() {
			answers[qid] = strconv.Itoa(opt)
		}
		return &model.AttemptState{
			ProductID:        productID,
			CandidateID:      candidateID,
			Phase:            string(sess.Controller.Phase()),
			RemainingSeconds: sess.Controller.Remaining().Seconds(),
			ViolationCount:   sess.Controller.ViolationCount(),
			AutosavedAnswers: answers,
		}, nil
	}

	attempt, err := s.attemptRepo.GetByProductAndCandidate(ctx, productID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	state := &model.AttemptState{
		ProductID:      productID,
		CandidateID:    candidateID,
		ViolationCount: attempt.ViolationCount,
	}

	switch attempt.Status {
	case model.AttemptStatusCompleted:
		state.Phase = string(proctor.PhaseGraded)
		return state, nil
	case model.AttemptStatusAborted:
		state.Phase = string(proctor.PhaseAborted)
		return state, nil
	}

	// In progress but not live here: the server restarted. Rebuild from
	// the caches so the next start call can resume seamlessly.
	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(productID.String(), candidateID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	deadline := attempt.StartedAt.Add(time.Duration(product.DurationMinutes) * time.Minute)
	remaining := deadline.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	state.Phase = string(proctor.PhaseRunning)
	state.RemainingSeconds = remaining.Seconds()
	state.AutosavedAnswers = answers
	state.ViolationCount = s.countResumableViolations(ctx, productID, candidateID)
	return state, nil
}

// loadAutosavedAnswers hydrates the Redis autosave hash into the engine's
// answer map. Unparsable entries are dropped.
func (s *ProctorService) loadAutosavedAnswers(ctx context.Context, productID uuid.UUID, candidateID int) map[string]int {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(productID.String(), candidateID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load autosaved answers")
		return nil
	}

	answers := make(map[string]int, len(raw))
	for qid, val := range raw {
		opt, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		answers[qid] = opt
	}
	return answers
}

// loadViolationLog hydrates the Redis violation list into engine records.
func (s *ProctorService) loadViolationLog(ctx context.Context, productID uuid.UUID, candidateID int) []proctor.ViolationRecord {
	entries, err := s.rdb.LRange(ctx, config.CacheKey.AttemptViolationsKey(productID.String(), candidateID), 0, -1).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load violation log")
		return nil
	}

	records := make([]proctor.ViolationRecord, 0, len(entries))
	for _, entry := range entries {
		var rec proctor.ViolationRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (s *ProctorService) countResumableViolations(ctx context.Context, productID uuid.UUID, candidateID int) int {
	records := s.loadViolationLog(ctx, productID, candidateID)
	count := 0
	for _, rec := range records {
		if rec.Kind != proctor.ViolationIdleTimeout {
			count++
		}
	}
	return count
}
