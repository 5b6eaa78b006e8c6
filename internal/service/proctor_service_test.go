package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type frozenTicker struct{ ch chan time.Time }

func (t *frozenTicker) C() <-chan time.Time { return t.ch }
func (t *frozenTicker) Stop()               {}

// frozenClock hands out tickers that never fire, so only signal-driven
// paths run during a test.
type frozenClock struct{ now time.Time }

func (c *frozenClock) Now() time.Time { return c.now }

func (c *frozenClock) NewTicker(d time.Duration) proctor.Ticker {
	return &frozenTicker{ch: make(chan time.Time)}
}

// newLiveTestSession wires a running session against a miniredis instance,
// mirroring the production hook wiring.
func newLiveTestSession(t *testing.T) (*ProctorService, *LiveSession, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := &frozenClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	svc := NewProctorService(nil, nil, nil, rdb, clock, zerolog.Nop())

	sess := &LiveSession{
		AttemptID:   uuid.New(),
		ProductID:   uuid.New(),
		CandidateID: 7,
		Bridge:      NewSignalBridge(),
		Events:      make(chan ProctorEvent, 64),
	}

	tier := proctor.TierSettings{
		Level:         "pro",
		TimeLimit:     30 * time.Minute,
		MaxViolations: 5,
		Scheme:        proctor.MarkingScheme{Correct: 4, Wrong: -1},
		PassPercent:   55,
		IdleThreshold: 3 * time.Minute,
	}
	questions := []proctor.Question{
		{ID: "q1", Section: "quant", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		{ID: "q2", Section: "verbal", Options: []string{"a", "b", "c", "d"}, CorrectOption: 2},
	}
	sess.Controller = proctor.NewController(tier, questions, clock, svc.buildHooks(sess), zerolog.Nop())

	svc.mu.Lock()
	svc.sessions[sessionKey(sess.ProductID, sess.CandidateID)] = sess
	svc.mu.Unlock()

	details := proctor.CandidateDetails{
		Name:    "Asha Rao",
		Age:     24,
		Email:   "asha@example.com",
		Address: "Pune",
	}
	if err := sess.Controller.Begin(sess.CandidateID, details, sess.Bridge); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	return svc, sess, rdb
}

// The violation that reaches the cap force-submits without a warning
// callback, but it still has to land in the durable log: the persisted
// row count must match the graded violation count.
func TestForceSubmitPersistsDecisiveViolation(t *testing.T) {
	_, sess, rdb := newLiveTestSession(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sess.Bridge.PushKeyboard(proctor.KeyCombo{Key: "F12"})
	}

	if got := sess.Controller.Phase(); got != proctor.PhaseGraded {
		t.Fatalf("phase = %s, want %s", got, proctor.PhaseGraded)
	}
	if got := sess.Controller.ViolationCount(); got != 5 {
		t.Fatalf("violation count = %d, want 5", got)
	}

	queued, err := rdb.LRange(ctx, config.WorkerKey.PersistViolationsQueue, 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if len(queued) != 5 {
		t.Fatalf("persistence queue holds %d jobs, want 5", len(queued))
	}
	for _, raw := range queued {
		var job model.ViolationJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			t.Fatalf("unmarshal violation job: %v", err)
		}
		if job.Kind != string(proctor.ViolationBlockedShortcut) {
			t.Errorf("job kind = %q, want %q", job.Kind, proctor.ViolationBlockedShortcut)
		}
		if job.CandidateID != sess.CandidateID {
			t.Errorf("job candidate = %d, want %d", job.CandidateID, sess.CandidateID)
		}
	}

	logKey := config.CacheKey.AttemptViolationsKey(sess.ProductID.String(), sess.CandidateID)
	logged, err := rdb.LLen(ctx, logKey).Result()
	if err != nil {
		t.Fatalf("LLen failed: %v", err)
	}
	if logged != 5 {
		t.Errorf("resume log holds %d records, want 5", logged)
	}

	results, err := rdb.LRange(ctx, config.WorkerKey.PersistResultsQueue, 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange results failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results queue holds %d jobs, want 1", len(results))
	}
	var res model.ResultJob
	if err := json.Unmarshal([]byte(results[0]), &res); err != nil {
		t.Fatalf("unmarshal result job: %v", err)
	}
	if res.Reason != string(proctor.ReasonViolations) {
		t.Errorf("result reason = %q, want %q", res.Reason, proctor.ReasonViolations)
	}
	if res.ViolationCount != 5 {
		t.Errorf("result violation count = %d, want 5", res.ViolationCount)
	}
}

// A submission below the cap must not append an extra violation record:
// everything was already persisted through the warning path.
func TestManualSubmitDoesNotDuplicateViolations(t *testing.T) {
	_, sess, rdb := newLiveTestSession(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sess.Bridge.PushContextMenu()
	}
	sess.Controller.SubmitRequested()

	if got := sess.Controller.Phase(); got != proctor.PhaseGraded {
		t.Fatalf("phase = %s, want %s", got, proctor.PhaseGraded)
	}

	queued, err := rdb.LLen(ctx, config.WorkerKey.PersistViolationsQueue).Result()
	if err != nil {
		t.Fatalf("LLen failed: %v", err)
	}
	if queued != 3 {
		t.Errorf("persistence queue holds %d jobs, want 3", queued)
	}

	results, err := rdb.LRange(ctx, config.WorkerKey.PersistResultsQueue, 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange results failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results queue holds %d jobs, want 1", len(results))
	}
	var res model.ResultJob
	if err := json.Unmarshal([]byte(results[0]), &res); err != nil {
		t.Fatalf("unmarshal result job: %v", err)
	}
	if res.Reason != string(proctor.ReasonManual) {
		t.Errorf("result reason = %q, want %q", res.Reason, proctor.ReasonManual)
	}
	if res.ViolationCount != 3 {
		t.Errorf("result violation count = %d, want 3", res.ViolationCount)
	}
}
