package proctor

import (
	"sync"
	"testing"
	"time"
)

// phaseRecorder captures phase transitions pushed through the hooks.
type phaseRecorder struct {
	mu      sync.Mutex
	phases  []Phase
	reasons []SubmitReason
	graded  []*Summary
}

func (r *phaseRecorder) hooks() Hooks {
	return Hooks{
		OnPhase: func(p Phase, reason SubmitReason) {
			r.mu.Lock()
			r.phases = append(r.phases, p)
			r.reasons = append(r.reasons, reason)
			r.mu.Unlock()
		},
		OnGraded: func(s *Summary) {
			r.mu.Lock()
			r.graded = append(r.graded, s)
			r.mu.Unlock()
		},
	}
}

func (r *phaseRecorder) count(p Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.phases {
		if got == p {
			n++
		}
	}
	return n
}

func (r *phaseRecorder) lastReason() SubmitReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reasons) == 0 {
		return ""
	}
	return r.reasons[len(r.reasons)-1]
}

func startedController(t *testing.T, tier TierSettings, rec *phaseRecorder) (*Controller, *fakeClock, *fakeSource) {
	t.Helper()
	clock := newFakeClock()
	src := &fakeSource{}
	c := NewController(tier, fourQuestions(), clock, rec.hooks(), testLogger())

	if c.Phase() != PhaseSetup {
		t.Fatalf("fresh session phase: got %s, want %s", c.Phase(), PhaseSetup)
	}
	if err := c.Begin(7, validDetails(), src); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if c.Phase() != PhaseRunning {
		t.Fatalf("phase after Begin: got %s", c.Phase())
	}
	return c, clock, src
}

func TestBegin_RejectsMalformedDetails(t *testing.T) {
	tests := []struct {
		name    string
		details CandidateDetails
	}{
		{name: "short name", details: CandidateDetails{Name: "Al", Age: 20, Email: "al@example.com", Address: "x"}},
		{name: "age too low", details: CandidateDetails{Name: "Ritu", Age: 9, Email: "r@example.com", Address: "x"}},
		{name: "age too high", details: CandidateDetails{Name: "Ritu", Age: 101, Email: "r@example.com", Address: "x"}},
		{name: "bad email", details: CandidateDetails{Name: "Ritu", Age: 20, Email: "not-an-email", Address: "x"}},
		{name: "empty address", details: CandidateDetails{Name: "Ritu", Age: 20, Email: "r@example.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewController(proTier(), fourQuestions(), newFakeClock(), Hooks{}, testLogger())
			if err := c.Begin(1, tc.details, &fakeSource{}); err == nil {
				t.Fatal("expected validation error")
			}
			if c.Phase() != PhaseSetup {
				t.Fatalf("malformed details must block the transition, phase=%s", c.Phase())
			}
		})
	}
}

func TestBegin_OnlyOnce(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, src := startedController(t, proTier(), rec)
	if err := c.Begin(7, validDetails(), src); err != ErrNotInSetup {
		t.Fatalf("second Begin: got %v, want ErrNotInSetup", err)
	}
}

func TestManualSubmit_GradesSynchronously(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	c.AnswerSelected("q1", 0)
	c.AnswerSelected("q2", 3)
	c.AnswerSelected("q4", 3)
	c.SubmitRequested()

	if c.Phase() != PhaseGraded {
		t.Fatalf("phase after submit: got %s", c.Phase())
	}
	if c.Reason() != ReasonManual {
		t.Fatalf("reason: got %s", c.Reason())
	}

	res, ok := c.Result()
	if !ok {
		t.Fatal("graded session must expose a result")
	}
	if res.RawScore != 7 || res.Percentage != 43.75 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(rec.graded) != 1 {
		t.Fatalf("graded hook fired %d times", len(rec.graded))
	}
	if rec.graded[0].CandidateID != 7 || rec.graded[0].Level != "pro" {
		t.Fatalf("summary identity wrong: %+v", rec.graded[0])
	}
}

func TestSubmitTrigger_Idempotent(t *testing.T) {
	rec := &phaseRecorder{}
	c, clock, _ := startedController(t, proTier(), rec)

	c.AnswerSelected("q1", 0)
	c.SubmitRequested()

	// A timeout tick racing in the same evaluation window must be a no-op.
	clock.Advance(time.Hour)
	c.stepTick()
	c.SubmitRequested()

	if got := rec.count(PhaseSubmitting); got != 1 {
		t.Fatalf("Running→Submitting fired %d times, want exactly 1", got)
	}
	if c.Reason() != ReasonManual {
		t.Fatalf("first trigger must win: reason=%s", c.Reason())
	}
}

func TestTimeout_ForcesSubmission(t *testing.T) {
	rec := &phaseRecorder{}
	c, clock, _ := startedController(t, proTier(), rec)

	clock.Advance(29 * time.Minute)
	c.stepTick()
	if c.Phase() != PhaseRunning {
		t.Fatalf("submitted before the deadline, remaining=%v", c.Remaining())
	}

	clock.Advance(2 * time.Minute)
	c.stepTick()

	if c.Phase() != PhaseGraded {
		t.Fatalf("phase after deadline: got %s", c.Phase())
	}
	if rec.lastReason() != ReasonTimeout {
		t.Fatalf("reason: got %s, want %s", rec.lastReason(), ReasonTimeout)
	}

	// Deadline with zero answers: everything skipped, zero score.
	res, _ := c.Result()
	if res.Skipped != 4 || res.RawScore != 0 || res.Percentage != 0 {
		t.Fatalf("empty timed-out attempt: %+v", res)
	}
}

func TestViolationThreshold_ForcesSubmission(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	c.AnswerSelected("q1", 0)

	for i := 0; i < 4; i++ {
		c.recordViolation(ViolationBlockedShortcut)
		if c.Phase() != PhaseRunning {
			t.Fatalf("submitted early after %d violations", i+1)
		}
	}
	if c.ViolationCount() != 4 {
		t.Fatalf("count: got %d, want 4", c.ViolationCount())
	}

	c.recordViolation(ViolationBlockedShortcut)

	if c.Phase() != PhaseGraded {
		t.Fatalf("phase after 5th violation: got %s", c.Phase())
	}
	if c.ViolationCount() != 5 {
		t.Fatalf("count: got %d, want 5", c.ViolationCount())
	}
	if rec.lastReason() != ReasonViolations {
		t.Fatalf("reason: got %s", rec.lastReason())
	}

	// Answers as they existed at that instant are what gets graded.
	res, _ := c.Result()
	if res.Correct != 1 || res.Skipped != 3 {
		t.Fatalf("graded answers wrong: %+v", res)
	}
	if len(rec.graded[0].Violations) != 5 {
		t.Fatalf("violation log length: got %d", len(rec.graded[0].Violations))
	}
}

func TestIdle_NeverForcesSubmission(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	for i := 0; i < 50; i++ {
		c.recordViolation(ViolationIdleTimeout)
	}

	if c.Phase() != PhaseRunning {
		t.Fatalf("idle events ended the session: phase=%s", c.Phase())
	}
	if c.ViolationCount() != 0 {
		t.Fatalf("idle incremented the count: %d", c.ViolationCount())
	}
	// Idle nudges are still visible in the log.
	if len(c.Violations()) != 50 {
		t.Fatalf("log length: got %d", len(c.Violations()))
	}
}

func TestAnswers_FrozenAfterSubmission(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	c.AnswerSelected("q1", 0)
	c.SubmitRequested()
	c.AnswerSelected("q2", 1)

	if got := len(c.Answers()); got != 1 {
		t.Fatalf("answers mutated after grading: %v", c.Answers())
	}
}

func TestViolations_DroppedAfterSubmission(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	c.SubmitRequested()
	c.recordViolation(ViolationBlockedShortcut)

	if c.ViolationCount() != 0 {
		t.Fatal("violation counted after the phase left Running")
	}
}

func TestResult_PresentOnlyWhenGraded(t *testing.T) {
	rec := &phaseRecorder{}
	c, _, _ := startedController(t, proTier(), rec)

	if _, ok := c.Result(); ok {
		t.Fatal("running session must not expose a result")
	}
	c.SubmitRequested()
	if _, ok := c.Result(); !ok {
		t.Fatal("graded session must expose a result")
	}
}

func TestAbort_StopsEverything(t *testing.T) {
	rec := &phaseRecorder{}
	c, clock, src := startedController(t, proTier(), rec)

	c.Abort()

	if c.Phase() != PhaseAborted {
		t.Fatalf("phase: got %s", c.Phase())
	}
	attached, detached := src.counts()
	if attached != detached {
		t.Fatalf("observer leak: attached=%d detached=%d", attached, detached)
	}
	for _, tk := range clock.tickers {
		if !tk.isStopped() {
			t.Fatal("ticker left running after abort")
		}
	}
	if _, ok := c.Result(); ok {
		t.Fatal("aborted session must not have a result")
	}
}

func TestResume_RestoresStateAndGradesExpired(t *testing.T) {
	rec := &phaseRecorder{}
	clock := newFakeClock()
	startedAt := clock.Now().Add(-10 * time.Minute)

	c := NewController(proTier(), fourQuestions(), clock, rec.hooks(), testLogger())
	prior := []ViolationRecord{
		{At: startedAt.Add(time.Minute), Kind: ViolationVisibilityChange, Severity: WarningNotice},
		{At: startedAt.Add(2 * time.Minute), Kind: ViolationIdleTimeout, Severity: WarningNotice},
	}
	err := c.Resume(7, startedAt, map[string]int{"q1": 0}, prior, &fakeSource{})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if c.Phase() != PhaseRunning {
		t.Fatalf("phase after resume: %s", c.Phase())
	}
	if c.ViolationCount() != 1 {
		t.Fatalf("resumed count: got %d, want 1 (idle excluded)", c.ViolationCount())
	}
	if got := c.Remaining(); got != 20*time.Minute {
		t.Fatalf("remaining: got %v, want 20m", got)
	}

	// Resuming an attempt whose deadline already passed grades it by
	// timeout in the same call.
	expired := NewController(proTier(), fourQuestions(), clock, (&phaseRecorder{}).hooks(), testLogger())
	if err := expired.Resume(7, clock.Now().Add(-time.Hour), nil, nil, &fakeSource{}); err != nil {
		t.Fatalf("Resume expired: %v", err)
	}
	if expired.Phase() != PhaseGraded {
		t.Fatalf("expired resume phase: %s", expired.Phase())
	}
	if expired.Reason() != ReasonTimeout {
		t.Fatalf("expired resume reason: %s", expired.Reason())
	}
}

func TestCountdown_PublishesRemaining(t *testing.T) {
	var mu sync.Mutex
	var published []time.Duration

	clock := newFakeClock()
	c := NewController(proTier(), fourQuestions(), clock, Hooks{
		OnRemaining: func(r time.Duration) {
			mu.Lock()
			published = append(published, r)
			mu.Unlock()
		},
	}, testLogger())
	if err := c.Begin(1, validDetails(), &fakeSource{}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	clock.Advance(10 * time.Minute)
	c.stepTick()

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 1 || published[0] != 20*time.Minute {
		t.Fatalf("published remaining: %v", published)
	}
}

func TestHookPanic_IsSwallowed(t *testing.T) {
	c := NewController(proTier(), fourQuestions(), newFakeClock(), Hooks{
		OnPhase: func(Phase, SubmitReason) { panic("ui broke") },
	}, testLogger())

	if err := c.Begin(1, validDetails(), &fakeSource{}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.SubmitRequested()

	if c.Phase() != PhaseGraded {
		t.Fatalf("panicking hook disturbed the state machine: %s", c.Phase())
	}
}
