package proctor

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is the lifecycle state of one exam attempt.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseRunning    Phase = "running"
	PhaseSubmitting Phase = "submitting"
	PhaseGraded     Phase = "graded"
	PhaseAborted    Phase = "aborted"
)

// SubmitReason tags which trigger won the Running → Submitting transition.
type SubmitReason string

const (
	ReasonManual     SubmitReason = "manual"
	ReasonTimeout    SubmitReason = "timeout"
	ReasonViolations SubmitReason = "violations"
)

// TierSettings carries the per-tier knobs: time limit, violation limit,
// marking scheme, and pass threshold. All of it is data supplied by the
// plan catalog, never hardcoded policy.
type TierSettings struct {
	Level         string
	TimeLimit     time.Duration
	MaxViolations int
	Scheme        MarkingScheme
	PassPercent   float64
	IdleThreshold time.Duration
}

// ViolationRecord is one entry of the append-only violation log.
type ViolationRecord struct {
	At       time.Time     `json:"at"`
	Kind     ViolationKind `json:"kind"`
	Severity WarningLevel  `json:"severity"`
}

// Warning is a transient notice pushed to the rendering surface.
type Warning struct {
	Kind    ViolationKind `json:"kind"`
	Level   WarningLevel  `json:"level"`
	Message string        `json:"message"`
	Count   int           `json:"count"`
}

// Summary is the finalized attempt record handed to the result sink once
// the session is graded. The sink write is fire-and-forget; retry belongs
// to the persistence collaborator, not to the controller.
type Summary struct {
	SessionID      uuid.UUID         `json:"session_id"`
	CandidateID    int               `json:"candidate_id"`
	Level          string            `json:"level"`
	StartedAt      time.Time         `json:"started_at"`
	GradedAt       time.Time         `json:"graded_at"`
	Reason         SubmitReason      `json:"reason"`
	Result         Result            `json:"result"`
	ViolationCount int               `json:"violation_count"`
	Violations     []ViolationRecord `json:"violations"`
}

// Hooks connect the controller to the rendering surface and the result
// sink. All hooks are optional and are invoked outside the session lock;
// a panicking hook is swallowed, never propagated to a caller.
type Hooks struct {
	OnPhase     func(phase Phase, reason SubmitReason)
	OnRemaining func(remaining time.Duration)
	OnWarning   func(w Warning)
	OnGraded    func(s *Summary)
	OnBlackout  func()
}

// ErrNotInSetup is returned when Begin is called after the session has
// already left the Setup phase.
var ErrNotInSetup = errors.New("session has already left setup")

// Controller drives one proctored exam attempt: phase transitions, the
// countdown, the integrity monitor lifecycle, and grading. It owns the
// session state exclusively; the monitor reaches it only through the
// single recordViolation call path, and the rendering surface only
// through AnswerSelected and SubmitRequested.
//
// All event processing is serialized, so a violation count update is
// always atomic with respect to a single event.
type Controller struct {
	tier      TierSettings
	questions []Question
	clock     Clock
	hooks     Hooks
	log       zerolog.Logger
	monitor   *Monitor

	mu             sync.Mutex
	sessionID      uuid.UUID
	candidateID    int
	phase          Phase
	startedAt      time.Time
	deadlineAt     time.Time
	answers        map[string]int
	violations     []ViolationRecord
	violationCount int
	reason         SubmitReason
	result         *Result
	ticker         Ticker
	done           chan struct{}
}

// NewController creates a session in the Setup phase with a fresh session ID.
func NewController(tier TierSettings, questions []Question, clock Clock, hooks Hooks, log zerolog.Logger) *Controller {
	c := &Controller{
		tier:      tier,
		questions: questions,
		clock:     clock,
		hooks:     hooks,
		log:       log.With().Str("component", "phase_controller").Logger(),
		sessionID: uuid.New(),
		phase:     PhaseSetup,
		answers:   make(map[string]int),
	}
	c.monitor = NewMonitor(clock, tier.IdleThreshold, c.recordViolation, c.blackout, log)
	return c
}

// Begin fires Setup → Running: validates the candidate details, computes
// the deadline, starts the integrity monitor, and starts the countdown
// ticker. Malformed details block the transition.
func (c *Controller) Begin(candidateID int, details CandidateDetails, src SignalSource) error {
	if err := details.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseSetup {
		c.mu.Unlock()
		return ErrNotInSetup
	}
	c.candidateID = candidateID
	c.startedAt = c.clock.Now()
	c.deadlineAt = c.startedAt.Add(c.tier.TimeLimit)
	notify := c.enterRunningLocked()
	c.mu.Unlock()

	c.monitor.Start(src)
	c.fire(notify)
	return nil
}

// Resume re-enters Running for an attempt that already started (page
// refresh, device change, or server restart), restoring the original
// start time, any autosaved answers, and the violation log. If the
// deadline already passed, the attempt is submitted by timeout on the
// first tick evaluation below.
func (c *Controller) Resume(candidateID int, startedAt time.Time, answers map[string]int, violations []ViolationRecord, src SignalSource) error {
	c.mu.Lock()
	if c.phase != PhaseSetup {
		c.mu.Unlock()
		return ErrNotInSetup
	}
	c.candidateID = candidateID
	c.startedAt = startedAt
	c.deadlineAt = startedAt.Add(c.tier.TimeLimit)
	for id, opt := range answers {
		c.answers[id] = opt
	}
	for _, v := range violations {
		c.violations = append(c.violations, v)
		if v.Kind != ViolationIdleTimeout {
			c.violationCount++
		}
	}
	notify := c.enterRunningLocked()
	notify = append(notify, c.tickLocked()...)
	c.mu.Unlock()

	c.fire(notify)

	// Attach observers only if the quick deadline check above did not
	// already grade the attempt.
	if c.Phase() == PhaseRunning {
		c.monitor.Start(src)
	}
	return nil
}

func (c *Controller) enterRunningLocked() []func() {
	c.phase = PhaseRunning
	c.done = make(chan struct{})
	c.ticker = c.clock.NewTicker(time.Second)
	go c.countdown(c.ticker, c.done)

	return []func(){func() {
		if c.hooks.OnPhase != nil {
			c.hooks.OnPhase(PhaseRunning, "")
		}
	}}
}

func (c *Controller) countdown(t Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C():
			c.mu.Lock()
			notify := c.tickLocked()
			c.mu.Unlock()
			c.fire(notify)
		}
	}
}

// tickLocked recomputes the remaining time and fires the timeout trigger
// exactly once. The phase guard makes the trigger idempotent: whichever
// of manual, timeout, or violations fires first wins, and later triggers
// in the same evaluation window are no-ops.
func (c *Controller) tickLocked() []func() {
	if c.phase != PhaseRunning {
		return nil
	}

	remaining := c.deadlineAt.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	notify := []func(){}
	if c.hooks.OnRemaining != nil {
		r := remaining
		notify = append(notify, func() { c.hooks.OnRemaining(r) })
	}

	if remaining <= 0 {
		notify = append(notify, c.submitLocked(ReasonTimeout)...)
	}
	return notify
}

// recordViolation is the single call path by which the monitor mutates
// session state. The violation log is append-only and the count is
// monotone while Running; events arriving after the phase left Running
// are dropped, so nothing is double-counted after submission.
func (c *Controller) recordViolation(kind ViolationKind) {
	c.mu.Lock()
	if c.phase != PhaseRunning {
		c.mu.Unlock()
		return
	}

	d := Evaluate(c.violationCount, kind, c.tier.MaxViolations)

	c.violations = append(c.violations, ViolationRecord{
		At:       c.clock.Now(),
		Kind:     kind,
		Severity: d.Level,
	})
	c.violationCount = d.Count

	var notify []func()
	if d.Action == ActionForceSubmit {
		notify = c.submitLocked(ReasonViolations)
	} else if c.hooks.OnWarning != nil {
		w := Warning{Kind: kind, Level: d.Level, Message: d.Message, Count: d.Count}
		notify = append(notify, func() { c.hooks.OnWarning(w) })
	}
	c.mu.Unlock()

	c.fire(notify)
}

func (c *Controller) blackout() {
	if c.hooks.OnBlackout != nil {
		c.fire([]func(){c.hooks.OnBlackout})
	}
}

// AnswerSelected records one answer. Answers are mutable only while the
// session is Running; anything after the submission trigger is a no-op.
// A negative option index clears the selection back to unanswered.
func (c *Controller) AnswerSelected(questionID string, option int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return
	}
	if option < 0 {
		delete(c.answers, questionID)
		return
	}
	c.answers[questionID] = option
}

// SubmitRequested fires the manual submission trigger.
func (c *Controller) SubmitRequested() {
	c.mu.Lock()
	notify := c.submitLocked(ReasonManual)
	c.mu.Unlock()
	c.fire(notify)
}

// Abort terminates the session before grading. Valid from Setup or
// Running; a graded session cannot be aborted.
func (c *Controller) Abort() {
	c.mu.Lock()
	if c.phase != PhaseSetup && c.phase != PhaseRunning {
		c.mu.Unlock()
		return
	}
	wasRunning := c.phase == PhaseRunning
	c.phase = PhaseAborted
	if wasRunning {
		c.teardownLocked()
	}
	notify := []func(){func() {
		if c.hooks.OnPhase != nil {
			c.hooks.OnPhase(PhaseAborted, "")
		}
	}}
	c.mu.Unlock()
	c.fire(notify)
}

// submitLocked performs Running → Submitting → Graded in one evaluation
// step. Scoring is synchronous and cannot fail: a malformed answer set
// grades as unanswered for every question. Only the first trigger wins.
func (c *Controller) submitLocked(reason SubmitReason) []func() {
	if c.phase != PhaseRunning {
		return nil
	}

	c.phase = PhaseSubmitting
	c.reason = reason
	c.teardownLocked()

	res := Score(c.answers, c.questions, c.tier.Scheme, c.tier.PassPercent)
	c.result = &res
	c.phase = PhaseGraded

	summary := &Summary{
		SessionID:      c.sessionID,
		CandidateID:    c.candidateID,
		Level:          c.tier.Level,
		StartedAt:      c.startedAt,
		GradedAt:       c.clock.Now(),
		Reason:         reason,
		Result:         res,
		ViolationCount: c.violationCount,
		Violations:     append([]ViolationRecord(nil), c.violations...),
	}

	return []func(){func() {
		if c.hooks.OnPhase != nil {
			c.hooks.OnPhase(PhaseSubmitting, reason)
			c.hooks.OnPhase(PhaseGraded, reason)
		}
		if c.hooks.OnGraded != nil {
			c.hooks.OnGraded(summary)
		}
	}}
}

// teardownLocked synchronously stops the monitor (detaching every
// observer) and the countdown ticker. There is no async work to cancel:
// all the monitor's work is observer registration.
func (c *Controller) teardownLocked() {
	c.monitor.Stop()
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// fire invokes deferred hook notifications outside the session lock.
// Hook panics are swallowed: the engine never throws out of its public
// entry points.
func (c *Controller) fire(notify []func()) {
	for _, fn := range notify {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().Interface("panic", r).Msg("session hook panicked")
				}
			}()
			fn()
		}()
	}
}

// ─── Read-only projections for the rendering surface ────────────────

// SessionID returns the immutable attempt identifier.
func (c *Controller) SessionID() uuid.UUID { return c.sessionID }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Reason returns the submission trigger tag, empty before submission.
func (c *Controller) Reason() SubmitReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Remaining returns the time left on the countdown, zero once expired or
// before the exam starts.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseRunning {
		return 0
	}
	remaining := c.deadlineAt.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ViolationCount returns the current non-idle violation count.
func (c *Controller) ViolationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violationCount
}

// Violations returns a copy of the violation log.
func (c *Controller) Violations() []ViolationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ViolationRecord(nil), c.violations...)
}

// Answers returns a copy of the current answer set.
func (c *Controller) Answers() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.answers))
	for id, opt := range c.answers {
		out[id] = opt
	}
	return out
}

// Result returns the grading outcome. The second return is false until
// the session is Graded; a result exists if and only if the phase is
// Graded.
func (c *Controller) Result() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// StartedAt returns the wall-clock start of the attempt.
func (c *Controller) StartedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startedAt
}
