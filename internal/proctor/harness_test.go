package proctor

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fakeClock) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{interval: d, ch: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

type fakeTicker struct {
	interval time.Duration
	ch       chan time.Time
	mu       sync.Mutex
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeSource is an in-memory SignalSource that counts attach and detach
// calls and lets tests inject raw signals.
type fakeSource struct {
	mu       sync.Mutex
	attached int
	detached int

	visibility func(hidden bool)
	keyboard   func(combo KeyCombo)
	clipboard  func(op ClipboardOp)
	ctxMenu    func()
	drag       func()
	selection  func(inFormInput bool)
	metrics    func(m WindowMetrics)
	activity   func()
	fullscreen func(active bool)
	print      func()
}

func (s *fakeSource) register(set func()) DetachFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached++
	set()
	return func() {
		s.mu.Lock()
		s.detached++
		s.mu.Unlock()
	}
}

func (s *fakeSource) AttachVisibility(fn func(bool)) DetachFunc {
	return s.register(func() { s.visibility = fn })
}
func (s *fakeSource) AttachKeyboard(fn func(KeyCombo)) DetachFunc {
	return s.register(func() { s.keyboard = fn })
}
func (s *fakeSource) AttachClipboard(fn func(ClipboardOp)) DetachFunc {
	return s.register(func() { s.clipboard = fn })
}
func (s *fakeSource) AttachContextMenu(fn func()) DetachFunc {
	return s.register(func() { s.ctxMenu = fn })
}
func (s *fakeSource) AttachDrag(fn func()) DetachFunc {
	return s.register(func() { s.drag = fn })
}
func (s *fakeSource) AttachSelection(fn func(bool)) DetachFunc {
	return s.register(func() { s.selection = fn })
}
func (s *fakeSource) AttachWindowMetrics(fn func(WindowMetrics)) DetachFunc {
	return s.register(func() { s.metrics = fn })
}
func (s *fakeSource) AttachActivity(fn func()) DetachFunc {
	return s.register(func() { s.activity = fn })
}
func (s *fakeSource) AttachFullscreen(fn func(bool)) DetachFunc {
	return s.register(func() { s.fullscreen = fn })
}
func (s *fakeSource) AttachPrint(fn func()) DetachFunc {
	return s.register(func() { s.print = fn })
}

func (s *fakeSource) counts() (attached, detached int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached, s.detached
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// stepTick drives one countdown evaluation synchronously, bypassing the
// ticker goroutine so tests stay deterministic.
func (c *Controller) stepTick() {
	c.mu.Lock()
	notify := c.tickLocked()
	c.mu.Unlock()
	c.fire(notify)
}

func fourQuestions() []Question {
	return []Question{
		{ID: "q1", Section: "aptitude", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
		{ID: "q2", Section: "aptitude", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		{ID: "q3", Section: "reasoning", Options: []string{"a", "b", "c", "d"}, CorrectOption: 2},
		{ID: "q4", Section: "reasoning", Options: []string{"a", "b", "c", "d"}, CorrectOption: 3},
	}
}

func proTier() TierSettings {
	return TierSettings{
		Level:         "pro",
		TimeLimit:     30 * time.Minute,
		MaxViolations: 5,
		Scheme:        MarkingScheme{Correct: 4, Wrong: 1},
		PassPercent:   55,
		IdleThreshold: DefaultIdleThreshold,
	}
}

func validDetails() CandidateDetails {
	return CandidateDetails{
		Name:    "Asha Verma",
		Age:     21,
		Email:   "asha@example.com",
		Address: "12 Lake Road, Pune",
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
