package proctor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	devToolsPollInterval = 1500 * time.Millisecond
	devToolsDeltaPx      = 200
	idleCheckInterval    = 10 * time.Second

	// DefaultIdleThreshold is how long activity may be absent before an
	// idle-timeout nudge fires.
	DefaultIdleThreshold = 180 * time.Second
)

// ClipboardOp identifies an intercepted clipboard action.
type ClipboardOp string

const (
	ClipboardCopy  ClipboardOp = "copy"
	ClipboardCut   ClipboardOp = "cut"
	ClipboardPaste ClipboardOp = "paste"
)

// KeyCombo is a keyboard event as reported by the exam UI.
type KeyCombo struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

// WindowMetrics is a sample of the browser's outer/inner dimensions,
// used by the dev-tools heuristic.
type WindowMetrics struct {
	InnerWidth  int `json:"inner_w"`
	InnerHeight int `json:"inner_h"`
	OuterWidth  int `json:"outer_w"`
	OuterHeight int `json:"outer_h"`
}

// DetachFunc removes a previously attached observer.
type DetachFunc func()

// SignalSource is the capability surface the monitor observes. The
// production implementation bridges signals reported by the exam UI over
// the WebSocket stream; tests use a fake source, so neither the policy
// engine nor the phase controller ever touches a real document or window.
//
// Every attach returns a detach that the monitor calls exactly once when
// it stops, regardless of which trigger caused the phase exit.
type SignalSource interface {
	AttachVisibility(fn func(hidden bool)) DetachFunc
	AttachKeyboard(fn func(combo KeyCombo)) DetachFunc
	AttachClipboard(fn func(op ClipboardOp)) DetachFunc
	AttachContextMenu(fn func()) DetachFunc
	AttachDrag(fn func()) DetachFunc
	AttachSelection(fn func(inFormInput bool)) DetachFunc
	AttachWindowMetrics(fn func(m WindowMetrics)) DetachFunc
	AttachActivity(fn func()) DetachFunc
	AttachFullscreen(fn func(active bool)) DetachFunc
	AttachPrint(fn func()) DetachFunc
}

// Monitor translates raw browser signals into discrete violation events
// and forwards them through a single sink. It owns two fixed-interval
// pollers: the dev-tools dimension heuristic and the idle check. All its
// work is observer registration; stopping it synchronously detaches every
// observer and stops both pollers.
type Monitor struct {
	clock         Clock
	idleThreshold time.Duration
	sink          func(kind ViolationKind)
	onBlackout    func()
	log           zerolog.Logger

	mu           sync.Mutex
	running      bool
	detach       []DetachFunc
	tickers      []Ticker
	done         chan struct{}
	hiddenSeen   bool
	lastMetrics  *WindowMetrics
	lastActivity time.Time
}

// NewMonitor creates a stopped monitor. The sink is the single call path
// through which violations reach the session; onBlackout is the cosmetic
// print-screen deterrent hook and may be nil.
func NewMonitor(clock Clock, idleThreshold time.Duration, sink func(ViolationKind), onBlackout func(), log zerolog.Logger) *Monitor {
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	return &Monitor{
		clock:         clock,
		idleThreshold: idleThreshold,
		sink:          sink,
		onBlackout:    onBlackout,
		log:           log.With().Str("component", "integrity_monitor").Logger(),
	}
}

// Start attaches every observer exactly once and starts the pollers.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(src SignalSource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.hiddenSeen = false
	m.lastMetrics = nil
	m.lastActivity = m.clock.Now()
	m.done = make(chan struct{})

	m.detach = []DetachFunc{
		src.AttachVisibility(m.onVisibility),
		src.AttachKeyboard(m.onKeyboard),
		src.AttachClipboard(m.onClipboard),
		src.AttachContextMenu(m.onContextMenu),
		src.AttachDrag(m.onDrag),
		src.AttachSelection(m.onSelection),
		src.AttachWindowMetrics(m.onWindowMetrics),
		src.AttachActivity(m.onActivity),
		src.AttachFullscreen(m.onFullscreen),
		src.AttachPrint(m.onPrint),
	}

	devTicker := m.clock.NewTicker(devToolsPollInterval)
	idleTicker := m.clock.NewTicker(idleCheckInterval)
	m.tickers = []Ticker{devTicker, idleTicker}

	go m.poll(devTicker, m.checkDevTools)
	go m.poll(idleTicker, m.checkIdle)
}

// Stop detaches every observer exactly once and stops both pollers.
// It is synchronous and idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	for _, d := range m.detach {
		d()
	}
	m.detach = nil

	for _, t := range m.tickers {
		t.Stop()
	}
	m.tickers = nil

	close(m.done)
}

func (m *Monitor) poll(t Ticker, check func()) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	for {
		select {
		case <-done:
			return
		case <-t.C():
			check()
		}
	}
}

// raise forwards one violation through the sink. Faults in downstream
// consumers are swallowed here so a misbehaving hook can never break an
// observer callback.
func (m *Monitor) raise(kind ViolationKind) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("kind", string(kind)).Msg("violation sink panicked")
		}
	}()
	m.sink(kind)
}

func (m *Monitor) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ─── Observers ──────────────────────────────────────────────────────

// onVisibility fires a violation each time the document becomes hidden
// and then visible again. The initial load reports visible without a
// preceding hidden, so it never counts.
func (m *Monitor) onVisibility(hidden bool) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	fire := false
	if hidden {
		m.hiddenSeen = true
	} else if m.hiddenSeen {
		m.hiddenSeen = false
		fire = true
	}
	m.mu.Unlock()

	if fire {
		m.raise(ViolationVisibilityChange)
	}
}

func (m *Monitor) onKeyboard(combo KeyCombo) {
	if !m.isRunning() {
		return
	}
	m.touchActivity()
	if !blockedCombo(combo) {
		return
	}
	if combo.Key == "PrintScreen" && m.onBlackout != nil {
		// Brief blackout overlay on the client. Deterrent only.
		m.onBlackout()
	}
	m.raise(ViolationBlockedShortcut)
}

// onClipboard raises a violation for copy and cut. Paste is suppressed
// client-side without counting.
func (m *Monitor) onClipboard(op ClipboardOp) {
	if !m.isRunning() {
		return
	}
	m.touchActivity()
	if op == ClipboardPaste {
		return
	}
	m.raise(ViolationClipboardBlocked)
}

func (m *Monitor) onContextMenu() {
	if !m.isRunning() {
		return
	}
	m.touchActivity()
	m.raise(ViolationContextMenu)
}

// onDrag exists so drag suppression is observable for attach/detach
// accounting; drags are suppressed silently and never count.
func (m *Monitor) onDrag() {
	if !m.isRunning() {
		return
	}
	m.touchActivity()
}

// onSelection mirrors onDrag: selection outside form inputs is suppressed
// client-side without raising a violation.
func (m *Monitor) onSelection(inFormInput bool) {
	if !m.isRunning() {
		return
	}
	m.touchActivity()
	_ = inFormInput
}

func (m *Monitor) onWindowMetrics(metrics WindowMetrics) {
	m.mu.Lock()
	if m.running {
		snapshot := metrics
		m.lastMetrics = &snapshot
	}
	m.mu.Unlock()
}

func (m *Monitor) onActivity() {
	m.touchActivity()
}

func (m *Monitor) onFullscreen(active bool) {
	if !m.isRunning() {
		return
	}
	if !active {
		m.raise(ViolationFullscreenExited)
	}
}

func (m *Monitor) onPrint() {
	if !m.isRunning() {
		return
	}
	m.raise(ViolationPrintAttempt)
}

func (m *Monitor) touchActivity() {
	m.mu.Lock()
	if m.running {
		m.lastActivity = m.clock.Now()
	}
	m.mu.Unlock()
}

// ─── Pollers ────────────────────────────────────────────────────────

// checkDevTools compares the latest window dimension sample. A delta over
// the threshold in either axis suggests an open dev-tools pane. This is a
// heuristic with known false positives and negatives; it is advisory, not
// a security boundary.
func (m *Monitor) checkDevTools() {
	m.mu.Lock()
	metrics := m.lastMetrics
	running := m.running
	m.mu.Unlock()

	if !running || metrics == nil {
		return
	}
	if metrics.OuterWidth-metrics.InnerWidth > devToolsDeltaPx ||
		metrics.OuterHeight-metrics.InnerHeight > devToolsDeltaPx {
		m.raise(ViolationDevToolsSuspected)
	}
}

// checkIdle fires idle-timeout once activity has been absent for the
// threshold, then resets the activity clock so continued inactivity can
// fire again.
func (m *Monitor) checkIdle() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	now := m.clock.Now()
	fire := now.Sub(m.lastActivity) >= m.idleThreshold
	if fire {
		m.lastActivity = now
	}
	m.mu.Unlock()

	if fire {
		m.raise(ViolationIdleTimeout)
	}
}

// blockedCombo reports whether a key combination is on the deny-list:
// copy/paste/save/print/view-source/dev-tools shortcuts, refresh,
// print-screen, and the fullscreen toggle.
func blockedCombo(c KeyCombo) bool {
	switch c.Key {
	case "F5", "F11", "F12", "PrintScreen":
		return true
	}

	if c.Ctrl && c.Shift {
		switch c.Key {
		case "i", "I", "j", "J", "c", "C":
			return true
		}
	}

	if c.Ctrl || c.Meta {
		switch c.Key {
		case "c", "C", "x", "X", "v", "V", "s", "S", "p", "P", "u", "U", "r", "R":
			return true
		}
	}

	return false
}
