package proctor

import (
	"sync"
	"testing"
	"time"
)

// violationSink collects raised violations.
type violationSink struct {
	mu    sync.Mutex
	kinds []ViolationKind
}

func (s *violationSink) record(kind ViolationKind) {
	s.mu.Lock()
	s.kinds = append(s.kinds, kind)
	s.mu.Unlock()
}

func (s *violationSink) all() []ViolationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ViolationKind(nil), s.kinds...)
}

func startedMonitor(t *testing.T) (*Monitor, *fakeClock, *fakeSource, *violationSink) {
	t.Helper()
	clock := newFakeClock()
	src := &fakeSource{}
	sink := &violationSink{}
	m := NewMonitor(clock, DefaultIdleThreshold, sink.record, nil, testLogger())
	m.Start(src)
	return m, clock, src, sink
}

func TestMonitor_AttachDetachOneToOne(t *testing.T) {
	m, _, src, _ := startedMonitor(t)

	attached, detached := src.counts()
	if attached == 0 || detached != 0 {
		t.Fatalf("after start: attached=%d detached=%d", attached, detached)
	}

	m.Stop()

	attached, detached = src.counts()
	if attached != detached {
		t.Fatalf("observer leak: attached=%d detached=%d", attached, detached)
	}

	// Stop is idempotent; a second stop must not double-detach.
	m.Stop()
	_, again := src.counts()
	if again != detached {
		t.Fatalf("second stop detached again: %d → %d", detached, again)
	}
}

func TestMonitor_StartStopImmediately(t *testing.T) {
	// A start/stop cycle with no traffic (user aborts during setup) must
	// leave zero active listeners and stopped tickers.
	m, clock, src, sink := startedMonitor(t)
	m.Stop()

	attached, detached := src.counts()
	if attached != detached {
		t.Fatalf("listeners left: attached=%d detached=%d", attached, detached)
	}
	for _, tk := range clock.tickers {
		if !tk.isStopped() {
			t.Fatal("poller ticker left running")
		}
	}
	if len(sink.all()) != 0 {
		t.Fatalf("violations raised with no signals: %v", sink.all())
	}
}

func TestMonitor_VisibilityCycle(t *testing.T) {
	_, _, src, sink := startedMonitor(t)

	// Initial load reports visible with no preceding hidden: no violation.
	src.visibility(false)
	if len(sink.all()) != 0 {
		t.Fatal("initial visible counted as a violation")
	}

	src.visibility(true)
	if len(sink.all()) != 0 {
		t.Fatal("going hidden alone counted as a violation")
	}

	src.visibility(false)
	got := sink.all()
	if len(got) != 1 || got[0] != ViolationVisibilityChange {
		t.Fatalf("hidden→visible cycle: %v", got)
	}

	// Each full cycle counts once.
	src.visibility(true)
	src.visibility(false)
	if len(sink.all()) != 2 {
		t.Fatalf("second cycle: %v", sink.all())
	}
}

func TestMonitor_Clipboard(t *testing.T) {
	_, _, src, sink := startedMonitor(t)

	src.clipboard(ClipboardCopy)
	src.clipboard(ClipboardCut)
	src.clipboard(ClipboardPaste) // suppressed silently, never counted

	got := sink.all()
	if len(got) != 2 {
		t.Fatalf("clipboard violations: %v", got)
	}
	for _, k := range got {
		if k != ViolationClipboardBlocked {
			t.Fatalf("unexpected kind %s", k)
		}
	}
}

func TestMonitor_ContextMenuDragSelection(t *testing.T) {
	_, _, src, sink := startedMonitor(t)

	src.ctxMenu()
	src.drag()           // suppressed silently
	src.selection(false) // suppressed outside inputs, not counted
	src.selection(true)

	got := sink.all()
	if len(got) != 1 || got[0] != ViolationContextMenu {
		t.Fatalf("got %v, want one context-menu-blocked", got)
	}
}

func TestMonitor_BlockedShortcuts(t *testing.T) {
	tests := []struct {
		name    string
		combo   KeyCombo
		blocked bool
	}{
		{name: "ctrl+c", combo: KeyCombo{Key: "c", Ctrl: true}, blocked: true},
		{name: "ctrl+v", combo: KeyCombo{Key: "v", Ctrl: true}, blocked: true},
		{name: "ctrl+s", combo: KeyCombo{Key: "s", Ctrl: true}, blocked: true},
		{name: "ctrl+p", combo: KeyCombo{Key: "p", Ctrl: true}, blocked: true},
		{name: "ctrl+u view-source", combo: KeyCombo{Key: "u", Ctrl: true}, blocked: true},
		{name: "ctrl+r refresh", combo: KeyCombo{Key: "r", Ctrl: true}, blocked: true},
		{name: "meta+c", combo: KeyCombo{Key: "c", Meta: true}, blocked: true},
		{name: "ctrl+shift+i devtools", combo: KeyCombo{Key: "I", Ctrl: true, Shift: true}, blocked: true},
		{name: "ctrl+shift+j console", combo: KeyCombo{Key: "J", Ctrl: true, Shift: true}, blocked: true},
		{name: "f5 refresh", combo: KeyCombo{Key: "F5"}, blocked: true},
		{name: "f11 fullscreen toggle", combo: KeyCombo{Key: "F11"}, blocked: true},
		{name: "f12 devtools", combo: KeyCombo{Key: "F12"}, blocked: true},
		{name: "print screen", combo: KeyCombo{Key: "PrintScreen"}, blocked: true},
		{name: "plain letter", combo: KeyCombo{Key: "a"}, blocked: false},
		{name: "arrow key", combo: KeyCombo{Key: "ArrowDown"}, blocked: false},
		{name: "shift only", combo: KeyCombo{Key: "c", Shift: true}, blocked: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, src, sink := startedMonitor(t)
			src.keyboard(tc.combo)
			got := sink.all()
			if tc.blocked && (len(got) != 1 || got[0] != ViolationBlockedShortcut) {
				t.Fatalf("expected blocked-shortcut, got %v", got)
			}
			if !tc.blocked && len(got) != 0 {
				t.Fatalf("allowed combo raised %v", got)
			}
		})
	}
}

func TestMonitor_PrintScreenTriggersBlackout(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	sink := &violationSink{}
	blackouts := 0
	m := NewMonitor(clock, DefaultIdleThreshold, sink.record, func() { blackouts++ }, testLogger())
	m.Start(src)
	defer m.Stop()

	src.keyboard(KeyCombo{Key: "PrintScreen"})

	if blackouts != 1 {
		t.Fatalf("blackout hook fired %d times", blackouts)
	}
	if got := sink.all(); len(got) != 1 || got[0] != ViolationBlockedShortcut {
		t.Fatalf("print screen violation: %v", got)
	}
}

func TestMonitor_PrintAttempt(t *testing.T) {
	_, _, src, sink := startedMonitor(t)
	src.print()
	if got := sink.all(); len(got) != 1 || got[0] != ViolationPrintAttempt {
		t.Fatalf("got %v", got)
	}
}

func TestMonitor_FullscreenExit(t *testing.T) {
	_, _, src, sink := startedMonitor(t)

	src.fullscreen(true)
	if len(sink.all()) != 0 {
		t.Fatal("entering fullscreen counted as a violation")
	}

	src.fullscreen(false)
	if got := sink.all(); len(got) != 1 || got[0] != ViolationFullscreenExited {
		t.Fatalf("got %v", got)
	}
}

func TestMonitor_DevToolsHeuristic(t *testing.T) {
	m, _, src, sink := startedMonitor(t)

	// No sample yet: the poll is a no-op.
	m.checkDevTools()
	if len(sink.all()) != 0 {
		t.Fatal("poll fired without a metrics sample")
	}

	// Delta within threshold.
	src.metrics(WindowMetrics{InnerWidth: 1720, InnerHeight: 980, OuterWidth: 1920, OuterHeight: 1080})
	m.checkDevTools()
	if len(sink.all()) != 0 {
		t.Fatalf("delta under threshold fired: %v", sink.all())
	}

	// Horizontal delta over 200px: a docked dev-tools pane.
	src.metrics(WindowMetrics{InnerWidth: 1600, InnerHeight: 1080, OuterWidth: 1920, OuterHeight: 1080})
	m.checkDevTools()
	if got := sink.all(); len(got) != 1 || got[0] != ViolationDevToolsSuspected {
		t.Fatalf("got %v", got)
	}

	// The heuristic keeps firing on each poll while the pane stays open.
	m.checkDevTools()
	if len(sink.all()) != 2 {
		t.Fatalf("repeat poll did not fire: %v", sink.all())
	}
}

func TestMonitor_IdleCheck(t *testing.T) {
	m, clock, src, sink := startedMonitor(t)

	clock.Advance(170 * time.Second)
	m.checkIdle()
	if len(sink.all()) != 0 {
		t.Fatal("idle fired before the threshold")
	}

	clock.Advance(20 * time.Second)
	m.checkIdle()
	if got := sink.all(); len(got) != 1 || got[0] != ViolationIdleTimeout {
		t.Fatalf("got %v", got)
	}

	// The activity clock resets after firing, so continued silence fires
	// again only after another full threshold.
	clock.Advance(30 * time.Second)
	m.checkIdle()
	if len(sink.all()) != 1 {
		t.Fatalf("idle re-fired too early: %v", sink.all())
	}
	clock.Advance(DefaultIdleThreshold)
	m.checkIdle()
	if len(sink.all()) != 2 {
		t.Fatalf("idle did not re-fire after continued inactivity: %v", sink.all())
	}

	// Any activity resets the clock.
	clock.Advance(170 * time.Second)
	src.activity()
	clock.Advance(20 * time.Second)
	m.checkIdle()
	if len(sink.all()) != 2 {
		t.Fatalf("activity did not reset the idle clock: %v", sink.all())
	}
}

func TestMonitor_SignalsAfterStopAreDropped(t *testing.T) {
	m, _, src, sink := startedMonitor(t)
	m.Stop()

	src.ctxMenu()
	src.clipboard(ClipboardCopy)
	src.keyboard(KeyCombo{Key: "F12"})
	src.fullscreen(false)
	src.print()

	if got := sink.all(); len(got) != 0 {
		t.Fatalf("stopped monitor raised %v", got)
	}
}

func TestMonitor_SinkPanicIsContained(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	m := NewMonitor(clock, DefaultIdleThreshold, func(ViolationKind) { panic("sink broke") }, nil, testLogger())
	m.Start(src)
	defer m.Stop()

	// Must not panic out of the observer callback.
	src.ctxMenu()
}
