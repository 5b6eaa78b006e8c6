package service

import (
	"sync"

	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

// SignalBridge relays raw browser observations arriving over the
// candidate's WebSocket into the exam engine. It implements
// proctor.SignalSource: the integrity monitor attaches its handlers here,
// and the WebSocket handler pushes decoded signal frames through.
//
// Callbacks are invoked outside the bridge lock so a handler may detach
// (or tear the whole session down) without deadlocking.
type SignalBridge struct {
	mu     sync.Mutex
	nextID int

	visibility  map[int]func(hidden bool)
	keyboard    map[int]func(combo proctor.KeyCombo)
	clipboard   map[int]func(op proctor.ClipboardOp)
	contextMenu map[int]func()
	drag        map[int]func()
	selection   map[int]func(inFormInput bool)
	window      map[int]func(m proctor.WindowMetrics)
	activity    map[int]func()
	fullscreen  map[int]func(active bool)
	print       map[int]func()
}

// NewSignalBridge creates an empty SignalBridge.
func NewSignalBridge() *SignalBridge {
	return &SignalBridge{
		visibility:  make(map[int]func(bool)),
		keyboard:    make(map[int]func(proctor.KeyCombo)),
		clipboard:   make(map[int]func(proctor.ClipboardOp)),
		contextMenu: make(map[int]func()),
		drag:        make(map[int]func()),
		selection:   make(map[int]func(bool)),
		window:      make(map[int]func(proctor.WindowMetrics)),
		activity:    make(map[int]func()),
		fullscreen:  make(map[int]func(bool)),
		print:       make(map[int]func()),
	}
}

func register[F any](b *SignalBridge, reg map[int]F, fn F) proctor.DetachFunc {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	reg[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(reg, id)
		b.mu.Unlock()
	}
}

func snapshot[F any](b *SignalBridge, reg map[int]F) []F {
	b.mu.Lock()
	fns := make([]F, 0, len(reg))
	for _, fn := range reg {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	return fns
}

// ─── proctor.SignalSource ───────────────────────────────────────────

func (b *SignalBridge) AttachVisibility(fn func(hidden bool)) proctor.DetachFunc {
	return register(b, b.visibility, fn)
}

func (b *SignalBridge) AttachKeyboard(fn func(combo proctor.KeyCombo)) proctor.DetachFunc {
	return register(b, b.keyboard, fn)
}

func (b *SignalBridge) AttachClipboard(fn func(op proctor.ClipboardOp)) proctor.DetachFunc {
	return register(b, b.clipboard, fn)
}

func (b *SignalBridge) AttachContextMenu(fn func()) proctor.DetachFunc {
	return register(b, b.contextMenu, fn)
}

func (b *SignalBridge) AttachDrag(fn func()) proctor.DetachFunc {
	return register(b, b.drag, fn)
}

func (b *SignalBridge) AttachSelection(fn func(inFormInput bool)) proctor.DetachFunc {
	return register(b, b.selection, fn)
}

func (b *SignalBridge) AttachWindowMetrics(fn func(m proctor.WindowMetrics)) proctor.DetachFunc {
	return register(b, b.window, fn)
}

func (b *SignalBridge) AttachActivity(fn func()) proctor.DetachFunc {
	return register(b, b.activity, fn)
}

func (b *SignalBridge) AttachFullscreen(fn func(active bool)) proctor.DetachFunc {
	return register(b, b.fullscreen, fn)
}

func (b *SignalBridge) AttachPrint(fn func()) proctor.DetachFunc {
	return register(b, b.print, fn)
}

// ─── Push side (WebSocket handler) ──────────────────────────────────

func (b *SignalBridge) PushVisibility(hidden bool) {
	for _, fn := range snapshot(b, b.visibility) {
		fn(hidden)
	}
}

func (b *SignalBridge) PushKeyboard(combo proctor.KeyCombo) {
	for _, fn := range snapshot(b, b.keyboard) {
		fn(combo)
	}
}

func (b *SignalBridge) PushClipboard(op proctor.ClipboardOp) {
	for _, fn := range snapshot(b, b.clipboard) {
		fn(op)
	}
}

func (b *SignalBridge) PushContextMenu() {
	for _, fn := range snapshot(b, b.contextMenu) {
		fn()
	}
}

func (b *SignalBridge) PushDrag() {
	for _, fn := range snapshot(b, b.drag) {
		fn()
	}
}

func (b *SignalBridge) PushSelection(inFormInput bool) {
	for _, fn := range snapshot(b, b.selection) {
		fn(inFormInput)
	}
}

func (b *SignalBridge) PushWindowMetrics(m proctor.WindowMetrics) {
	for _, fn := range snapshot(b, b.window) {
		fn(m)
	}
}

func (b *SignalBridge) PushActivity() {
	for _, fn := range snapshot(b, b.activity) {
		fn()
	}
}

func (b *SignalBridge) PushFullscreen(active bool) {
	for _, fn := range snapshot(b, b.fullscreen) {
		fn(active)
	}
}

func (b *SignalBridge) PushPrint() {
	for _, fn := range snapshot(b, b.print) {
		fn()
	}
}
