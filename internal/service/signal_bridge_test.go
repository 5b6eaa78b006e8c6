package service

import (
	"sync"
	"testing"

	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

func TestSignalBridgeDelivers(t *testing.T) {
	b := NewSignalBridge()

	var gotHidden []bool
	b.AttachVisibility(func(hidden bool) { gotHidden = append(gotHidden, hidden) })

	var gotCombo proctor.KeyCombo
	b.AttachKeyboard(func(combo proctor.KeyCombo) { gotCombo = combo })

	var gotOps []proctor.ClipboardOp
	b.AttachClipboard(func(op proctor.ClipboardOp) { gotOps = append(gotOps, op) })

	b.PushVisibility(true)
	b.PushVisibility(false)
	b.PushKeyboard(proctor.KeyCombo{Key: "c", Ctrl: true})
	b.PushClipboard(proctor.ClipboardCopy)
	b.PushClipboard(proctor.ClipboardPaste)

	if len(gotHidden) != 2 || !gotHidden[0] || gotHidden[1] {
		t.Errorf("visibility deliveries = %v, want [true false]", gotHidden)
	}
	if gotCombo.Key != "c" || !gotCombo.Ctrl {
		t.Errorf("keyboard delivery = %+v, want ctrl+c", gotCombo)
	}
	if len(gotOps) != 2 || gotOps[0] != proctor.ClipboardCopy || gotOps[1] != proctor.ClipboardPaste {
		t.Errorf("clipboard deliveries = %v", gotOps)
	}
}

func TestSignalBridgeDetachStopsDelivery(t *testing.T) {
	b := NewSignalBridge()

	calls := 0
	detach := b.AttachActivity(func() { calls++ })

	b.PushActivity()
	detach()
	b.PushActivity()

	if calls != 1 {
		t.Errorf("calls after detach = %d, want 1", calls)
	}
}

func TestSignalBridgeDetachIsPerHandler(t *testing.T) {
	b := NewSignalBridge()

	var first, second int
	detachFirst := b.AttachPrint(func() { first++ })
	b.AttachPrint(func() { second++ })

	detachFirst()
	b.PushPrint()

	if first != 0 {
		t.Errorf("detached handler called %d times", first)
	}
	if second != 1 {
		t.Errorf("remaining handler called %d times, want 1", second)
	}
}

// A handler must be able to detach itself (or a sibling) while a push is
// in flight without deadlocking.
func TestSignalBridgeDetachFromHandler(t *testing.T) {
	b := NewSignalBridge()

	var detach proctor.DetachFunc
	calls := 0
	detach = b.AttachDrag(func() {
		calls++
		detach()
	})

	b.PushDrag()
	b.PushDrag()

	if calls != 1 {
		t.Errorf("self-detaching handler called %d times, want 1", calls)
	}
}

func TestSignalBridgeConcurrentPush(t *testing.T) {
	b := NewSignalBridge()

	var mu sync.Mutex
	count := 0
	b.AttachActivity(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.PushActivity()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 800 {
		t.Errorf("concurrent deliveries = %d, want 800", count)
	}
}
