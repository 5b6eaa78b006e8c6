package proctor

import "testing"

func TestEvaluate_IdleNeverCountsOrForces(t *testing.T) {
	for count := 0; count < 20; count++ {
		d := Evaluate(count, ViolationIdleTimeout, 5)
		if d.Count != count {
			t.Fatalf("idle incremented count: got %d, want %d", d.Count, count)
		}
		if d.Action != ActionWarn {
			t.Fatalf("idle produced action %s at count %d", d.Action, count)
		}
	}
}

func TestEvaluate_CountIsMonotone(t *testing.T) {
	kinds := []ViolationKind{
		ViolationVisibilityChange,
		ViolationDevToolsSuspected,
		ViolationClipboardBlocked,
		ViolationContextMenu,
		ViolationFullscreenExited,
		ViolationPrintAttempt,
		ViolationBlockedShortcut,
	}

	count := 0
	for i, k := range kinds {
		d := Evaluate(count, k, 100)
		if d.Count != count+1 {
			t.Fatalf("event %d (%s): got count %d, want %d", i, k, d.Count, count+1)
		}
		count = d.Count
	}
}

func TestEvaluate_Threshold(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		kind   ViolationKind
		max    int
		action Action
		level  WarningLevel
	}{
		{name: "first violation warns", count: 0, kind: ViolationBlockedShortcut, max: 5, action: ActionWarn, level: WarningNotice},
		{name: "mid-range warns seriously", count: 1, kind: ViolationVisibilityChange, max: 5, action: ActionWarn, level: WarningSerious},
		{name: "penultimate is final warning", count: 3, kind: ViolationClipboardBlocked, max: 5, action: ActionWarn, level: WarningFinal},
		{name: "reaching max forces submit", count: 4, kind: ViolationDevToolsSuspected, max: 5, action: ActionForceSubmit, level: WarningFinal},
		{name: "past max still forces", count: 9, kind: ViolationContextMenu, max: 5, action: ActionForceSubmit, level: WarningFinal},
		{name: "max one forces immediately", count: 0, kind: ViolationFullscreenExited, max: 1, action: ActionForceSubmit, level: WarningFinal},
		{name: "zero max never forces", count: 50, kind: ViolationPrintAttempt, max: 0, action: ActionWarn, level: WarningNotice},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(tc.count, tc.kind, tc.max)
			if d.Action != tc.action {
				t.Fatalf("action: got %s, want %s", d.Action, tc.action)
			}
			if d.Level != tc.level {
				t.Fatalf("level: got %s, want %s", d.Level, tc.level)
			}
			if tc.kind != ViolationIdleTimeout && d.Count != tc.count+1 {
				t.Fatalf("count: got %d, want %d", d.Count, tc.count+1)
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	a := Evaluate(3, ViolationBlockedShortcut, 5)
	b := Evaluate(3, ViolationBlockedShortcut, 5)
	if a != b {
		t.Fatalf("same inputs produced different decisions: %+v vs %+v", a, b)
	}
}
