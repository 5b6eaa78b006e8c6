package proctor

import "fmt"

// ViolationKind identifies a discrete integrity signal raised by the monitor.
type ViolationKind string

const (
	ViolationVisibilityChange  ViolationKind = "visibility-change"
	ViolationDevToolsSuspected ViolationKind = "dev-tools-suspected"
	ViolationClipboardBlocked  ViolationKind = "clipboard-blocked"
	ViolationContextMenu       ViolationKind = "context-menu-blocked"
	ViolationFullscreenExited  ViolationKind = "fullscreen-exited"
	ViolationIdleTimeout       ViolationKind = "idle-timeout"
	ViolationPrintAttempt      ViolationKind = "print-attempt"
	ViolationBlockedShortcut   ViolationKind = "blocked-shortcut"
)

// Action is the outcome of evaluating one integrity event.
type Action string

const (
	ActionWarn        Action = "warn"
	ActionForceSubmit Action = "force-submit"
)

// WarningLevel escalates as the violation count approaches the limit.
type WarningLevel string

const (
	WarningNotice  WarningLevel = "notice"
	WarningSerious WarningLevel = "serious"
	WarningFinal   WarningLevel = "final"
)

// Decision is the result of applying the violation policy to one event.
type Decision struct {
	Count   int
	Action  Action
	Level   WarningLevel
	Message string
}

// Evaluate applies one integrity event against the current violation count.
// It is a pure function: replaying the same (count, kind) pair always yields
// the same decision, so it is unit-testable without timers or a session.
//
// Idle timeouts never increment the count and never force submission; every
// other kind increments by exactly one. Once the new count reaches
// maxViolations the decision is force-submit. A maxViolations of zero or
// less disables forced submission entirely (non-proctored tiers).
func Evaluate(count int, kind ViolationKind, maxViolations int) Decision {
	if kind == ViolationIdleTimeout {
		return Decision{
			Count:   count,
			Action:  ActionWarn,
			Level:   WarningNotice,
			Message: "Are you still there? The exam timer keeps running while you are away.",
		}
	}

	newCount := count + 1

	if maxViolations > 0 && newCount >= maxViolations {
		return Decision{
			Count:   newCount,
			Action:  ActionForceSubmit,
			Level:   WarningFinal,
			Message: "Violation limit reached. Your exam is being submitted automatically.",
		}
	}

	d := Decision{Count: newCount, Action: ActionWarn}
	remaining := maxViolations - newCount

	switch {
	case maxViolations <= 0:
		d.Level = WarningNotice
		d.Message = fmt.Sprintf("Integrity notice: %s detected.", kind)
	case newCount == 1:
		d.Level = WarningNotice
		d.Message = fmt.Sprintf("Integrity warning: %s detected. %d more violations will auto-submit your exam.", kind, remaining)
	case remaining == 1:
		d.Level = WarningFinal
		d.Message = "Final warning: one more violation will submit your exam automatically."
	default:
		d.Level = WarningSerious
		d.Message = fmt.Sprintf("Repeated violation (%s). %d more violations will auto-submit your exam.", kind, remaining)
	}

	return d
}
