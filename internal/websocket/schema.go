package websocket

import (
	"github.com/prepnotes/mocktest-backend/internal/proctor"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionSignal Action = "signal"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest is sent by the client to record a single answer. A
// negative option clears the answer.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"q_id"`
	Option     int    `json:"option"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Browser signals (Client → Server) ──────────────────────────────

// SignalKind identifies which raw browser observation is being reported.
type SignalKind string

const (
	SignalVisibility SignalKind = "visibility"
	SignalKeydown    SignalKind = "keydown"
	SignalClipboard  SignalKind = "clipboard"
	SignalContext    SignalKind = "contextmenu"
	SignalDrag       SignalKind = "drag"
	SignalSelection  SignalKind = "selection"
	SignalWindow     SignalKind = "window"
	SignalActivity   SignalKind = "activity"
	SignalFullscreen SignalKind = "fullscreen"
	SignalPrint      SignalKind = "print"
)

// SignalRequest carries one raw browser observation. Only the fields
// matching the signal kind are populated; the rest stay zero.
type SignalRequest struct {
	Action Action     `json:"action"`
	Kind   SignalKind `json:"kind"`

	Hidden      bool                   `json:"hidden,omitempty"`       // visibility
	Key         *proctor.KeyCombo      `json:"key,omitempty"`          // keydown
	ClipboardOp string                 `json:"clipboard_op,omitempty"` // clipboard: copy, cut, paste
	InFormInput bool                   `json:"in_form_input,omitempty"`
	Metrics     *proctor.WindowMetrics `json:"metrics,omitempty"` // window
	Fullscreen  bool                   `json:"fullscreen,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSuccess   Event = "success"
	EventPhase     Event = "phase"
	EventRemaining Event = "remaining"
	EventWarning   Event = "warning"
	EventGraded    Event = "graded"
	EventBlackout  Event = "blackout"
	EventPong      Event = "pong"
)

type AnswerResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// PhaseEvent announces a lifecycle transition of the attempt.
type PhaseEvent struct {
	Event  Event  `json:"event"`
	Phase  string `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

// RemainingEvent publishes the countdown, once per second.
type RemainingEvent struct {
	Event   Event   `json:"event"`
	Seconds float64 `json:"seconds"`
}

// WarningEvent pushes an integrity warning banner to the exam UI.
type WarningEvent struct {
	Event   Event  `json:"event"`
	Kind    string `json:"kind"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// GradedEvent delivers the final result after submission.
type GradedEvent struct {
	Event      Event                  `json:"event"`
	Reason     string                 `json:"reason"`
	RawScore   int                    `json:"raw_score"`
	MaxScore   int                    `json:"max_score"`
	Percentage float64                `json:"percentage"`
	Passed     bool                   `json:"passed"`
	PerSection []proctor.SectionScore `json:"per_section"`
}

// BlackoutEvent tells the exam UI to cover the screen briefly.
type BlackoutEvent struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
