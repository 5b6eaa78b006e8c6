package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/prepnotes/mocktest-backend/internal/middleware"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	ws "github.com/prepnotes/mocktest-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// WSHandler owns the exam WebSocket: one connection per running attempt,
// carrying answers, submit requests, and raw browser signals upstream,
// and engine events (phase, countdown, warnings, grade) downstream.
type WSHandler struct {
	proctorService *service.ProctorService
	upgrader       gorilla.Upgrader
	log            zerolog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(proctorService *service.ProctorService, allowedOrigins []string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		proctorService: proctorService,
		upgrader:       buildUpgrader(allowedOrigins),
		log:            log.With().Str("component", "ws_handler").Logger(),
	}
}

func buildUpgrader(allowedOrigins []string) gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// HandleExam godoc
// GET /ws/v1/portal/products/:product_id/exam
// Upgrades to WebSocket, starts (or resumes) the proctored attempt, and
// runs the bidirectional exam stream until the attempt finishes or the
// client disconnects.
func (h *WSHandler) HandleExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// The attempt starts via the REST endpoint first; the socket only
	// attaches to a session that already exists, or resumes one after a
	// disconnect. A fresh begin over the socket fails the details check
	// inside the engine, so it surfaces as "attempt not running".
	sess, ok := h.proctorService.Session(productID, claims.UserID)
	if !ok {
		var req model.StartAttemptRequest
		sess, err = h.proctorService.StartAttempt(c.Request.Context(), productID, claims.UserID, &req)
		if err != nil {
			code := response.ErrInternal
			status := http.StatusInternalServerError
			var ve govalidator.ValidationErrors
			switch {
			case errors.Is(err, service.ErrNotEntitled):
				code, status = response.ErrNotEntitled, http.StatusForbidden
			case errors.Is(err, service.ErrProductNotPublished):
				code, status = response.ErrProductNotPublished, http.StatusConflict
			case errors.Is(err, service.ErrAttemptFinished):
				code, status = response.ErrAttemptCompleted, http.StatusConflict
			case errors.Is(err, service.ErrNoQuestions):
				code, status = response.ErrNoQuestions, http.StatusConflict
			case errors.As(err, &ve):
				code, status = response.ErrAttemptNotRunning, http.StatusConflict
			}
			response.Fail(c, status, code)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Int("candidate_id", claims.UserID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().
		Int("candidate_id", claims.UserID).
		Str("product_id", productID.String()).
		Logger()
	log.Info().Msg("exam stream connected")

	done := make(chan struct{})
	go h.pumpEvents(conn, sess, done, log)
	defer close(done)

	// Tell the freshly connected client where the attempt stands.
	_ = ws.WriteTyped(conn, ws.PhaseEvent{
		Event: ws.EventPhase,
		Phase: string(sess.Controller.Phase()),
	})

	h.readLoop(c, conn, sess, log)
	log.Info().Msg("exam stream disconnected")
}

// pumpEvents drains the session's event channel into WebSocket frames.
// It exits when the connection closes or the session is finalized.
func (h *WSHandler) pumpEvents(conn *gorilla.Conn, sess *service.LiveSession, done <-chan struct{}, log zerolog.Logger) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sess.Events:
			if !ok {
				return
			}
			if err := h.writeEvent(conn, ev); err != nil {
				log.Debug().Err(err).Msg("event write failed, client likely gone")
				return
			}
		}
	}
}

func (h *WSHandler) writeEvent(conn *gorilla.Conn, ev service.ProctorEvent) error {
	switch ev.Kind {
	case service.EventPhase:
		return ws.WriteTyped(conn, ws.PhaseEvent{
			Event:  ws.EventPhase,
			Phase:  string(ev.Phase),
			Reason: string(ev.Reason),
		})
	case service.EventRemaining:
		return ws.WriteTyped(conn, ws.RemainingEvent{
			Event:   ws.EventRemaining,
			Seconds: ev.RemainingSeconds,
		})
	case service.EventWarning:
		return ws.WriteTyped(conn, ws.WarningEvent{
			Event:   ws.EventWarning,
			Kind:    string(ev.Warning.Kind),
			Level:   string(ev.Warning.Level),
			Message: ev.Warning.Message,
			Count:   ev.Warning.Count,
		})
	case service.EventGraded:
		return ws.WriteTyped(conn, ws.GradedEvent{
			Event:      ws.EventGraded,
			Reason:     string(ev.Summary.Reason),
			RawScore:   ev.Summary.Result.RawScore,
			MaxScore:   ev.Summary.Result.MaxScore,
			Percentage: ev.Summary.Result.Percentage,
			Passed:     ev.Summary.Result.Passed,
			PerSection: ev.Summary.Result.PerSection,
		})
	case service.EventBlackout:
		return ws.WriteTyped(conn, ws.BlackoutEvent{Event: ws.EventBlackout})
	}
	return nil
}

func (h *WSHandler) readLoop(c *gin.Context, conn *gorilla.Conn, sess *service.LiveSession, log zerolog.Logger) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure) {
				log.Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			_ = ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c, conn, sess, raw)
		case ws.ActionSubmit:
			h.proctorService.Submit(sess)
		case ws.ActionSignal:
			h.handleSignal(conn, sess, raw)
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			_ = ws.WriteError(conn, "unknown action")
		}
	}
}

func (h *WSHandler) handleAnswer(c *gin.Context, conn *gorilla.Conn, sess *service.LiveSession, raw []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.QuestionID == "" {
		_ = ws.WriteError(conn, "malformed answer")
		return
	}

	if err := h.proctorService.Answer(c.Request.Context(), sess, req.QuestionID, req.Option); err != nil {
		_ = ws.WriteError(conn, err.Error())
		return
	}
	_ = ws.WriteTyped(conn, ws.AnswerResponse{Event: ws.EventSuccess, Status: "saved"})
}

// handleSignal forwards one raw browser observation to the integrity
// monitor. Classification happens engine-side; the client just reports.
func (h *WSHandler) handleSignal(conn *gorilla.Conn, sess *service.LiveSession, raw []byte) {
	var req ws.SignalRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = ws.WriteError(conn, "malformed signal")
		return
	}

	switch req.Kind {
	case ws.SignalVisibility:
		sess.Bridge.PushVisibility(req.Hidden)
	case ws.SignalKeydown:
		if req.Key != nil {
			sess.Bridge.PushKeyboard(*req.Key)
		}
	case ws.SignalClipboard:
		sess.Bridge.PushClipboard(proctor.ClipboardOp(req.ClipboardOp))
	case ws.SignalContext:
		sess.Bridge.PushContextMenu()
	case ws.SignalDrag:
		sess.Bridge.PushDrag()
	case ws.SignalSelection:
		sess.Bridge.PushSelection(req.InFormInput)
	case ws.SignalWindow:
		if req.Metrics != nil {
			sess.Bridge.PushWindowMetrics(*req.Metrics)
		}
	case ws.SignalActivity:
		sess.Bridge.PushActivity()
	case ws.SignalFullscreen:
		sess.Bridge.PushFullscreen(req.Fullscreen)
	case ws.SignalPrint:
		sess.Bridge.PushPrint()
	default:
		_ = ws.WriteError(conn, "unknown signal kind")
	}
}
