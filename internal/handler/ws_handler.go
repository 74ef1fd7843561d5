package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/edustack/assess-backend/internal/middleware"
	"github.com/edustack/assess-backend/internal/service"
	"github.com/edustack/assess-backend/internal/session"
	ws "github.com/edustack/assess-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a timed attempt over WebSocket: autosave, submit,
// and state polling on one connection.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Upgrades to WebSocket for real-time autosave and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	owner, err := h.sessionService.Owner(attemptID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}
	if owner != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("taker_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Taker connected")

	for {
		var msg ws.AutosaveRequest
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, attemptID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, attemptID)
		case ws.ActionState:
			h.handleState(conn, attemptID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records one answer on the attempt.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, attemptID uuid.UUID, msg *ws.AutosaveRequest) {
	ctx := context.Background()

	if msg.QID == "" || msg.Answer == "" {
		ws.WriteError(conn, "q_id and ans are required")
		return
	}

	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.sessionService.RecordAnswer(ctx, attemptID, questionID, msg.Answer); err != nil {
		switch {
		case errors.Is(err, session.ErrAttemptExpired):
			ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventExpired, Submitted: true})
		case errors.Is(err, session.ErrUnknownQuestion):
			ws.WriteError(conn, "question does not belong to this attempt")
		default:
			ws.WriteError(conn, "save failed")
		}
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved"})
}

// handleSubmit finalizes the attempt and streams back the graded result.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID) {
	result, err := h.sessionService.Submit(context.Background(), attemptID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed")
		return
	}

	wsLog.Info().
		Float64("percentage", result.Percentage).
		Bool("passed", result.Passed).
		Msg("Attempt submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:      ws.EventGraded,
		Status:     "completed",
		Score:      result.Score,
		Percentage: result.Percentage,
		Passed:     result.Passed,
	})
}

// handleState sends the attempt snapshot, for timer resync on reconnect.
func (h *WSHandler) handleState(conn *websocket.Conn, attemptID uuid.UUID) {
	state, err := h.sessionService.State(attemptID)
	if err != nil {
		ws.WriteError(conn, "attempt not found")
		return
	}

	ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		RemainingSeconds: state.RemainingSeconds,
		Submitted:        state.Submitted,
		AnswerCount:      len(state.Answers),
	})
}
