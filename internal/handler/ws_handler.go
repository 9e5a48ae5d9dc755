package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/metrics"
	"github.com/stemsi/recruitment-portal/internal/middleware"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
	ws "github.com/stemsi/recruitment-portal/internal/websocket"
)

const tickInterval = time.Second

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

// WSHandler streams the live test session over a WebSocket.
type WSHandler struct {
	tests    *service.TestSessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(tests *service.TestSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		tests:    tests,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/candidate/session/stream
// Drives the countdown, tab-switch policy and auto-submit for one candidate.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	wsLog := h.log.With().Str("candidate_id", claims.UserID).Logger()
	wsLog.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	signals := make(chan service.HostSignal)
	go h.readLoop(ctx, cancel, conn, signals, wsLog)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	notify := &wsNotifier{conn: conn, cancel: cancel, log: wsLog}
	runner := h.tests.NewRunner(claims.UserID, notify)
	if err := runner.Run(ctx, signals, ticker.C); err != nil {
		wsLog.Debug().Err(err).Msg("Session stream ended")
		return
	}

	wsLog.Info().Str("phase", string(runner.State().Phase)).Msg("Session finished")
	ws.WriteClose(conn, string(runner.State().Phase))
}

// readLoop decodes client frames into host signals. It never writes to conn.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, signals chan<- service.HostSignal, wsLog zerolog.Logger) {
	defer cancel()
	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		select {
		case signals <- toSignal(msg):
		case <-ctx.Done():
			return
		}
	}
}

func toSignal(msg ws.Request) service.HostSignal {
	sig := service.HostSignal{
		Kind:       service.SignalKind(msg.Action),
		QuestionID: msg.QuestionID,
		Choice:     model.Unanswered,
	}
	if msg.Choice != nil {
		sig.Choice = *msg.Choice
	}
	return sig
}

// wsNotifier renders runner output as WebSocket events. Only the runner
// goroutine calls it.
type wsNotifier struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	log    zerolog.Logger
}

func (n *wsNotifier) write(v interface{}) {
	if err := ws.WriteTyped(n.conn, v); err != nil {
		n.log.Debug().Err(err).Msg("WebSocket write failed")
		n.cancel()
	}
}

func (n *wsNotifier) Tick(view model.SessionView) {
	n.write(ws.TickResponse{Event: ws.EventTick, Session: view})
}

func (n *wsNotifier) Warning(message string) {
	n.write(ws.MessageResponse{Event: ws.EventWarning, Message: message})
}

func (n *wsNotifier) WarningDismissed() {
	n.write(ws.MessageResponse{Event: ws.EventWarningDismissed})
}

func (n *wsNotifier) ConfirmLeave(message string) {
	n.write(ws.MessageResponse{Event: ws.EventConfirmLeave, Message: message})
}

func (n *wsNotifier) Cancelled(result *model.TestResult) {
	n.write(ws.ResultResponse{Event: ws.EventCancelled, Result: result})
}

func (n *wsNotifier) Submitted(result *model.TestResult) {
	n.write(ws.ResultResponse{Event: ws.EventSubmitted, Result: result})
}

func (n *wsNotifier) Error(err error) {
	n.write(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
}

func (n *wsNotifier) Pong() {
	n.write(ws.PongResponse{Event: ws.EventPong})
}
