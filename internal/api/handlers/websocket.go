package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/onnwee/paperscape-layout/internal/apierr"
	"github.com/onnwee/paperscape-layout/internal/logger"
	"github.com/onnwee/paperscape-layout/internal/metrics"
	"github.com/onnwee/paperscape-layout/internal/server"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware governs cross-origin policy; the websocket
		// upgrade itself allows any origin, matching the teacher's hub.
		return true
	},
}

// WebSocketMessage wraps every frame pushed to a layout-stream viewer.
type WebSocketMessage struct {
	Type    string      `json:"type"` // "frame", "error"
	Payload interface{} `json:"payload"`
}

// StreamHandler upgrades viewers to a websocket and forwards every Frame
// server.Engine's background simulation loop produces, adapted from the
// teacher's Hub/Client pattern (there: one hub fanning out graph-version
// diffs; here: one Engine subscription per connected client, since each
// viewer simply wants every frame rather than a diff against its own
// last-seen version).
type StreamHandler struct {
	engine *server.Engine
}

// NewStreamHandler wires a StreamHandler around a running Engine.
func NewStreamHandler(engine *server.Engine) *StreamHandler {
	return &StreamHandler{engine: engine}
}

// HandleStream handles GET /api/v1/layout/stream.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade to websocket", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("failed to establish websocket connection"))
		return
	}

	sub := h.engine.Subscribe()
	metrics.WebSocketConnections.Inc()
	logger.Info("layout stream viewer connected")

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump drains (and discards) client frames/pings so the connection's
// read deadline keeps advancing; layout-stream viewers are read-only.
func (h *StreamHandler) readPump(conn *websocket.Conn, sub chan server.Frame) {
	defer func() {
		h.engine.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("layout stream unexpected close", "error", err)
			}
			return
		}
	}
}

// writePump forwards Frames from the Engine subscription to the client
// and keeps the connection alive with periodic pings.
func (h *StreamHandler) writePump(conn *websocket.Conn, sub chan server.Frame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		metrics.WebSocketConnections.Dec()
		logger.Info("layout stream viewer disconnected")
	}()

	for {
		select {
		case frame, ok := <-sub:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg := WebSocketMessage{Type: "frame", Payload: frame}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("failed to marshal layout stream frame", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
