package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/broadcast"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/transcript"
)

// viewerMessage is the control message shape viewers may send.
type viewerMessage struct {
	Type string `json:"type"`
}

// ViewerHandler upgrades viewer connections and feeds them into the hub.
type ViewerHandler struct {
	hub      *broadcast.Hub
	buffers  *transcript.Store
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewViewerHandler creates the websocket viewer handler. allowedOrigins
// gates the upgrade handshake; an entry of "*" allows any origin.
func NewViewerHandler(hub *broadcast.Hub, buffers *transcript.Store, allowedOrigins []string, logger *zap.Logger) *ViewerHandler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &ViewerHandler{
		hub:     hub,
		buffers: buffers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		logger: logger,
	}
}

// HandleWS upgrades the connection, registers the viewer, and runs its read
// loop until the connection drops.
func (h *ViewerHandler) HandleWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil // Upgrade already wrote the HTTP error response.
	}

	id := h.hub.Register(conn)
	h.readPump(id, conn)
	return nil
}

// readPump consumes viewer control messages. Malformed messages are logged
// and skipped; only a read error ends the connection.
func (h *ViewerHandler) readPump(id string, conn *websocket.Conn) {
	defer h.hub.Unregister(id)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("viewer read error", zap.String("viewer_id", id), zap.Error(err))
			}
			return
		}

		var msg viewerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn("malformed viewer message", zap.String("viewer_id", id), zap.Error(err))
			continue
		}

		switch msg.Type {
		case "clear_history":
			// Fire-and-forget: no acknowledgement is sent.
			h.buffers.ClearAll()
			h.logger.Info("transcript history cleared by viewer", zap.String("viewer_id", id))
		default:
			h.logger.Warn("unknown viewer message type",
				zap.String("viewer_id", id),
				zap.String("type", msg.Type))
		}
	}
}
