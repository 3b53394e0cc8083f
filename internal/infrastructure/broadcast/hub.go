package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
)

// Conn is the subset of the websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// viewer is one registered websocket client with its buffered outbound queue.
// A single write pump per viewer serializes all writes to the connection.
type viewer struct {
	id   string
	conn Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
}

// Hub fans broadcast events out to all registered viewers. Slow or closed
// viewers never block a broadcast: events to viewers with a full queue are
// skipped, and a viewer is removed only when its connection fails or closes.
type Hub struct {
	logger     *zap.Logger
	sendBuffer int

	mu      sync.RWMutex
	viewers map[string]*viewer
}

// NewHub creates a hub whose viewers each get a send queue of the given size.
func NewHub(sendBuffer int, logger *zap.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Hub{
		logger:     logger,
		sendBuffer: sendBuffer,
		viewers:    make(map[string]*viewer),
	}
}

// Register adds a connection, starts its write pump, and acknowledges it
// with a connected event sent to that viewer only. Returns the viewer id.
func (h *Hub) Register(conn Conn) string {
	v := &viewer{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		quit: make(chan struct{}),
	}

	h.mu.Lock()
	h.viewers[v.id] = v
	h.mu.Unlock()

	go h.writePump(v)

	if payload, err := json.Marshal(entities.NewConnectedEvent()); err == nil {
		v.send <- payload
	}

	h.logger.Info("viewer connected", zap.String("viewer_id", v.id))
	return v.id
}

// Unregister removes a viewer and closes its connection. Safe to call more
// than once and concurrently with Broadcast.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	v, ok := h.viewers[id]
	if ok {
		delete(h.viewers, id)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	v.shutdown()
	h.logger.Info("viewer disconnected", zap.String("viewer_id", id))
}

// Broadcast serializes the event once and queues it to every ready viewer.
// Viewers whose queue is full are skipped for this event, not removed.
func (h *Hub) Broadcast(event entities.BroadcastEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.RUnlock()

	for _, v := range targets {
		select {
		case v.send <- payload:
		case <-v.quit:
		default:
			h.logger.Warn("viewer not ready, skipping event",
				zap.String("viewer_id", v.id),
				zap.String("type", string(event.Type)))
		}
	}
}

// CloseAll disconnects every viewer after draining their queued events.
// Used at shutdown, after the final server event has been broadcast.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.viewers = make(map[string]*viewer)
	h.mu.Unlock()

	for _, v := range targets {
		v.shutdown()
	}
}

// ViewerCount returns the number of registered viewers.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

func (h *Hub) writePump(v *viewer) {
	defer v.conn.Close()
	for {
		select {
		case payload := <-v.send:
			if err := v.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("viewer write failed", zap.String("viewer_id", v.id), zap.Error(err))
				h.Unregister(v.id)
				return
			}
		case <-v.quit:
			// Flush whatever was queued before the shutdown signal.
			for {
				select {
				case payload := <-v.send:
					if err := v.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// shutdown signals the write pump to flush and exit; the pump owns the
// connection and closes it on the way out.
func (v *viewer) shutdown() {
	v.once.Do(func() {
		close(v.quit)
	})
}
