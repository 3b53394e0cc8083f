package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/broadcast"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/transcript"
)

func startViewerServer(t *testing.T) (*httptest.Server, *broadcast.Hub, *transcript.Store) {
	t.Helper()
	hub := broadcast.NewHub(8, zap.NewNop())
	buffers := transcript.NewStore(50)
	h := NewViewerHandler(hub, buffers, []string{"*"}, zap.NewNop())

	e := echo.New()
	e.GET("/ws", h.HandleWS)
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts, hub, buffers
}

func dialViewer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) entities.BroadcastEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var event entities.BroadcastEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return event
}

func TestViewer_ReceivesConnectedAck(t *testing.T) {
	ts, _, _ := startViewerServer(t)
	conn := dialViewer(t, ts)

	if event := readEvent(t, conn); event.Type != entities.EventConnected {
		t.Fatalf("expected connected ack, got %s", event.Type)
	}
}

func TestViewer_ReceivesBroadcasts(t *testing.T) {
	ts, hub, _ := startViewerServer(t)
	conn := dialViewer(t, ts)
	readEvent(t, conn) // connected ack

	hub.Broadcast(entities.NewMeetingStartedEvent("s1"))

	event := readEvent(t, conn)
	if event.Type != entities.EventMeetingStarted || event.StreamID != "s1" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestViewer_ClearHistory(t *testing.T) {
	ts, _, buffers := startViewerServer(t)
	buffers.Append("s1", "Alice", "hello", nil)

	conn := dialViewer(t, ts)
	readEvent(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"clear_history"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for buffers.Len("s1") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if buffers.Len("s1") != 0 {
		t.Fatal("expected history cleared")
	}
}

func TestViewer_MalformedMessageKeepsConnection(t *testing.T) {
	ts, hub, _ := startViewerServer(t)
	conn := dialViewer(t, ts)
	readEvent(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The connection survives and still receives broadcasts.
	time.Sleep(20 * time.Millisecond)
	hub.Broadcast(entities.NewMeetingStartedEvent("s1"))
	if event := readEvent(t, conn); event.Type != entities.EventMeetingStarted {
		t.Fatalf("expected broadcast after malformed message, got %s", event.Type)
	}
}

func TestViewer_DisconnectUnregisters(t *testing.T) {
	ts, hub, _ := startViewerServer(t)
	conn := dialViewer(t, ts)
	readEvent(t, conn)

	if hub.ViewerCount() != 1 {
		t.Fatalf("expected 1 viewer, got %d", hub.ViewerCount())
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ViewerCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ViewerCount() != 0 {
		t.Fatal("expected viewer unregistered after disconnect")
	}
}
