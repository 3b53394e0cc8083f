package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/livekit/protocol/auth"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

const (
	testAPIKey    = "devkey"
	testAPISecret = "secret-at-least-32-characters-long!!"
)

type fakeSessionService struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeSessionService) OnLifecycleEvent(_ context.Context, event, streamID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event+":"+streamID)
	return nil
}

func (f *fakeSessionService) ActiveStreams() []string { return nil }

func (f *fakeSessionService) StopAll(_ context.Context) {}

func (f *fakeSessionService) SetFatalHandler(_ func(string)) {}

func (f *fakeSessionService) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func signWebhook(t *testing.T, body []byte) string {
	t.Helper()
	sum := sha256.Sum256(body)
	token, err := auth.NewAccessToken(testAPIKey, testAPISecret).
		SetSha256(base64.StdEncoding.EncodeToString(sum[:])).
		ToJWT()
	if err != nil {
		t.Fatalf("failed to sign webhook: %v", err)
	}
	return token
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, authToken string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/livekit", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/webhook+json")
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleLiveKitWebhook(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func newWebhookHandler(sessions *fakeSessionService) *WebhookHandler {
	cfg := &config.LiveKitConfig{APIKey: testAPIKey, APISecret: testAPISecret}
	return NewWebhookHandler(sessions, cfg, zap.NewNop())
}

func TestWebhook_RoomStarted(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event":"room_started","room":{"name":"meeting-42"}}`)
	rec := postWebhook(t, h, body, signWebhook(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := sessions.received()
	if len(got) != 1 || got[0] != "started:meeting-42" {
		t.Fatalf("unexpected lifecycle events %v", got)
	}
}

func TestWebhook_RoomFinished(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event":"room_finished","room":{"name":"meeting-42"}}`)
	rec := postWebhook(t, h, body, signWebhook(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := sessions.received()
	if len(got) != 1 || got[0] != "stopped:meeting-42" {
		t.Fatalf("unexpected lifecycle events %v", got)
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event":"room_started","room":{"name":"meeting-42"}}`)
	// Sign a different body so the digest does not match.
	rec := postWebhook(t, h, body, signWebhook(t, []byte(`{"event":"tampered"}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(sessions.received()) != 0 {
		t.Fatal("unauthorized webhook must not reach the session service")
	}
}

func TestWebhook_MissingAuthHeader(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event":"room_started","room":{"name":"meeting-42"}}`)
	rec := postWebhook(t, h, body, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event": truncated`)
	rec := postWebhook(t, h, body, signWebhook(t, body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	sessions := &fakeSessionService{}
	h := newWebhookHandler(sessions)

	body := []byte(`{"event":"participant_joined","room":{"name":"meeting-42"}}`)
	rec := postWebhook(t, h, body, signWebhook(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sessions.received()) != 0 {
		t.Fatal("unknown events must not produce lifecycle calls")
	}
}
