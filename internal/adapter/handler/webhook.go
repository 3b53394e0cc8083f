package handler

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/webhook"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/errors"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/session"
	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// WebhookHandler receives LiveKit room lifecycle webhooks and translates
// them into session lifecycle events.
type WebhookHandler struct {
	sessions session.Service
	keys     auth.KeyProvider
	logger   *zap.Logger
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(sessions session.Service, cfg *config.LiveKitConfig, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		sessions: sessions,
		keys:     auth.NewSimpleKeyProvider(cfg.APIKey, cfg.APISecret),
		logger:   logger,
	}
}

// HandleLiveKitWebhook validates the webhook signature and routes room
// lifecycle events. Unknown event types are acknowledged and ignored so
// LiveKit does not retry them.
func (h *WebhookHandler) HandleLiveKitWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	// ReceiveWebhookEvent reads the body again for signature validation.
	c.Request().Body = io.NopCloser(bytes.NewReader(body))

	event, err := webhook.ReceiveWebhookEvent(c.Request(), h.keys)
	if err != nil {
		// Distinguish a garbled payload from a bad signature: validation
		// runs over the raw body, so invalid JSON fails there too.
		if !json.Valid(body) {
			return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
		}
		return HandleError(h.logger, c, errors.ErrWebhookUnauthorized(err))
	}

	switch event.Event {
	case "room_started":
		return h.handleRoomEvent(c, event.Room.GetName(), session.EventStarted)
	case "room_finished":
		return h.handleRoomEvent(c, event.Room.GetName(), session.EventStopped)
	default:
		h.logger.Info("ignoring webhook event", zap.String("event", event.Event))
		return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok"})
	}
}

func (h *WebhookHandler) handleRoomEvent(c echo.Context, roomName, lifecycle string) error {
	if roomName == "" {
		h.logger.Warn("webhook event missing room name", zap.String("lifecycle", lifecycle))
		return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok"})
	}

	if err := h.sessions.OnLifecycleEvent(c.Request().Context(), lifecycle, roomName); err != nil {
		// A failed start returns an error status so LiveKit retries the
		// webhook and the session gets another chance to join.
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok", "event": lifecycle})
}
