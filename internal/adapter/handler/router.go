package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/session"
	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	sessions       session.Service
	webhookHandler *WebhookHandler
	viewerHandler  *ViewerHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, sessions session.Service, webhookHandler *WebhookHandler, viewerHandler *ViewerHandler) *Router {
	return &Router{
		cfg:            cfg,
		sessions:       sessions,
		webhookHandler: webhookHandler,
		viewerHandler:  viewerHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	// Viewer websocket endpoint
	e.GET("/ws", rt.viewerHandler.HandleWS)

	// API v1 group
	v1 := e.Group("/v1")
	v1.POST("/webhooks/livekit", rt.webhookHandler.HandleLiveKitWebhook)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"environment":     rt.cfg.Server.Environment,
		"active_sessions": len(rt.sessions.ActiveStreams()),
	})
}
