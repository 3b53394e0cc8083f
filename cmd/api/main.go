package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/inworld-ai/demeanor-evaluator/internal/adapter/handler"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/broadcast"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/external/livekit"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/storage"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/evaluation"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/session"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/shutdown"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/transcript"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/vision"
	"github.com/inworld-ai/demeanor-evaluator/pkg/ai"
	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
	pkgvalidator "github.com/inworld-ai/demeanor-evaluator/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	log.Println("🔧 Initializing dependencies...")

	// Frame storage
	frameStore, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize frame storage: %v", err)
	}

	// Analysis pipelines
	log.Println("🤖 Initializing analysis pipelines...")
	groqClient := ai.NewGroqClient(&cfg.Groq)
	guidancePipeline := ai.NewGuidancePipeline(groqClient, &cfg.Groq)
	scoringPipeline := ai.NewScoringPipeline(groqClient, &cfg.Groq)
	visualPipeline := ai.NewVisualPipeline(groqClient, &cfg.Groq)

	// Viewer broadcast hub
	hub := broadcast.NewHub(cfg.Evaluator.ViewerSendBuffer, logger)

	// Transcript buffers
	buffers := transcript.NewStore(cfg.Evaluator.TranscriptCap)

	// Core services
	evaluationService := evaluation.NewService(guidancePipeline, scoringPipeline, hub, cfg.PipelineTimeout(), logger)
	visionService := vision.NewService(visualPipeline, frameStore, hub, cfg.VisualInterval(), cfg.PipelineTimeout(), logger)

	// Media source
	log.Println("🎥 Initializing media source...")
	source := livekit.NewSource(&cfg.LiveKit, logger)
	if cfg.LiveKit.UseMock {
		log.Println("⚠️  Media source running in MOCK mode (no real server needed)")
	} else {
		log.Printf("✅ Media source connected to: %s", cfg.LiveKit.URL)
	}

	sessionService := session.NewService(
		source,
		buffers,
		evaluationService,
		visionService,
		hub,
		&cfg.Assembly,
		cfg.Evaluator.IngestQueueSize,
		logger,
	)

	// Shutdown orchestrator
	orchestrator := shutdown.NewOrchestrator(
		hub,
		sessionService,
		evaluationService,
		visionService,
		buffers,
		e,
		cfg.ShutdownStepTimeout(),
		logger,
	)
	sessionService.SetFatalHandler(func(reason string) {
		go orchestrator.Shutdown(reason)
	})

	// Handlers and routes
	log.Println("🛣️  Setting up routes...")
	webhookHandler := handler.NewWebhookHandler(sessionService, &cfg.LiveKit, logger)
	viewerHandler := handler.NewViewerHandler(hub, buffers, cfg.Server.AllowedOrigins, logger)
	router := handler.NewRouter(cfg, sessionService, webhookHandler, viewerHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := cfg.Addr()
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	orchestrator.Shutdown(sig.String())
}
