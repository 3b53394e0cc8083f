package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/inworld-ai/demeanor-evaluator/pkg/validator"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	LiveKit   LiveKitConfig
	Groq      PipelineConfig
	Assembly  AssemblyAIConfig
	Storage   StorageConfig
	Evaluator EvaluatorConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080" validate:"required"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0" validate:"required"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"` // seconds, per teardown step
}

// LiveKitConfig holds LiveKit server and webhook configuration
type LiveKitConfig struct {
	URL           string `envconfig:"LIVEKIT_URL" default:"ws://localhost:7880"`
	APIKey        string `envconfig:"LIVEKIT_API_KEY"`
	APISecret     string `envconfig:"LIVEKIT_API_SECRET"`
	WebhookSecret string `envconfig:"LIVEKIT_WEBHOOK_SECRET"`
	UseMock       bool   `envconfig:"LIVEKIT_USE_MOCK" default:"false"`
	BotIdentity   string `envconfig:"LIVEKIT_BOT_IDENTITY" default:"demeanor-evaluator"`
}

// PipelineConfig holds the LLM analysis pipeline configuration
type PipelineConfig struct {
	APIKey      string `envconfig:"GROQ_API_KEY"`
	BaseURL     string `envconfig:"GROQ_API_URL" default:"https://api.groq.com"`
	TextModel   string `envconfig:"PIPELINE_TEXT_MODEL" default:"llama-3.1-70b-versatile"`
	VisionModel string `envconfig:"PIPELINE_VISION_MODEL" default:"llama-3.2-11b-vision-preview"`
}

// AssemblyAIConfig holds the optional realtime transcription fallback
type AssemblyAIConfig struct {
	APIKey     string `envconfig:"ASSEMBLYAI_API_KEY"`
	Enabled    bool   `envconfig:"ASSEMBLYAI_REALTIME_ENABLED" default:"false"`
	SampleRate int    `envconfig:"ASSEMBLYAI_SAMPLE_RATE" default:"16000"`
}

// StorageConfig holds frame sample storage configuration
type StorageConfig struct {
	Type            string `envconfig:"STORAGE_TYPE" default:"local" validate:"oneof=local minio"`
	LocalDir        string `envconfig:"STORAGE_LOCAL_DIR" default:"/tmp/demeanor-frames"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"demeanor-frames"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// EvaluatorConfig holds core evaluator tunables
type EvaluatorConfig struct {
	TranscriptCap     int `envconfig:"TRANSCRIPT_BUFFER_CAP" default:"50" validate:"gt=0"`
	VisualIntervalMs  int `envconfig:"VISUAL_SAMPLE_INTERVAL_MS" default:"5000" validate:"gt=0"`
	IngestQueueSize   int `envconfig:"INGEST_QUEUE_SIZE" default:"64" validate:"gt=0"`
	ViewerSendBuffer  int `envconfig:"VIEWER_SEND_BUFFER" default:"32" validate:"gt=0"`
	PipelineTimeoutMs int `envconfig:"PIPELINE_TIMEOUT_MS" default:"30000" validate:"gt=0"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration: validate tags first, then the
// conditional requirements the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.LiveKit.UseMock {
		if c.LiveKit.APIKey == "" {
			return fmt.Errorf("LIVEKIT_API_KEY is required")
		}
		if c.LiveKit.APISecret == "" {
			return fmt.Errorf("LIVEKIT_API_SECRET is required")
		}
	}
	if c.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.Assembly.Enabled && c.Assembly.APIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY is required when realtime transcription is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// ShutdownStepTimeout returns the per-step teardown deadline
func (c *Config) ShutdownStepTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// VisualInterval returns the minimum gap between visual samples per stream
func (c *Config) VisualInterval() time.Duration {
	return time.Duration(c.Evaluator.VisualIntervalMs) * time.Millisecond
}

// PipelineTimeout returns the deadline for one pipeline invocation
func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.Evaluator.PipelineTimeoutMs) * time.Millisecond
}
