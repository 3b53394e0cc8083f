package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		LiveKit: LiveKitConfig{
			APIKey:    "key",
			APISecret: "secret",
		},
		Groq:    PipelineConfig{APIKey: "groq-key"},
		Storage: StorageConfig{Type: "local"},
		Evaluator: EvaluatorConfig{
			TranscriptCap:     50,
			VisualIntervalMs:  5000,
			IngestQueueSize:   64,
			ViewerSendBuffer:  32,
			PipelineTimeoutMs: 30000,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingLiveKitCreds(t *testing.T) {
	cfg := validConfig()
	cfg.LiveKit.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing LiveKit key")
	}

	cfg = validConfig()
	cfg.LiveKit.APIKey = ""
	cfg.LiveKit.UseMock = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mock mode should not require LiveKit creds: %v", err)
	}
}

func TestValidate_TagViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Evaluator.TranscriptCap = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive transcript cap")
	}

	cfg = validConfig()
	cfg.Storage.Type = "s3"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown storage type")
	}

	cfg = validConfig()
	cfg.Server.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing port")
	}
}

func TestValidate_MissingGroqKey(t *testing.T) {
	cfg := validConfig()
	cfg.Groq.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing pipeline key")
	}
}

func TestValidate_AssemblyRequiresKeyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Assembly.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when realtime transcription enabled without key")
	}
	cfg.Assembly.APIKey = "aai-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ShutdownTimeout = 10
	if got := cfg.ShutdownStepTimeout(); got != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %s", got)
	}
	if got := cfg.VisualInterval(); got != 5*time.Second {
		t.Fatalf("unexpected visual interval %s", got)
	}
	if got := cfg.PipelineTimeout(); got != 30*time.Second {
		t.Fatalf("unexpected pipeline timeout %s", got)
	}
}

func TestAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = "8080"
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", got)
	}
}
