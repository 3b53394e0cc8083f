package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// GroqClient is a minimal client for Groq's OpenAI-compatible API, used to
// drive the streaming analysis pipelines.
type GroqClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.PipelineConfig) *GroqClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("GROQ_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	return &GroqClient{
		apiKey:  apiKey,
		baseURL: base,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
}

// streamChunk is a minimal shape for one SSE data event
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChatCompletion opens a streaming chat completion and returns the
// chunk iterator over its SSE body. The caller owns the stream and must
// drain or close it.
func (g *GroqClient) StreamChatCompletion(ctx context.Context, model string, messages interface{}) (ChunkStream, error) {
	reqBody := ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
		Stream:      true,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("groq returned status %d", resp.StatusCode)
	}

	return &sseStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

// CloseIdleConnections drops any keep-alive connections held by the client.
func (g *GroqClient) CloseIdleConnections() {
	g.client.CloseIdleConnections()
}

// sseStream adapts an SSE response body to the ChunkStream iterator.
// The "[DONE]" sentinel maps to the terminal Done chunk; events without
// recognized content yield empty chunks, which callers ignore.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *sseStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return Chunk{Done: true}, nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Unrecognized event payload: skip rather than fail the stream.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if fr := chunk.Choices[0].FinishReason; fr != nil && *fr != "" {
			s.done = true
			return Chunk{Content: chunk.Choices[0].Delta.Content, Done: true}, nil
		}
		return Chunk{Content: chunk.Choices[0].Delta.Content}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Chunk{}, err
	}
	s.done = true
	return Chunk{}, io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
