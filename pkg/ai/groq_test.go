package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

func sseHandler(t *testing.T, chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST got %s", r.Method)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestStreamChatCompletion_ChunkOrder(t *testing.T) {
	ts := httptest.NewServer(sseHandler(t, []string{"Pro", "fess", "ional."}))
	defer ts.Close()

	client := NewGroqClient(&config.PipelineConfig{APIKey: "test-key", BaseURL: ts.URL})
	stream, err := client.StreamChatCompletion(context.Background(), "test-model", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer stream.Close()

	var got string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv failed: %v", err)
		}
		got += chunk.Content
		if chunk.Done {
			break
		}
	}
	if got != "Professional." {
		t.Fatalf("unexpected accumulation %q", got)
	}
}

func TestStreamChatCompletion_DoneSentinel(t *testing.T) {
	ts := httptest.NewServer(sseHandler(t, nil))
	defer ts.Close()

	client := NewGroqClient(&config.PipelineConfig{APIKey: "test-key", BaseURL: ts.URL})
	stream, err := client.StreamChatCompletion(context.Background(), "test-model", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv failed: %v", err)
	}
	if !chunk.Done {
		t.Fatalf("expected terminal chunk, got %+v", chunk)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected EOF after done, got %v", err)
	}
}

func TestStreamChatCompletion_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewGroqClient(&config.PipelineConfig{APIKey: "test-key", BaseURL: ts.URL})
	if _, err := client.StreamChatCompletion(context.Background(), "test-model", nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
