package livekit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/mediasource"
)

// mockSource simulates a joined stream for local development without a
// LiveKit deployment. It emits a short scripted conversation on a timer.
type mockSource struct {
	logger *zap.Logger

	mu    sync.Mutex
	stops map[string]chan struct{}
}

func newMockSource(logger *zap.Logger) *mockSource {
	return &mockSource{
		logger: logger,
		stops:  make(map[string]chan struct{}),
	}
}

var mockScript = []struct {
	speaker string
	text    string
}{
	{"Alice", "Thanks everyone for joining today."},
	{"Bob", "Happy to be here, let's get started."},
	{"Alice", "First up, the quarterly numbers look solid."},
	{"Bob", "Agreed, though support response times slipped a bit."},
	{"Alice", "Let's make that our focus for next sprint."},
}

func (m *mockSource) Join(_ context.Context, streamID string, handlers mediasource.Handlers) error {
	m.mu.Lock()
	if _, exists := m.stops[streamID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("already joined stream %s", streamID)
	}
	stop := make(chan struct{})
	m.stops[streamID] = stop
	m.mu.Unlock()

	m.logger.Info("mock source joined stream", zap.String("stream_id", streamID))

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if handlers.OnTranscript != nil {
					line := mockScript[i%len(mockScript)]
					handlers.OnTranscript(line.speaker, line.text, nil)
				}
				i++
			}
		}
	}()

	return nil
}

func (m *mockSource) Leave(_ context.Context, streamID string) error {
	m.mu.Lock()
	stop, ok := m.stops[streamID]
	if ok {
		delete(m.stops, streamID)
	}
	m.mu.Unlock()

	if ok {
		close(stop)
		m.logger.Info("mock source left stream", zap.String("stream_id", streamID))
	}
	return nil
}
