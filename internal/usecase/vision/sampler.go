package vision

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"sync"
	"time"

	_ "image/png"

	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/storage"
	"github.com/inworld-ai/demeanor-evaluator/pkg/ai"
)

// fallbackFeedback is broadcast when the vision model returns an empty result.
const fallbackFeedback = "You're on camera. Keep facing the lens and stay engaged."

// Broadcaster pushes events to all connected viewers.
type Broadcaster interface {
	Broadcast(event entities.BroadcastEvent)
}

// Service samples incoming video frames at a bounded rate and runs the
// visual analysis pipeline over the samples.
type Service interface {
	// OnFrame offers one decoded frame to the sampler. Frames arriving
	// inside the sampling interval are dropped. timestamp is the frame's
	// capture time in unix milliseconds.
	OnFrame(ctx context.Context, streamID string, frame []byte, timestamp int64)
	// Reset clears the sampling gate for a stream that ended.
	Reset(streamID string)
	// StopPipeline releases pipeline resources at shutdown.
	StopPipeline()
}

type service struct {
	pipeline    ai.Pipeline
	frames      storage.FrameStore
	broadcaster Broadcaster
	interval    time.Duration
	timeout     time.Duration
	logger      *zap.Logger

	mu         sync.Mutex
	lastSample map[string]time.Time

	wg sync.WaitGroup
}

// NewService creates the visual sampling service.
func NewService(pipeline ai.Pipeline, frames storage.FrameStore, broadcaster Broadcaster, interval, timeout time.Duration, logger *zap.Logger) Service {
	return &service{
		pipeline:    pipeline,
		frames:      frames,
		broadcaster: broadcaster,
		interval:    interval,
		timeout:     timeout,
		logger:      logger,
		lastSample:  make(map[string]time.Time),
	}
}

func (s *service) OnFrame(ctx context.Context, streamID string, frame []byte, timestamp int64) {
	if !s.admit(streamID) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.analyze(ctx, streamID, frame, timestamp)
	}()
}

// admit applies the per-stream sampling gate. The gate timestamp advances
// before any analysis work starts, so a slow pipeline run cannot let a
// burst of frames through.
func (s *service) admit(streamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if last, ok := s.lastSample[streamID]; ok && now.Sub(last) < s.interval {
		return false
	}
	s.lastSample[streamID] = now
	return true
}

// analyze normalizes the frame, persists it, and folds the visual pipeline
// over it. Every failure is logged and the cycle dropped; visual analysis
// never emits error events.
func (s *service) analyze(ctx context.Context, streamID string, frame []byte, timestamp int64) {
	encoded := s.normalizeJPEG(streamID, frame)

	if err := s.frames.SaveFrame(ctx, streamID, encoded); err != nil {
		s.logger.Warn("frame store write failed, dropping cycle", zap.String("stream_id", streamID), zap.Error(err))
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stream, err := s.pipeline.Start(runCtx, ai.EncodeFrameInput(encoded))
	if err != nil {
		s.logger.Warn("visual pipeline failed to start", zap.String("stream_id", streamID), zap.Error(err))
		return
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("visual pipeline stream failed", zap.String("stream_id", streamID), zap.Error(err))
			return
		}
		sb.WriteString(chunk.Content)
		if chunk.Done {
			break
		}
	}

	feedback := strings.TrimSpace(sb.String())
	if feedback == "" {
		feedback = fallbackFeedback
	}

	s.broadcaster.Broadcast(entities.NewVisualUpdateEvent(streamID, feedback, timestamp))
}

// normalizeJPEG re-encodes the frame as JPEG. Sources deliver a mix of
// formats; undecodable payloads pass through unchanged on the assumption
// they are already JPEG.
func (s *service) normalizeJPEG(streamID string, frame []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		s.logger.Debug("frame not decodable, passing through", zap.String("stream_id", streamID), zap.Error(err))
		return frame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		s.logger.Warn("jpeg encode failed, passing original frame", zap.String("stream_id", streamID), zap.Error(err))
		return frame
	}
	return buf.Bytes()
}

func (s *service) Reset(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastSample, streamID)
}

func (s *service) StopPipeline() {
	s.wg.Wait()
	s.pipeline.Stop()
}
