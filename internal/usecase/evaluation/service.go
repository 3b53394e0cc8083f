package evaluation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
	"github.com/inworld-ai/demeanor-evaluator/pkg/ai"
)

// Guidance fallbacks. The empty-history message invites the speaker to talk;
// the error fallback keeps the viewer feed alive when a pipeline run fails.
const (
	emptyHistoryGuidance = "Start speaking and live coaching will appear here."
	fallbackGuidance     = "Keep going. Stay clear, warm and helpful."
)

// Broadcaster pushes events to all connected viewers.
type Broadcaster interface {
	Broadcast(event entities.BroadcastEvent)
}

// Service runs one guidance+scoring evaluation cycle per transcript entry
// and publishes the combined result.
type Service interface {
	Evaluate(ctx context.Context, streamID string, entry entities.TranscriptEntry, history []entities.TranscriptEntry)
	StopPipelines()
}

type service struct {
	guidance    ai.Pipeline
	scoring     ai.Pipeline
	broadcaster Broadcaster
	timeout     time.Duration
	logger      *zap.Logger
}

// NewService creates the evaluation service.
func NewService(guidance, scoring ai.Pipeline, broadcaster Broadcaster, timeout time.Duration, logger *zap.Logger) Service {
	return &service{
		guidance:    guidance,
		scoring:     scoring,
		broadcaster: broadcaster,
		timeout:     timeout,
		logger:      logger,
	}
}

// Evaluate folds one guidance run and one scoring run over the buffered
// transcript and broadcasts a single combined update. Pipeline failures never
// propagate to the caller: each dimension independently degrades to its
// fallback value and the event carries an error marker instead.
func (s *service) Evaluate(ctx context.Context, streamID string, entry entities.TranscriptEntry, history []entities.TranscriptEntry) {
	if len(history) == 0 {
		// Nothing to analyze yet; answer with neutral defaults without
		// invoking either pipeline.
		s.broadcaster.Broadcast(entities.NewEvaluationUpdateEvent(streamID, entry, emptyHistoryGuidance, entities.DefaultScores(), false))
		return
	}

	input := renderHistory(history)

	var (
		wg       sync.WaitGroup
		guidance string
		scores   entities.EvaluationScores
		failed   bool
		mu       sync.Mutex
	)

	markFailed := func() {
		mu.Lock()
		failed = true
		mu.Unlock()
	}

	wg.Add(2)

	go func() {
		defer wg.Done()
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		out, err := reduce(runCtx, s.guidance, input)
		if err != nil {
			s.logger.Warn("guidance pipeline failed", zap.String("stream_id", streamID), zap.Error(err))
			guidance = fallbackGuidance
			markFailed()
			return
		}
		if out == "" {
			s.logger.Warn("guidance pipeline produced no output", zap.String("stream_id", streamID))
			guidance = fallbackGuidance
			markFailed()
			return
		}
		guidance = out
	}()

	go func() {
		defer wg.Done()
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		out, err := reduce(runCtx, s.scoring, input)
		if err != nil {
			s.logger.Warn("scoring pipeline failed", zap.String("stream_id", streamID), zap.Error(err))
			scores = entities.DefaultScores()
			markFailed()
			return
		}
		parsed, err := entities.ScoresFromJSON(out)
		if err != nil {
			s.logger.Warn("scoring output unparseable",
				zap.String("stream_id", streamID),
				zap.String("output", out),
				zap.Error(err))
			scores = entities.DefaultScores()
			markFailed()
			return
		}
		scores = parsed
	}()

	wg.Wait()

	s.broadcaster.Broadcast(entities.NewEvaluationUpdateEvent(streamID, entry, guidance, scores, failed))
}

// StopPipelines releases pipeline resources at shutdown.
func (s *service) StopPipelines() {
	s.guidance.Stop()
	s.scoring.Stop()
}
