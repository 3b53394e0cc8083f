package shutdown

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
)

// ViewerHub is the broadcast surface the orchestrator drains and closes.
type ViewerHub interface {
	Broadcast(event entities.BroadcastEvent)
	CloseAll()
}

// SessionStopper tears down every active stream session.
type SessionStopper interface {
	StopAll(ctx context.Context)
}

// EvaluationStopper releases the text analysis pipelines.
type EvaluationStopper interface {
	StopPipelines()
}

// VisionStopper releases the visual analysis pipeline.
type VisionStopper interface {
	StopPipeline()
}

// BufferClearer empties all transcript buffers.
type BufferClearer interface {
	ClearAll()
}

// Listener is the HTTP server to close last.
type Listener interface {
	Shutdown(ctx context.Context) error
}

// Orchestrator runs the ordered teardown sequence exactly once. Every step
// is bounded by the step timeout and failures never abort later steps: the
// process always reaches the final exit.
type Orchestrator struct {
	hub         ViewerHub
	sessions    SessionStopper
	evaluation  EvaluationStopper
	vision      VisionStopper
	buffers     BufferClearer
	listener    Listener
	stepTimeout time.Duration
	logger      *zap.Logger

	// exit terminates the process; replaced in tests.
	exit func(code int)

	once sync.Once
}

// NewOrchestrator wires the teardown sequence.
func NewOrchestrator(
	hub ViewerHub,
	sessions SessionStopper,
	evaluation EvaluationStopper,
	vision VisionStopper,
	buffers BufferClearer,
	listener Listener,
	stepTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		hub:         hub,
		sessions:    sessions,
		evaluation:  evaluation,
		vision:      vision,
		buffers:     buffers,
		listener:    listener,
		stepTimeout: stepTimeout,
		logger:      logger,
		exit:        os.Exit,
	}
}

// Shutdown runs the teardown sequence. Safe to call from multiple
// goroutines; only the first call performs any work, and the process exits
// with code 0 regardless of step failures.
func (o *Orchestrator) Shutdown(reason string) {
	o.once.Do(func() {
		o.logger.Info("shutting down", zap.String("reason", reason))

		o.step("notify viewers", func(_ context.Context) error {
			o.hub.Broadcast(entities.NewServerShutdownEvent())
			return nil
		})
		o.step("close viewer connections", func(_ context.Context) error {
			o.hub.CloseAll()
			return nil
		})
		o.step("disconnect sessions", func(ctx context.Context) error {
			o.sessions.StopAll(ctx)
			return nil
		})
		o.step("stop analysis pipelines", func(_ context.Context) error {
			o.evaluation.StopPipelines()
			o.vision.StopPipeline()
			return nil
		})
		o.step("clear transcript buffers", func(_ context.Context) error {
			o.buffers.ClearAll()
			return nil
		})
		o.step("close http listener", func(ctx context.Context) error {
			return o.listener.Shutdown(ctx)
		})

		o.logger.Info("shutdown complete")
		o.exit(0)
	})
}

// step runs one teardown operation under the step deadline. A step that
// overruns is abandoned, not waited for.
func (o *Orchestrator) step(name string, op func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			o.logger.Error("shutdown step failed", zap.String("step", name), zap.Error(err))
			return
		}
		o.logger.Info("shutdown step complete", zap.String("step", name))
	case <-ctx.Done():
		o.logger.Error("shutdown step timed out", zap.String("step", name), zap.Duration("timeout", o.stepTimeout))
	}
}
