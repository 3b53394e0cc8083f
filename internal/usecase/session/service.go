package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/errors"
	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/external/assemblyai"
	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/mediasource"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/transcript"
	"github.com/inworld-ai/demeanor-evaluator/internal/usecase/vision"
	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// Lifecycle event names accepted by OnLifecycleEvent.
const (
	EventStarted = "started"
	EventStopped = "stopped"
)

// Broadcaster pushes events to all connected viewers.
type Broadcaster interface {
	Broadcast(event entities.BroadcastEvent)
}

// Evaluator runs one combined guidance+scoring cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, streamID string, entry entities.TranscriptEntry, history []entities.TranscriptEntry)
}

// Service tracks live stream sessions and routes their media into the
// analysis pipelines.
type Service interface {
	// OnLifecycleEvent handles a started or stopped signal for a stream.
	// Unknown event names and stops for unknown streams are ignored.
	OnLifecycleEvent(ctx context.Context, event, streamID string) error
	// ActiveStreams lists the ids of currently tracked sessions.
	ActiveStreams() []string
	// StopAll tears down every active session. Per-session failures are
	// logged and do not stop the sweep.
	StopAll(ctx context.Context)
	// SetFatalHandler installs the callback invoked when a session worker
	// panics. Must be set before the first session starts.
	SetFatalHandler(fatal func(reason string))
}

// ingestKind discriminates queued media events.
type ingestKind int

const (
	ingestTranscript ingestKind = iota
	ingestFrame
)

type ingestItem struct {
	kind      ingestKind
	speaker   string
	text      string
	metadata  map[string]interface{}
	frame     []byte
	timestamp int64
}

// session is one tracked stream with its bounded ingest queue and worker.
type session struct {
	streamID    string
	queue       chan ingestItem
	done        chan struct{}
	transcriber *assemblyai.Transcriber
	teardown    sync.Once
}

type service struct {
	source      mediasource.Source
	buffers     *transcript.Store
	evaluator   Evaluator
	vision      vision.Service
	broadcaster Broadcaster
	assembly    *config.AssemblyAIConfig
	queueSize   int
	logger      *zap.Logger

	// fatal is invoked when a session worker panics; wired to the
	// shutdown trigger at startup.
	fatal func(reason string)

	mu       sync.RWMutex
	sessions map[string]*session
	// locks serializes lifecycle transitions per stream, so a replacement
	// cannot interleave with an in-flight join for the same stream.
	locks map[string]*sync.Mutex
}

// NewService creates the session service. fatal may be nil.
func NewService(
	source mediasource.Source,
	buffers *transcript.Store,
	evaluator Evaluator,
	visionSvc vision.Service,
	broadcaster Broadcaster,
	assembly *config.AssemblyAIConfig,
	queueSize int,
	logger *zap.Logger,
) Service {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &service{
		source:      source,
		buffers:     buffers,
		evaluator:   evaluator,
		vision:      visionSvc,
		broadcaster: broadcaster,
		assembly:    assembly,
		queueSize:   queueSize,
		logger:      logger,
		sessions:    make(map[string]*session),
		locks:       make(map[string]*sync.Mutex),
	}
}

// lockStream returns the lifecycle mutex for a stream, creating it on first
// use. Entries live for the process; stream ids per deployment are few.
func (s *service) lockStream(streamID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[streamID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[streamID] = m
	}
	return m
}

// SetFatalHandler installs the callback invoked when a worker panics.
// Must be called before the first session starts.
func (s *service) SetFatalHandler(fatal func(reason string)) {
	s.fatal = fatal
}

func (s *service) OnLifecycleEvent(ctx context.Context, event, streamID string) error {
	switch event {
	case EventStarted:
		return s.handleStarted(ctx, streamID)
	case EventStopped:
		s.handleStopped(ctx, streamID)
		return nil
	default:
		s.logger.Info("ignoring unknown lifecycle event",
			zap.String("event", event),
			zap.String("stream_id", streamID))
		return nil
	}
}

func (s *service) handleStarted(ctx context.Context, streamID string) error {
	lock := s.lockStream(streamID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	prior, exists := s.sessions[streamID]
	if exists {
		delete(s.sessions, streamID)
	}
	s.mu.Unlock()

	if exists {
		// A started signal for a live stream means the previous session
		// state is stale; replace it wholesale.
		s.logger.Warn("duplicate start for active stream, replacing session",
			zap.String("stream_id", streamID))
		s.teardownSession(ctx, prior)
	}

	sess := &session{
		streamID: streamID,
		queue:    make(chan ingestItem, s.queueSize),
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	s.sessions[streamID] = sess
	s.mu.Unlock()

	s.buffers.Clear(streamID)
	s.vision.Reset(streamID)

	handlers := mediasource.Handlers{
		OnTranscript: func(speaker, text string, metadata map[string]interface{}) {
			s.enqueue(sess, ingestItem{kind: ingestTranscript, speaker: speaker, text: text, metadata: metadata})
		},
		OnVideoFrame: func(frame []byte, timestamp int64) {
			s.enqueue(sess, ingestItem{kind: ingestFrame, frame: frame, timestamp: timestamp})
		},
	}

	if s.assembly != nil && s.assembly.Enabled {
		sess.transcriber = assemblyai.NewTranscriber(s.assembly, streamID, func(speaker, text string) {
			s.enqueue(sess, ingestItem{kind: ingestTranscript, speaker: speaker, text: text})
		}, s.logger)
		if err := sess.transcriber.Connect(ctx); err != nil {
			s.logger.Warn("realtime transcription unavailable, continuing without",
				zap.String("stream_id", streamID), zap.Error(err))
			sess.transcriber = nil
		} else {
			handlers.OnAudio = func(samples []byte) {
				sess.transcriber.SendAudio(ctx, samples)
			}
		}
	}

	if err := s.source.Join(ctx, streamID, handlers); err != nil {
		s.mu.Lock()
		delete(s.sessions, streamID)
		s.mu.Unlock()
		if sess.transcriber != nil {
			_ = sess.transcriber.Close(ctx)
		}
		s.logger.Error("failed to join stream", zap.String("stream_id", streamID), zap.Error(err))
		return errors.ErrStreamJoinFailed(streamID, err)
	}

	go s.worker(sess)

	s.logger.Info("session started", zap.String("stream_id", streamID))
	s.broadcaster.Broadcast(entities.NewMeetingStartedEvent(streamID))
	return nil
}

func (s *service) handleStopped(ctx context.Context, streamID string) {
	lock := s.lockStream(streamID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[streamID]
	if ok {
		delete(s.sessions, streamID)
	}
	s.mu.Unlock()

	if !ok {
		// Stop signals can arrive late or duplicated; nothing to do.
		s.logger.Info("stop for unknown stream, ignoring", zap.String("stream_id", streamID))
		return
	}

	s.teardownSession(ctx, sess)
	s.logger.Info("session stopped", zap.String("stream_id", streamID))
	s.broadcaster.Broadcast(entities.NewMeetingStoppedEvent(streamID))
}

// teardownSession releases a session's resources. Idempotent; failures are
// logged and never abort the remaining steps.
func (s *service) teardownSession(ctx context.Context, sess *session) {
	sess.teardown.Do(func() {
		close(sess.done)

		if err := s.source.Leave(ctx, sess.streamID); err != nil {
			s.logger.Error("failed to leave stream", zap.String("stream_id", sess.streamID), zap.Error(err))
		}
		if sess.transcriber != nil {
			if err := sess.transcriber.Close(ctx); err != nil {
				s.logger.Warn("failed to close realtime transcription", zap.String("stream_id", sess.streamID), zap.Error(err))
			}
		}

		s.buffers.Clear(sess.streamID)
		s.vision.Reset(sess.streamID)
	})
}

// enqueue offers an item to the session's bounded queue; when the worker is
// behind, the newest item is dropped rather than blocking the media callback.
func (s *service) enqueue(sess *session, item ingestItem) {
	select {
	case <-sess.done:
	case sess.queue <- item:
	default:
		s.logger.Warn("ingest queue full, dropping event",
			zap.String("stream_id", sess.streamID),
			zap.Int("kind", int(item.kind)))
	}
}

// worker drains one session's queue in arrival order, so evaluation updates
// for a stream are never reordered.
func (s *service) worker(sess *session) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session worker panic",
				zap.String("stream_id", sess.streamID),
				zap.Any("panic", r))
			if s.fatal != nil {
				s.fatal(fmt.Sprintf("session worker panic: %v", r))
			}
		}
	}()

	ctx := context.Background()
	for {
		select {
		case <-sess.done:
			return
		case item := <-sess.queue:
			s.process(ctx, sess, item)
		}
	}
}

func (s *service) process(ctx context.Context, sess *session, item ingestItem) {
	switch item.kind {
	case ingestTranscript:
		entry := s.buffers.Append(sess.streamID, item.speaker, item.text, item.metadata)
		history := s.buffers.Snapshot(sess.streamID)
		s.evaluator.Evaluate(ctx, sess.streamID, entry, history)
	case ingestFrame:
		s.vision.OnFrame(ctx, sess.streamID, item.frame, item.timestamp)
	}
}

func (s *service) ActiveStreams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out
}

func (s *service) StopAll(ctx context.Context) {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		s.teardownSession(ctx, sess)
	}
}
