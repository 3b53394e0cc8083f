package mediasource

import "context"

// Handlers receives media events from a joined stream. Nil handlers are
// skipped. Callbacks may be invoked from source-owned goroutines.
type Handlers struct {
	// OnTranscript delivers one finalized utterance.
	OnTranscript func(speaker, text string, metadata map[string]interface{})
	// OnVideoFrame delivers one encoded frame with its capture time in
	// unix milliseconds.
	OnVideoFrame func(frame []byte, timestamp int64)
	// OnAudio delivers raw audio payloads for the optional realtime
	// transcription fallback.
	OnAudio func(samples []byte)
}

// Source attaches to live meeting streams and routes their media to the
// registered handlers. Implementations own the underlying transport.
type Source interface {
	// Join connects to the stream and begins delivering events. Joining a
	// stream twice without an intervening Leave is an error.
	Join(ctx context.Context, streamID string, handlers Handlers) error
	// Leave disconnects from the stream. Leaving an unknown stream is a no-op.
	Leave(ctx context.Context, streamID string) error
}
