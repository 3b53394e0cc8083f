package assemblyai

import (
	"context"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// fallbackSpeaker labels utterances produced by server-side transcription,
// which carries no speaker identity.
const fallbackSpeaker = "Speaker"

// Transcriber streams one session's audio to AssemblyAI realtime and
// forwards finalized utterances. Used as a fallback when the meeting client
// does not publish its own transcript.
type Transcriber struct {
	client   *aai.RealTimeClient
	streamID string
	logger   *zap.Logger
}

// NewTranscriber builds a realtime transcriber for one stream. onFinal is
// invoked for each finalized utterance.
func NewTranscriber(cfg *config.AssemblyAIConfig, streamID string, onFinal func(speaker, text string), logger *zap.Logger) *Transcriber {
	transcriber := &aai.RealTimeTranscriber{
		OnFinalTranscript: func(t aai.FinalTranscript) {
			if t.Text == "" {
				return
			}
			onFinal(fallbackSpeaker, t.Text)
		},
		OnError: func(err error) {
			logger.Warn("realtime transcription error", zap.String("stream_id", streamID), zap.Error(err))
		},
	}

	client := aai.NewRealTimeClientWithOptions(
		aai.WithRealTimeAPIKey(cfg.APIKey),
		aai.WithRealTimeSampleRate(cfg.SampleRate),
		aai.WithRealTimeTranscriber(transcriber),
	)

	return &Transcriber{
		client:   client,
		streamID: streamID,
		logger:   logger,
	}
}

// Connect opens the realtime session.
func (t *Transcriber) Connect(ctx context.Context) error {
	return t.client.Connect(ctx)
}

// SendAudio forwards one audio payload. Send failures are logged and
// dropped; the realtime session recovers or surfaces errors via OnError.
func (t *Transcriber) SendAudio(ctx context.Context, samples []byte) {
	if err := t.client.Send(ctx, samples); err != nil {
		t.logger.Debug("realtime send failed", zap.String("stream_id", t.streamID), zap.Error(err))
	}
}

// Close terminates the realtime session, waiting for the final transcript.
func (t *Transcriber) Close(ctx context.Context) error {
	return t.client.Disconnect(ctx, true)
}
