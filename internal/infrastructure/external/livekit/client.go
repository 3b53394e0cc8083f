package livekit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/livekit/protocol/auth"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/inworld-ai/demeanor-evaluator/internal/infrastructure/mediasource"
	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// Data packet topics published by meeting clients.
const (
	topicTranscript = "transcript"
	topicVideoFrame = "video_frame"
)

// transcriptPacket is the payload shape on the transcript topic.
type transcriptPacket struct {
	Speaker  string                 `json:"speaker"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// framePacket is the payload shape on the video_frame topic. Image bytes
// travel base64-encoded inside the JSON envelope.
type framePacket struct {
	Timestamp int64  `json:"timestamp"`
	Image     []byte `json:"image"`
}

// NewSource creates the LiveKit-backed media source, or an offline mock
// when configured for local development.
func NewSource(cfg *config.LiveKitConfig, logger *zap.Logger) mediasource.Source {
	if cfg.UseMock {
		return newMockSource(logger)
	}
	return &realSource{
		cfg:    cfg,
		logger: logger,
		rooms:  make(map[string]*lksdk.Room),
	}
}

// realSource joins LiveKit rooms as a subscribe-only bot participant and
// routes data packets and audio tracks to the registered handlers.
type realSource struct {
	cfg    *config.LiveKitConfig
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]*lksdk.Room
}

func (s *realSource) Join(ctx context.Context, streamID string, handlers mediasource.Handlers) error {
	s.mu.Lock()
	if _, exists := s.rooms[streamID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("already joined stream %s", streamID)
	}
	s.mu.Unlock()

	token, err := s.joinToken(streamID)
	if err != nil {
		return fmt.Errorf("failed to generate join token: %w", err)
	}

	callback := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket: func(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
				s.routeDataPacket(streamID, data, handlers)
			},
			OnTrackSubscribed: func(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if handlers.OnAudio == nil || track.Kind() != webrtc.RTPCodecTypeAudio {
					return
				}
				go s.pumpAudio(streamID, track, handlers.OnAudio)
			},
		},
	}

	var room *lksdk.Room
	connect := func() error {
		var err error
		room, err = lksdk.ConnectToRoomWithToken(s.cfg.URL, token, callback)
		return err
	}

	// Webhooks can outrun room availability by a moment; retry briefly.
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		return fmt.Errorf("failed to connect to room %s: %w", streamID, err)
	}

	s.mu.Lock()
	s.rooms[streamID] = room
	s.mu.Unlock()

	s.logger.Info("joined stream", zap.String("stream_id", streamID))
	return nil
}

func (s *realSource) Leave(_ context.Context, streamID string) error {
	s.mu.Lock()
	room, ok := s.rooms[streamID]
	if ok {
		delete(s.rooms, streamID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	room.Disconnect()
	s.logger.Info("left stream", zap.String("stream_id", streamID))
	return nil
}

func (s *realSource) joinToken(streamID string) (string, error) {
	canSubscribe := true
	canPublish := false
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         streamID,
		CanSubscribe: &canSubscribe,
		CanPublish:   &canPublish,
	}

	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	at.AddGrant(grant).
		SetIdentity(s.cfg.BotIdentity).
		SetName(s.cfg.BotIdentity).
		SetValidFor(6 * time.Hour)

	return at.ToJWT()
}

func (s *realSource) routeDataPacket(streamID string, data lksdk.DataPacket, handlers mediasource.Handlers) {
	pkt, ok := data.(*lksdk.UserDataPacket)
	if !ok {
		return
	}

	switch pkt.Topic {
	case topicTranscript:
		if handlers.OnTranscript == nil {
			return
		}
		var p transcriptPacket
		if err := json.Unmarshal(pkt.Payload, &p); err != nil {
			s.logger.Warn("malformed transcript packet", zap.String("stream_id", streamID), zap.Error(err))
			return
		}
		handlers.OnTranscript(p.Speaker, p.Text, p.Metadata)

	case topicVideoFrame:
		if handlers.OnVideoFrame == nil {
			return
		}
		var p framePacket
		if err := json.Unmarshal(pkt.Payload, &p); err != nil {
			s.logger.Warn("malformed frame packet", zap.String("stream_id", streamID), zap.Error(err))
			return
		}
		if p.Timestamp == 0 {
			p.Timestamp = time.Now().UnixMilli()
		}
		handlers.OnVideoFrame(p.Image, p.Timestamp)
	}
}

// pumpAudio forwards RTP payloads from a subscribed audio track until the
// track ends or the room disconnects.
func (s *realSource) pumpAudio(streamID string, track *webrtc.TrackRemote, onAudio func([]byte)) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			s.logger.Debug("audio track ended", zap.String("stream_id", streamID), zap.Error(err))
			return
		}
		if len(pkt.Payload) > 0 {
			onAudio(pkt.Payload)
		}
	}
}
