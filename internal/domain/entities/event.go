package entities

import (
	"time"
)

// EventType tags a broadcast event pushed to connected viewers.
type EventType string

const (
	EventConnected        EventType = "connected"
	EventMeetingStarted   EventType = "meeting_started"
	EventMeetingStopped   EventType = "meeting_stopped"
	EventEvaluationUpdate EventType = "evaluation_update"
	EventVisualUpdate     EventType = "visual_evaluation_update"
	EventServerShutdown   EventType = "server_shutdown"
)

// BroadcastEvent is the single wire shape pushed to viewers. Fields are
// populated per event type; unused fields are omitted from the JSON payload.
// Events are transient and never persisted.
type BroadcastEvent struct {
	Type       EventType         `json:"type"`
	StreamID   string            `json:"streamId,omitempty"`
	Transcript *TranscriptEntry  `json:"transcript,omitempty"`
	Guidance   string            `json:"guidance,omitempty"`
	Scores     *EvaluationScores `json:"scores,omitempty"`
	Feedback   string            `json:"feedback,omitempty"`
	Timestamp  int64             `json:"timestamp"`
	Error      bool              `json:"error,omitempty"`
}

// NewConnectedEvent acknowledges a freshly registered viewer.
func NewConnectedEvent() BroadcastEvent {
	return BroadcastEvent{Type: EventConnected, Timestamp: time.Now().UnixMilli()}
}

// NewMeetingStartedEvent announces that a stream session went live.
func NewMeetingStartedEvent(streamID string) BroadcastEvent {
	return BroadcastEvent{Type: EventMeetingStarted, StreamID: streamID, Timestamp: time.Now().UnixMilli()}
}

// NewMeetingStoppedEvent announces that a stream session ended.
func NewMeetingStoppedEvent(streamID string) BroadcastEvent {
	return BroadcastEvent{Type: EventMeetingStopped, StreamID: streamID, Timestamp: time.Now().UnixMilli()}
}

// NewEvaluationUpdateEvent carries one combined guidance+scores result.
// failed marks results produced from fallback values after a pipeline error.
func NewEvaluationUpdateEvent(streamID string, entry TranscriptEntry, guidance string, scores EvaluationScores, failed bool) BroadcastEvent {
	return BroadcastEvent{
		Type:       EventEvaluationUpdate,
		StreamID:   streamID,
		Transcript: &entry,
		Guidance:   guidance,
		Scores:     &scores,
		Timestamp:  time.Now().UnixMilli(),
		Error:      failed,
	}
}

// NewVisualUpdateEvent carries feedback from one visual analysis cycle.
// timestamp is the capture time of the sampled frame, not the analysis time.
func NewVisualUpdateEvent(streamID, feedback string, timestamp int64) BroadcastEvent {
	return BroadcastEvent{
		Type:      EventVisualUpdate,
		StreamID:  streamID,
		Feedback:  feedback,
		Timestamp: timestamp,
	}
}

// NewServerShutdownEvent is the final event sent before viewer connections close.
func NewServerShutdownEvent() BroadcastEvent {
	return BroadcastEvent{Type: EventServerShutdown, Timestamp: time.Now().UnixMilli()}
}
