package entities

import (
	"time"
)

// TranscriptEntry represents a single spoken utterance captured from a
// meeting stream. Entries are immutable once created and owned by the
// transcript buffer that stored them.
type TranscriptEntry struct {
	Speaker   string                 `json:"speaker"`
	Text      string                 `json:"text"`
	Timestamp int64                  `json:"timestamp"` // unix milliseconds
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewTranscriptEntry builds an entry stamped with the current wall-clock time.
func NewTranscriptEntry(speaker, text string, metadata map[string]interface{}) TranscriptEntry {
	return TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Metadata:  metadata,
	}
}

// Format renders the entry the way it is fed to the analysis pipelines.
func (e TranscriptEntry) Format() string {
	return e.Speaker + ": " + e.Text
}
