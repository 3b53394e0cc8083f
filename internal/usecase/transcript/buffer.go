package transcript

import (
	"sync"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
)

// DefaultCap is the bounded history length kept per stream.
const DefaultCap = 50

// Store keeps a bounded, ordered transcript history per stream. Appends
// past the cap evict the oldest entries; order is never changed. All
// methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	cap     int
	buffers map[string][]entities.TranscriptEntry
}

// NewStore creates a store with the given per-stream capacity. A
// non-positive capacity falls back to DefaultCap.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{
		cap:     capacity,
		buffers: make(map[string][]entities.TranscriptEntry),
	}
}

// Append stamps and stores a new entry for the stream, evicting from the
// front when the buffer exceeds capacity. It always succeeds.
func (s *Store) Append(streamID, speaker, text string, metadata map[string]interface{}) entities.TranscriptEntry {
	entry := entities.NewTranscriptEntry(speaker, text, metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.buffers[streamID], entry)
	if over := len(buf) - s.cap; over > 0 {
		buf = buf[over:]
	}
	s.buffers[streamID] = buf
	return entry
}

// Snapshot returns a copy of the stream's entries in insertion order.
func (s *Store) Snapshot(streamID string) []entities.TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.buffers[streamID]
	out := make([]entities.TranscriptEntry, len(buf))
	copy(out, buf)
	return out
}

// Len returns the number of entries currently held for the stream.
func (s *Store) Len(streamID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers[streamID])
}

// Clear empties the buffer for one stream.
func (s *Store) Clear(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, streamID)
}

// ClearAll empties every buffer. Used by the viewer clear_history control
// message and at shutdown.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = make(map[string][]entities.TranscriptEntry)
}
