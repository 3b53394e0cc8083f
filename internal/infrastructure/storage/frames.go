package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

// FrameStore persists the most recent sampled video frame per stream.
// Each write overwrites the previous frame for that stream.
type FrameStore interface {
	SaveFrame(ctx context.Context, streamID string, jpeg []byte) error
}

// New creates the frame store selected by configuration.
func New(cfg *config.StorageConfig) (FrameStore, error) {
	switch cfg.Type {
	case "minio":
		return NewMinIOStore(cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// LocalStore writes frames under a local directory, one file per stream.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// SaveFrame overwrites the stream's frame file with the new JPEG bytes.
func (s *LocalStore) SaveFrame(_ context.Context, streamID string, jpeg []byte) error {
	// Stream IDs come from webhook payloads; strip any path structure.
	name := filepath.Base(streamID) + ".jpg"
	if err := os.WriteFile(filepath.Join(s.dir, name), jpeg, 0o644); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
