package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/inworld-ai/demeanor-evaluator/pkg/config"
)

func TestLocalStore_SaveFrameOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	ctx := context.Background()
	if err := store.SaveFrame(ctx, "stream-1", []byte("first")); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := store.SaveFrame(ctx, "stream-1", []byte("second")); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "stream-1.jpg"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("expected latest frame, got %q", got)
	}
}

func TestLocalStore_StripsPathFromStreamID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	if err := store.SaveFrame(context.Background(), "../escape/stream-1", []byte("frame")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stream-1.jpg")); err != nil {
		t.Fatalf("frame not written inside store dir: %v", err)
	}
}

func TestNew_UnknownType(t *testing.T) {
	cfg := &config.StorageConfig{Type: "bogus", LocalDir: t.TempDir()}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestNew_DefaultsToLocal(t *testing.T) {
	cfg := &config.StorageConfig{LocalDir: t.TempDir()}
	store, err := New(cfg)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("expected local store, got %T", store)
	}
}
