package transcript

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppend_CapAndOrder(t *testing.T) {
	s := NewStore(50)

	for i := 0; i < 120; i++ {
		s.Append("stream-1", "A", fmt.Sprintf("utterance %d", i), nil)
	}

	snap := s.Snapshot("stream-1")
	if len(snap) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(snap))
	}
	// Retained entries must be exactly the most recent 50 in arrival order.
	for i, entry := range snap {
		want := fmt.Sprintf("utterance %d", 70+i)
		if entry.Text != want {
			t.Fatalf("entry %d: expected %q got %q", i, want, entry.Text)
		}
	}
}

func TestAppend_PerStreamIsolation(t *testing.T) {
	s := NewStore(50)
	s.Append("stream-1", "A", "hello", nil)
	s.Append("stream-2", "B", "world", nil)

	if n := s.Len("stream-1"); n != 1 {
		t.Fatalf("stream-1 expected 1 entry, got %d", n)
	}
	s.Clear("stream-1")
	if n := s.Len("stream-1"); n != 0 {
		t.Fatalf("stream-1 expected empty after clear, got %d", n)
	}
	if n := s.Len("stream-2"); n != 1 {
		t.Fatalf("stream-2 should be untouched, got %d", n)
	}
}

func TestClearAll(t *testing.T) {
	s := NewStore(10)
	s.Append("a", "A", "x", nil)
	s.Append("b", "B", "y", nil)
	s.ClearAll()
	if s.Len("a") != 0 || s.Len("b") != 0 {
		t.Fatal("expected all buffers empty")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := NewStore(10)
	s.Append("a", "A", "x", nil)
	snap := s.Snapshot("a")
	snap[0].Text = "mutated"
	if s.Snapshot("a")[0].Text != "x" {
		t.Fatal("snapshot mutation leaked into store")
	}
}

func TestAppend_ConcurrentWriters(t *testing.T) {
	s := NewStore(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append("shared", fmt.Sprintf("speaker-%d", w), "text", nil)
				_ = s.Snapshot("shared")
			}
		}(w)
	}
	wg.Wait()

	if n := s.Len("shared"); n != 50 {
		t.Fatalf("expected buffer pinned at cap, got %d", n)
	}
}
