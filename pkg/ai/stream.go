package ai

import (
	"context"
)

// Chunk is one tagged element of a pipeline's output sequence. Content may
// be empty; Done marks the terminal chunk, after which the stream yields
// nothing further.
type Chunk struct {
	Content string
	Done    bool
}

// ChunkStream is a finite, non-restartable iterator over pipeline output.
// Recv returns io.EOF once the sequence is exhausted. Close releases the
// underlying transport and may be called at any time.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}

// Pipeline is an external analysis pipeline: started with an input, it
// produces a chunked output stream. Stop tears the pipeline down at
// process shutdown; it must be safe to call once regardless of in-flight
// streams.
type Pipeline interface {
	Name() string
	Start(ctx context.Context, input string) (ChunkStream, error)
	Stop()
}
