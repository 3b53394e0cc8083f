package evaluation

import (
	"context"
	"io"
	"strings"

	"github.com/inworld-ai/demeanor-evaluator/internal/domain/entities"
	"github.com/inworld-ai/demeanor-evaluator/pkg/ai"
)

// reduce starts one pipeline invocation and folds its chunk stream into a
// single string. The fold terminates on the stream's terminal chunk, on EOF,
// or on a read error; partial accumulation is discarded when the stream fails
// mid-flight so callers fall back to a whole default value.
func reduce(ctx context.Context, p ai.Pipeline, input string) (string, error) {
	stream, err := p.Start(ctx, input)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(chunk.Content)
		if chunk.Done {
			break
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// renderHistory flattens buffered transcript entries into the text block the
// pipelines consume, oldest first.
func renderHistory(history []entities.TranscriptEntry) string {
	lines := make([]string, 0, len(history))
	for _, entry := range history {
		lines = append(lines, entry.Format())
	}
	return strings.Join(lines, "\n")
}
