// Package analysis implements document analysis: chunking, the parallel
// summarization fan-out, the final synthesis and the stop signal that every
// long-running step consults.
package analysis

import (
	"fmt"
	"strings"
)

// Chunk is a contiguous slice of document words tagged with its position.
type Chunk struct {
	Index   int
	Content string
}

// Segment splits text into chunks of at most maxWords whitespace-separated
// words, joined by a single space.
//
// Rules:
//   - Empty or whitespace-only input returns an empty slice.
//   - The last chunk may be shorter; all others hold exactly maxWords words.
//   - maxWords < 1 fails with ErrInvalidArgument.
func Segment(text string, maxWords int) ([]Chunk, error) {
	if maxWords < 1 {
		return nil, fmt.Errorf("%w: maxWords must be >= 1, got %d", ErrInvalidArgument, maxWords)
	}

	words := strings.Fields(text)
	chunks := make([]Chunk, 0, len(words)/maxWords+1)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Content: strings.Join(words[start:end], " "),
		})
	}
	return chunks, nil
}
