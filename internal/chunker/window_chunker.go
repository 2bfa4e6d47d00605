package chunker

import (
	"strings"

	"github.com/google/uuid"

	"airrag/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators are tried in order when looking for a natural break point.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// WindowChunker splits text into overlapping character windows, preferring
// to end a window at a paragraph, line, sentence or word boundary.
//
// Every chunk is an exact substring of the document; Metadata["start"] and
// Metadata["end"] hold its rune offsets. Consecutive windows share at least
// overlap runes, so any span of up to overlap runes that crosses a window
// boundary is intact in the following chunk.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	// windows are at least size/2 long; keeping overlap within size/4
	// leaves room for a full overlap span after each boundary
	if overlap > size/4 {
		overlap = size / 4
	}
	return &WindowChunker{size: size, overlap: overlap}
}

func (c *WindowChunker) Size() int    { return c.size }
func (c *WindowChunker) Overlap() int { return c.overlap }

func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	runes := []rune(document.Content)
	n := len(runes)
	var chunks []domain.Chunk
	start := 0
	for idx := 0; start < n; idx++ {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.breakPoint(runes, start, end)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    uuid.New().String(),
			Text:       string(runes[start:end]),
			Index:      idx,
			Metadata: map[string]any{
				"start": start,
				"end":   end,
			},
		})
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks, nil
}

// breakPoint returns the best window end in (start+size/2, limit]. It falls
// back to a hard cut at limit.
func (c *WindowChunker) breakPoint(runes []rune, start, limit int) int {
	floor := start + c.size/2
	window := string(runes[floor:limit])
	for _, sep := range separators {
		i := strings.LastIndex(window, sep)
		if i < 0 {
			continue
		}
		// convert the byte offset inside window back to runes
		cut := floor + len([]rune(window[:i+len(sep)]))
		if cut > floor {
			return cut
		}
	}
	return limit
}
