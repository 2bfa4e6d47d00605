package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
)

func sampleText(words int) string {
	vocab := []string{"powietrze", "jakość", "PM10", "węgiel", "energia", "Gdańsk", "Sopot", "wiatr"}
	var b strings.Builder
	for i := 0; i < words; i++ {
		b.WriteString(vocab[i%len(vocab)])
		if i%60 == 59 {
			b.WriteString(".\n\n")
		} else if i%12 == 11 {
			b.WriteString(". ")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestNewWindowChunker(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewWindowChunker(0, -1)
		assert.Equal(t, DefaultChunkSize, c.Size())
		assert.Equal(t, 0, c.Overlap())
	})

	t.Run("overlap clamped", func(t *testing.T) {
		c := NewWindowChunker(100, 90)
		assert.Equal(t, 25, c.Overlap())
	})
}

func TestWindowChunker_Empty(t *testing.T) {
	chunks, err := NewWindowChunker(100, 20).Chunk(domain.Document{ID: "d", Content: "  \n "})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWindowChunker_ShortTextSingleChunk(t *testing.T) {
	chunks, err := NewWindowChunker(1000, 200).Chunk(domain.Document{ID: "d", Content: "Krótki dokument o smogu."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Krótki dokument o smogu.", chunks[0].Text)
	assert.Equal(t, "d", chunks[0].DocumentID)
	assert.NotEmpty(t, chunks[0].ChunkID)
}

func TestWindowChunker_OverlapReconstructsText(t *testing.T) {
	text := sampleText(400)
	runes := []rune(text)
	require.GreaterOrEqual(t, len(runes), DefaultChunkSize+DefaultOverlap)

	c := NewWindowChunker(DefaultChunkSize, DefaultOverlap)
	chunks, err := c.Chunk(domain.Document{ID: "doc", Content: text})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	var rebuilt strings.Builder
	prevEnd := 0
	for i, ch := range chunks {
		start := ch.Metadata["start"].(int)
		end := ch.Metadata["end"].(int)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, string(runes[start:end]), ch.Text)
		assert.LessOrEqual(t, end-start, DefaultChunkSize)
		if i == 0 {
			assert.Equal(t, 0, start)
			rebuilt.WriteString(ch.Text)
		} else {
			assert.Equal(t, DefaultOverlap, prevEnd-start, "chunk %d overlap", i)
			rebuilt.WriteString(string(runes[prevEnd:end]))
		}
		prevEnd = end
	}
	assert.Equal(t, len(runes), prevEnd)
	assert.Equal(t, text, rebuilt.String())
}

func TestWindowChunker_SpanAcrossBoundarySurvives(t *testing.T) {
	text := sampleText(400)
	runes := []rune(text)
	c := NewWindowChunker(300, 60)
	chunks, err := c.Chunk(domain.Document{ID: "doc", Content: text})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i := 0; i < len(chunks)-1; i++ {
		boundary := chunks[i].Metadata["end"].(int)
		for s := boundary - c.Overlap() + 1; s < boundary; s++ {
			if s+c.Overlap() > len(runes) {
				break
			}
			span := string(runes[s : s+c.Overlap()])
			found := false
			for _, ch := range chunks {
				if strings.Contains(ch.Text, span) {
					found = true
					break
				}
			}
			require.True(t, found, "span at %d lost", s)
		}
	}
}

func TestWindowChunker_PrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 80)
	chunks, err := NewWindowChunker(100, 10).Chunk(domain.Document{ID: "d", Content: text})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, ". "))
}

func TestWindowChunker_HardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks, err := NewWindowChunker(100, 20).Chunk(domain.Document{ID: "d", Content: text})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 100)
	assert.Equal(t, 80, chunks[1].Metadata["start"])
}

func TestWindowChunker_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("ąęśćżź", 50)
	chunks, err := NewWindowChunker(40, 10).Chunk(domain.Document{ID: "d", Content: text})
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.NotContains(t, ch.Text, "�")
	}
}
