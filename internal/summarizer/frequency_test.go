package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_KeepsDocumentOrder(t *testing.T) {
	text := "Smog w Gdańsku rośnie zimą. Piece węglowe powodują smog. " +
		"Turbiny stoją na morzu. Smog i piece węglowe to główny problem smogowy."
	s := NewFrequencySummarizer()
	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Piece węglowe powodują smog. Smog i piece węglowe to główny problem smogowy.", out)
}

func TestSummarize_FewerSentencesThanLimit(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("Jedno zdanie bez kropki", 3)
	require.NoError(t, err)
	assert.Equal(t, "Jedno zdanie bez kropki", out)
}

func TestSummarize_Empty(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("   ", 0)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
