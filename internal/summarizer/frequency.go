// Package summarizer builds short extractive summaries without calling
// the completion backend.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"airrag/internal/embedding/tfidf"
)

const DefaultMaxSentences = 5

var (
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
)

// FrequencySummarizer ranks sentences by the normalised frequency of their
// non-stopword tokens and keeps the best ones in document order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: tfidf.Stopwords()}
}

func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	var sentences []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if t := strings.TrimSpace(m); t != "" {
			sentences = append(sentences, t)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	maxF := 0.0
	for i, sent := range sentences {
		tokens[i] = s.tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, toks := range tokens {
		sum := 0.0
		for _, tok := range toks {
			sum += freq[tok] / maxF
		}
		if len(toks) > 0 {
			// long sentences should not win on length alone
			sum /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(maxSentences, len(scores))
	selected := make([]int, n)
	for i := range n {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	all := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, t := range all {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}
