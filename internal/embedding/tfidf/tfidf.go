// Package tfidf is the default embedder for document search. Vectors are
// smoothed TF-IDF weights over a vocabulary fixed by Prepare.
package tfidf

import (
	"errors"
	"maps"
	"math"
	"slices"
	"strings"
	"unicode"
)

// maxStemRunes bounds token length after stemming. Truncation folds most
// Polish inflections ("powietrza", "powietrze") onto one term.
const maxStemRunes = 7

var (
	ErrNotPrepared = errors.New("tfidf: embedder not prepared")
	ErrEmptyCorpus = errors.New("tfidf: corpus has no terms")
)

type term struct {
	index int
	idf   float64
}

// Embedder is not safe for concurrent Prepare; Embed may run concurrently
// once prepared.
type Embedder struct {
	terms     map[string]term
	stopwords map[string]struct{}
}

func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fixes the vocabulary. Terms are indexed in lexical order so the
// same corpus always yields the same layout.
func (e *Embedder) Prepare(corpus []string) error {
	df := map[string]int{}
	for _, text := range corpus {
		seen := map[string]bool{}
		for _, tok := range e.Tokenize(text) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	if len(df) == 0 {
		return ErrEmptyCorpus
	}
	docs := float64(len(corpus))
	terms := make(map[string]term, len(df))
	for i, t := range slices.Sorted(maps.Keys(df)) {
		terms[t] = term{index: i, idf: math.Log((1+docs)/(1+float64(df[t]))) + 1}
	}
	e.terms = terms
	return nil
}

func (e *Embedder) Dimension() int { return len(e.terms) }

// Embed returns a unit-length vector, or a zero vector when text shares no
// term with the corpus.
func (e *Embedder) Embed(text string) ([]float64, error) {
	if e.terms == nil {
		return nil, ErrNotPrepared
	}
	vec := make([]float64, len(e.terms))
	counts := map[term]int{}
	total := 0
	for _, tok := range e.Tokenize(text) {
		if t, ok := e.terms[tok]; ok {
			counts[t]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	var norm float64
	for t, n := range counts {
		w := float64(n) / float64(total) * t.idf
		vec[t.index] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// Tokenize splits on anything that is not a letter or digit, lower-cases,
// drops stopwords and stems the rest.
func (e *Embedder) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := e.stopwords[f]; !stop {
			out = append(out, Stem(f))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Stem strips an English plural "s" and truncates long tokens.
func Stem(tok string) string {
	r := []rune(tok)
	if n := len(r); n > 3 && r[n-1] == 's' && r[n-2] != 's' {
		r = r[:n-1]
	}
	if len(r) > maxStemRunes {
		r = r[:maxStemRunes]
	}
	return string(r)
}

// Stopwords returns a fresh copy of the English and Polish stopword set.
func Stopwords() map[string]struct{} { return defaultStopwords() }

var stopwordList = strings.Fields(`
a an the and or but if then else for to of in on at by with as is are was were be been being
it this that these those from up down over under again further than so such into about between
through during before after above below out off own same too very can will just don should now
i w z na do się jest są nie że o od po przez dla jak jaka jaki jakie oraz lub ale czy co ten ta
te tym tego przy pod nad bardzo już tylko
`)

func defaultStopwords() map[string]struct{} {
	m := make(map[string]struct{}, len(stopwordList))
	for _, w := range stopwordList {
		m[w] = struct{}{}
	}
	return m
}
