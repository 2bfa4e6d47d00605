// Package service runs uploaded documents through the ingestion pipeline:
// chunking, indexing, topic and metric extraction, and a local summary.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"airrag/internal/domain"
	"airrag/internal/extract"
	"airrag/internal/metrics"
	"airrag/internal/summarizer"
)

// MsgTooShort is the result message for text below extract.MinTextRunes.
const MsgTooShort = "Tekst zbyt krótki do analizy"

// ErrNoDocuments is returned when no supported file matches the inputs.
var ErrNoDocuments = errors.New("no supported documents found")

// ChunkSink receives the replacement chunk set of each upload.
type ChunkSink interface {
	Replace(ctx context.Context, chunks []domain.Chunk) error
}

// Analyzer asks the completion backend about a document.
type Analyzer interface {
	ExtractTopics(ctx context.Context, text string) []string
	ExtractMetrics(ctx context.Context, text string) (extract.Metrics, error)
}

// Result is what an upload reports back to the user.
type Result struct {
	Message string         `json:"message"`
	Chunks  int            `json:"chunks"`
	Topics  []string       `json:"topics"`
	Metrics map[string]any `json:"metrics"`
	Summary string         `json:"summary,omitempty"`
}

type Options struct {
	SummaryMaxSentences int
	// Supported filters paths during IngestFiles. Nil accepts every file.
	Supported func(name string) bool
}

type Ingestor struct {
	chunker    domain.Chunker
	docs       ChunkSink
	analyzer   Analyzer
	summarizer domain.Summarizer
	extractor  domain.TextExtractor
	opts       Options
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewIngestor(chunker domain.Chunker, docs ChunkSink, analyzer Analyzer, sum domain.Summarizer, extractor domain.TextExtractor, opts Options, log *zap.Logger, m *metrics.Metrics) *Ingestor {
	if opts.SummaryMaxSentences <= 0 {
		opts.SummaryMaxSentences = summarizer.DefaultMaxSentences
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{
		chunker:    chunker,
		docs:       docs,
		analyzer:   analyzer,
		summarizer: sum,
		extractor:  extractor,
		opts:       opts,
		log:        log,
		metrics:    m,
	}
}

// IngestText indexes a single document given as raw text. Text shorter
// than extract.MinTextRunes leaves the store untouched and returns the
// canned too-short result without calling the backend.
func (s *Ingestor) IngestText(ctx context.Context, name, text string) (Result, error) {
	return s.ingest(ctx, []domain.Document{{ID: hashString(name), Path: name, Content: text}})
}

// IngestFile extracts the text of the file at path and indexes it.
func (s *Ingestor) IngestFile(ctx context.Context, path string) (Result, error) {
	doc, err := s.load(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return s.ingest(ctx, []domain.Document{doc})
}

// IngestFiles expands glob patterns and indexes every supported file as a
// single upload. The previous chunk set is replaced, not merged.
func (s *Ingestor) IngestFiles(ctx context.Context, patterns []string) (Result, error) {
	var documents []domain.Document
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil && !hasMeta(p) {
			matches = []string{p}
		}
		for _, m := range matches {
			if s.opts.Supported != nil && !s.opts.Supported(m) {
				s.log.Debug("skipping unsupported file", zap.String("path", m))
				continue
			}
			doc, err := s.load(ctx, m)
			if err != nil {
				return Result{}, err
			}
			documents = append(documents, doc)
		}
	}
	if len(documents) == 0 {
		return Result{}, ErrNoDocuments
	}
	return s.ingest(ctx, documents)
}

func (s *Ingestor) load(ctx context.Context, path string) (domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return domain.Document{}, err
	}
	text, err := s.extractor.Extract(ctx, filepath.Base(path), f, info.Size())
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: hashString(path), Path: path, Content: text}, nil
}

func (s *Ingestor) ingest(ctx context.Context, documents []domain.Document) (Result, error) {
	var full strings.Builder
	for i, d := range documents {
		if i > 0 {
			full.WriteString("\n")
		}
		full.WriteString(d.Content)
	}
	text := full.String()

	if utf8.RuneCountInString(strings.TrimSpace(text)) < extract.MinTextRunes {
		_, err := s.analyzer.ExtractMetrics(ctx, text)
		return Result{
			Message: MsgTooShort,
			Topics:  s.analyzer.ExtractTopics(ctx, text),
			Metrics: extract.ErrorMap(err),
		}, nil
	}

	var chunks []domain.Chunk
	for _, d := range documents {
		cs, err := s.chunker.Chunk(d)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, c := range cs {
			c.Index = len(chunks)
			chunks = append(chunks, c)
		}
	}
	if err := s.docs.Replace(ctx, chunks); err != nil {
		return Result{}, fmt.Errorf("index chunks: %w", err)
	}
	s.metrics.DocumentIngested(len(chunks))
	s.log.Info("document processed", zap.Int("documents", len(documents)), zap.Int("chunks", len(chunks)))

	res := Result{
		Message: fmt.Sprintf("Dokument został przetworzony na %d fragmentów", len(chunks)),
		Chunks:  len(chunks),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Topics = s.analyzer.ExtractTopics(gctx, text)
		return nil
	})
	g.Go(func() error {
		m, err := s.analyzer.ExtractMetrics(gctx, text)
		if err != nil {
			res.Metrics = extract.ErrorMap(err)
			return nil
		}
		res.Metrics = m.AsMap()
		return nil
	})
	_ = g.Wait()

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(text, s.opts.SummaryMaxSentences)
		if err != nil {
			s.log.Warn("summary failed", zap.Error(err))
		}
		res.Summary = summary
	}
	return res, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\\`)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
