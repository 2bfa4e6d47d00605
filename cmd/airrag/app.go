package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"airrag/internal/chunker"
	"airrag/internal/config"
	"airrag/internal/docstore"
	"airrag/internal/domain"
	embedopenai "airrag/internal/embedding/openai"
	"airrag/internal/extract"
	"airrag/internal/httpapi"
	"airrag/internal/intent"
	"airrag/internal/llm"
	"airrag/internal/llm/gemini"
	"airrag/internal/llm/openai"
	"airrag/internal/metrics"
	"airrag/internal/projectstore"
	"airrag/internal/provider"
	"airrag/internal/provider/airly"
	"airrag/internal/provider/aqicn"
	"airrag/internal/provider/gios"
	"airrag/internal/query"
	"airrag/internal/report"
	"airrag/internal/sensors"
	"airrag/internal/service"
	"airrag/internal/summarizer"
	"airrag/internal/textextract"
	"airrag/internal/vectorstore"
)

// app holds every assembled component. Stores live for one process.
type app struct {
	cfg       *config.AppConfig
	log       *zap.Logger
	metrics   *metrics.Metrics
	docs      *docstore.Store
	projects  *projectstore.Store
	stations  *provider.Multi
	extractor *textextract.Extractor
	reports   *report.Generator
	router    *query.Router
	ingest    *service.Ingestor
}

func newApp(cfg *config.AppConfig, log *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	kw, err := intent.Load(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	index, err := vectorstore.New(cfg.Search)
	if err != nil {
		return nil, err
	}
	docs := docstore.New(index, docstore.Options{
		TopK:              cfg.Search.TopK,
		SummarizeKeywords: kw.RAG.Summarize,
		NewEmbedder:       newEmbedder(cfg.Search.Embedder, log),
	}, log.Named("docstore"))
	projects := projectstore.New()
	completer := newCompleter(cfg.LLM, log, m)
	stations := newStations(cfg.Providers, log, m)
	reports := report.New(docs, projects, completer, log.Named("report"))
	extractor := textextract.New(log.Named("textextract"))

	router := query.New(query.Deps{
		Keywords:  kw,
		Documents: docs,
		Projects:  projects,
		Stations:  stations,
		Sensors:   sensors.NewSynthetic(nil),
		Completer: completer,
		Reports:   reports,
		Log:       log.Named("query"),
		Metrics:   m,
	})
	ingest := service.NewIngestor(
		chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap),
		docs,
		extract.New(completer, log.Named("extract")),
		summarizer.NewFrequencySummarizer(),
		extractor,
		service.Options{Supported: textextract.Supported},
		log.Named("ingest"),
		m,
	)
	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		docs:      docs,
		projects:  projects,
		stations:  stations,
		extractor: extractor,
		reports:   reports,
		router:    router,
		ingest:    ingest,
	}, nil
}

func (a *app) server() *httpapi.Server {
	return httpapi.New(httpapi.Deps{
		Queries:   a.router,
		Ingest:    a.ingest,
		Extractor: a.extractor,
		Projects:  a.projects,
		Stations:  a.stations,
		Reports:   a.reports,
		Log:       a.log.Named("http"),
		Metrics:   a.metrics,
	})
}

// loadProject reads a ProjectData snapshot from a JSON file.
func (a *app) loadProject(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var p domain.ProjectData
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("parse project %s: %w", path, err)
	}
	a.projects.Set(p)
	a.log.Info("project loaded", zap.String("name", p.Name))
	return nil
}

// newCompleter falls back to llm.Unconfigured when the backend cannot be
// built, so queries still get the configuration hint instead of failing
// at startup.
func newCompleter(cfg config.LLMConfig, log *zap.Logger, m *metrics.Metrics) domain.Completer {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	var (
		c   domain.Completer
		err error
	)
	switch cfg.Provider {
	case "gemini":
		c, err = gemini.NewClient(gemini.Config{BaseURL: cfg.BaseURL, APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model, Timeout: timeout})
	case "openai":
		c, err = openai.NewClient(openai.Config{BaseURL: cfg.BaseURL, APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model, Timeout: timeout})
	default:
		err = fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		log.Warn("completion backend unavailable", zap.Error(err))
		return llm.Unconfigured{Reason: err.Error()}
	}
	return llm.WithRetry(c, llm.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay(),
		MaxDelay:   cfg.Retry.MaxDelay(),
	}, log.Named("llm"), m)
}

// newEmbedder returns nil, selecting TF-IDF, unless a remote embedder is
// configured and has credentials.
func newEmbedder(cfg config.EmbedderConfig, log *zap.Logger) func() domain.Embedder {
	switch cfg.Type {
	case "openai":
		client, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		}, log.Named("embedding"))
		if err != nil {
			log.Warn("openai embedder unavailable, using tfidf", zap.Error(err))
			return nil
		}
		return func() domain.Embedder { return client }
	case "tfidf", "":
		return nil
	default:
		log.Warn("unknown embedder, using tfidf", zap.String("type", cfg.Type))
		return nil
	}
}

// newStations builds every provider with credentials, primary first.
// GIOŚ needs none and is always present.
func newStations(cfg config.ProvidersConfig, log *zap.Logger, m *metrics.Metrics) *provider.Multi {
	opts := provider.Options{
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		Backoff: provider.Backoff{
			Attempts: cfg.Retry.MaxRetries,
			Base:     cfg.Retry.BaseDelay(),
			Max:      cfg.Retry.MaxDelay(),
		},
		RPS:         cfg.Rate.RPS,
		Burst:       cfg.Rate.Burst,
		MaxFailures: uint32(cfg.Breaker.MaxFailures),
		ResetAfter:  time.Duration(cfg.Breaker.ResetTimeoutSecs) * time.Second,
	}
	log = log.Named("provider")

	byName := map[string]domain.StationProvider{}
	if token := os.Getenv(cfg.AQICN.TokenEnv); token != "" {
		p, err := aqicn.New(provider.NewClient(aqicn.Name, opts, log, m), aqicn.Config{
			BaseURL:       cfg.AQICN.BaseURL,
			Token:         token,
			Concurrency:   cfg.Concurrency,
			HistoryWindow: 24 * time.Hour,
		}, log)
		if err != nil {
			log.Warn("aqicn disabled", zap.Error(err))
		} else {
			byName[aqicn.Name] = p
		}
	}
	if key := os.Getenv(cfg.Airly.APIKeyEnv); key != "" {
		p, err := airly.New(provider.NewClient(airly.Name, opts, log, m), airly.Config{
			BaseURL:     cfg.Airly.BaseURL,
			APIKey:      key,
			Concurrency: cfg.Concurrency,
		}, log)
		if err != nil {
			log.Warn("airly disabled", zap.Error(err))
		} else {
			byName[airly.Name] = p
		}
	}
	byName[gios.Name] = gios.New(provider.NewClient(gios.Name, opts, log, m), gios.Config{
		BaseURL:     cfg.GIOS.BaseURL,
		Concurrency: cfg.Concurrency,
	}, log)

	var ordered []domain.StationProvider
	if p, ok := byName[cfg.Primary]; ok {
		ordered = append(ordered, p)
	}
	for _, name := range []string{aqicn.Name, airly.Name, gios.Name} {
		if p, ok := byName[name]; ok && name != cfg.Primary {
			ordered = append(ordered, p)
		}
	}
	return provider.NewMulti(log, ordered...)
}
