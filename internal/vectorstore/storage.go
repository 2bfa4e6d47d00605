package vectorstore

import (
	"fmt"
	"os"
	"time"

	"airrag/internal/config"
	"airrag/internal/domain"
	"airrag/internal/vectorstore/memory"
	"airrag/internal/vectorstore/qdrant"
)

// New builds the chunk index selected by cfg.Index.
func New(cfg config.SearchConfig) (domain.VectorStore, error) {
	switch cfg.Index {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		apiKey := cfg.Qdrant.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("QDRANT_API_KEY")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     apiKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown search index: %s", cfg.Index)
	}
}
