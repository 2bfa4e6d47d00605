// Package qdrant indexes chunks in a Qdrant collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"
	"time"

	"airrag/internal/domain"
)

const defaultTopK = 5

// reserved payload keys; everything else round-trips as chunk metadata
const (
	keyDocument = "document_id"
	keyChunk    = "chunk_id"
	keyIndex    = "index"
	keyText     = "text"
)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Storage uses cosine distance. Chunk IDs are used as point IDs, so they
// must be UUIDs.
type Storage struct {
	base   string
	apiKey string
	client *http.Client
}

func NewStorage(cfg Config) *Storage {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Storage{
		base:   strings.TrimRight(cfg.URL, "/") + "/collections/" + cfg.Collection,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchRequest struct {
	Vector      []float64 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Init recreates the collection. Every upload rebuilds the embedder, so
// vectors from an earlier upload are not comparable with new ones.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	body := struct {
		Vectors vectorParams `json:"vectors"`
	}{vectorParams{Size: dimension, Distance: "Cosine"}}
	return s.call(ctx, http.MethodPut, "", body, nil)
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	points := make([]point, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(c.Metadata)+4)
		maps.Copy(payload, c.Metadata)
		payload[keyDocument] = c.DocumentID
		payload[keyChunk] = c.ChunkID
		payload[keyIndex] = c.Index
		payload[keyText] = c.Text
		points[i] = point{ID: c.ChunkID, Vector: vectors[i], Payload: payload}
	}
	body := struct {
		Points []point `json:"points"`
	}{points}
	return s.call(ctx, http.MethodPut, "/points?wait=true", body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	var resp searchResponse
	req := searchRequest{Vector: vector, Limit: topK, WithPayload: true}
	if err := s.call(ctx, http.MethodPost, "/points/search", req, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, len(resp.Result))
	for i, r := range resp.Result {
		out[i] = domain.SearchResult{Chunk: chunkFromPayload(r.Payload), Score: r.Score}
	}
	return out, nil
}

func chunkFromPayload(p map[string]any) domain.Chunk {
	c := domain.Chunk{Metadata: map[string]any{}}
	for k, v := range p {
		switch k {
		case keyDocument:
			c.DocumentID, _ = v.(string)
		case keyChunk:
			c.ChunkID, _ = v.(string)
		case keyText:
			c.Text, _ = v.(string)
		case keyIndex:
			if f, ok := v.(float64); ok {
				c.Index = int(f)
			}
		default:
			c.Metadata[k] = v
		}
	}
	return c
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.call(ctx, http.MethodDelete, "", nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

type statusError struct {
	op     string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s: %s", e.op, e.status)
}

func (s *Storage) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{op: method + " " + path, code: resp.StatusCode, status: resp.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant: decode response: %w", err)
	}
	return nil
}
