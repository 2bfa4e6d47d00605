// Package openai is a remote embedder for OpenAI-compatible /embeddings
// endpoints, including Ollama's native response shape. It backs semantic
// document search when search.embedder is "openai".
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultModel = "text-embedding-3-small"
	maxRetries   = 4
)

var ErrNoEmbedding = errors.New("openai: no embedding returned")

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Client implements domain.Embedder. The vector dimension is learned from
// the first response.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	dimension int
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
		sleep:   sleepCtx,
	}, nil
}

func (c *Client) Name() string { return "openai" }

// Prepare is a no-op; remote models need no corpus statistics.
func (c *Client) Prepare([]string) error { return nil }

func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed bounds the whole call, retries included.
func (c *Client) Embed(text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout*maxRetries)
	defer cancel()
	return c.EmbedContext(ctx, text)
}

// EmbedContext returns a unit-length vector. It retries on 429 and 5xx,
// honouring Retry-After in seconds.
func (c *Client) EmbedContext(ctx context.Context, text string) ([]float64, error) {
	body, _ := json.Marshal(map[string]string{"input": text, "prompt": text, "model": c.model})
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		vec, wait, err := c.do(ctx, body)
		if err == nil {
			normalize(vec)
			c.mu.Lock()
			if c.dimension == 0 {
				c.dimension = len(vec)
			}
			c.mu.Unlock()
			return vec, nil
		}
		lastErr = err
		if wait < 0 || attempt == maxRetries {
			break
		}
		if wait == 0 {
			wait = retryDelay(attempt)
		}
		c.log.Debug("embedding retry", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// do performs one request. A negative wait means the error is final.
func (c *Client) do(ctx context.Context, body []byte) ([]float64, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, retryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, -1, fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	vec, err := decode(payload)
	if err != nil {
		return nil, -1, err
	}
	return vec, 0, nil
}

// decode accepts {"data":[{"embedding":[...]}]} and {"embedding":[...]}.
func decode(payload []byte) ([]float64, error) {
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, ErrNoEmbedding
}

// normalize scales v to unit length so dot products are cosines.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
