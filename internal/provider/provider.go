// Package provider holds the HTTP plumbing shared by the air-quality data
// sources: rate limiting, a circuit breaker, bounded retry on HTTP 429 and
// fail-soft parallel gathering.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"airrag/internal/metrics"
)

var (
	ErrRateLimited = errors.New("provider: rate limited")
	ErrNoStations  = errors.New("provider: no stations returned")
	ErrNotFound    = errors.New("provider: station not found")
)

// StatusError is a non-2xx response other than 429.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider: GET %s: status %d", e.URL, e.Status)
}

// Backoff retries rate-limited requests. Delay doubles from Base and is
// capped at Max.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base << attempt
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Options configures a Client.
type Options struct {
	Timeout     time.Duration
	Backoff     Backoff
	RPS         float64
	Burst       int
	MaxFailures uint32
	ResetAfter  time.Duration
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Backoff.Attempts <= 0 {
		o.Backoff.Attempts = 3
	}
	if o.Backoff.Base <= 0 {
		o.Backoff.Base = time.Second
	}
	if o.Backoff.Max <= 0 {
		o.Backoff.Max = 10 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.Burst <= 0 {
		o.Burst = 5
	}
	if o.MaxFailures == 0 {
		o.MaxFailures = 5
	}
	if o.ResetAfter <= 0 {
		o.ResetAfter = 30 * time.Second
	}
}

// Client performs GET requests for one provider.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	backoff Backoff
	log     *zap.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewClient(name string, opts Options, log *zap.Logger, m *metrics.Metrics) *Client {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("provider", name))
	c := &Client{
		name:    name,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		backoff: opts.Backoff,
		log:     log,
		metrics: m,
		sleep:   sleepCtx,
	}
	maxFailures := opts.MaxFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: opts.ResetAfter,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// a missing station says nothing about provider health
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Status == http.StatusNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
			m.BreakerState(name, int(to))
		},
	})
	m.BreakerState(name, int(gobreaker.StateClosed))
	return c
}

func (c *Client) Name() string { return c.name }

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.get(ctx, url, header, out)
	})
	c.metrics.ProviderRequest(c.name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, header http.Header, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt >= c.backoff.Attempts-1 {
				return ErrRateLimited
			}
			wait := c.backoff.Delay(attempt)
			c.log.Debug("rate limited, backing off", zap.Int("attempt", attempt+1), zap.Duration("wait", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &StatusError{URL: redact(req), Status: resp.StatusCode}
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s: %w", redact(req), err)
		}
		return nil
	}
}

// redact drops the query string, which carries API tokens.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
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
