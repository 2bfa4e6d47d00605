package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
)

// RetryPolicy is exponential backoff applied to rate-limited calls only.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// MaxDelay caps a single wait; zero means uncapped.
	MaxDelay time.Duration
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retrying wraps a Completer with rate-limit backoff. Auth and generic
// failures are returned immediately.
type Retrying struct {
	next    domain.Completer
	policy  RetryPolicy
	log     *zap.Logger
	metrics *metrics.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func WithRetry(next domain.Completer, policy RetryPolicy, log *zap.Logger, m *metrics.Metrics) *Retrying {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrying{next: next, policy: policy, log: log, metrics: m, sleep: sleepCtx}
}

func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.next.Complete(ctx, prompt)
		class := Classify(err)
		r.metrics.Completion(class.String())
		if class != ClassRateLimit || attempt >= r.policy.MaxRetries {
			return out, err
		}
		wait := r.policy.Delay(attempt)
		r.log.Warn("completion rate limited, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))
		r.metrics.CompletionRetry()
		if serr := r.sleep(ctx, wait); serr != nil {
			return "", err
		}
	}
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
