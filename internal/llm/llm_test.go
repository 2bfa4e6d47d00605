package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) Complete(context.Context, string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return "ok", nil
}

func newRetrying(next *scripted, maxRetries int) (*Retrying, *[]time.Duration) {
	r := WithRetry(next, RetryPolicy{MaxRetries: maxRetries, BaseDelay: 2 * time.Second}, nil, nil)
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{&APIError{Status: 429}, ClassRateLimit},
		{&APIError{Status: 400, Body: `{"status":"RESOURCE_EXHAUSTED"}`}, ClassRateLimit},
		{errors.New("quota: RATE_LIMIT_EXCEEDED"), ClassRateLimit},
		{errors.New("upstream returned status 429"), ClassRateLimit},
		{errors.New("gemini: status code: 429"), ClassRateLimit},
		{errors.New("429 Too Many Requests"), ClassRateLimit},
		{errors.New("dial tcp 10.0.0.7:8429: connect: connection refused"), ClassGeneric},
		{errors.New("request 4291 failed"), ClassGeneric},
		{&APIError{Status: 403}, ClassAuth},
		{errors.New("API Key not valid"), ClassAuth},
		{fmt.Errorf("wrapped: %w", ErrAuth), ClassAuth},
		{&APIError{Status: 500, Body: "internal"}, ClassGeneric},
		{context.DeadlineExceeded, ClassGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "%v", tc.err)
	}
}

func TestAPIError_IsSentinels(t *testing.T) {
	err := fmt.Errorf("gemini: %w", &APIError{Status: 429, Body: "slow down"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrAuth)
}

func TestRetrying_BacksOffOnRateLimit(t *testing.T) {
	next := &scripted{errs: []error{&APIError{Status: 429}, &APIError{Status: 429}}}
	r, waits := newRetrying(next, 3)

	out, err := r.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	rl := &APIError{Status: 429}
	next := &scripted{errs: []error{rl, rl, rl, rl, rl}}
	r, waits := newRetrying(next, 3)

	_, err := r.Complete(context.Background(), "p")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 4, next.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *waits)
}

func TestRetrying_NoRetryOnAuthOrGeneric(t *testing.T) {
	for _, e := range []error{&APIError{Status: 403}, errors.New("boom")} {
		next := &scripted{errs: []error{e}}
		r, waits := newRetrying(next, 3)
		_, err := r.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Equal(t, 1, next.calls)
		assert.Empty(t, *waits)
	}
}

func TestRetrying_StopsWhenContextCancelled(t *testing.T) {
	next := &scripted{errs: []error{&APIError{Status: 429}}}
	r := WithRetry(next, RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, "p")
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, next.calls)
}

func TestRetryPolicy_DelayCap(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 10*time.Second, p.Delay(4))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(&APIError{Status: 429}), "kilka minut")
	assert.Contains(t, UserMessage(ErrAuth), "klucza API")
	assert.Contains(t, UserMessage(errors.New("boom")), "spróbować ponownie za chwilę")
}
