package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
	"airrag/internal/metrics"
)

func newTestClient(t *testing.T, opts Options) (*Client, *[]time.Duration) {
	t.Helper()
	if opts.RPS == 0 {
		opts.RPS = 1000
		opts.Burst = 1000
	}
	c := NewClient("test", opts, nil, metrics.New(prometheus.NewRegistry()))
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestBackoffDelayCapped(t *testing.T) {
	b := Backoff{Attempts: 5, Base: time.Second, Max: 10 * time.Second}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 8*time.Second, b.Delay(3))
	assert.Equal(t, 10*time.Second, b.Delay(4))
}

func TestGetJSONRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, waits := newTestClient(t, Options{})
	var out struct{ OK bool }
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestGetJSONGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, Options{})
	err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSONStatusErrorRedactsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, Options{})
	h := http.Header{}
	h.Set("apikey", "secret")
	err := c.GetJSON(context.Background(), srv.URL+"/feed?token=secret", h, &struct{}{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.NotContains(t, err.Error(), "secret")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := NewClient("flaky", Options{RPS: 1000, Burst: 1000, MaxFailures: 2, ResetAfter: time.Hour}, nil, metrics.New(reg))
	for i := 0; i < 2; i++ {
		require.Error(t, c.GetJSON(context.Background(), srv.URL, nil, &struct{}{}))
	}
	err := c.GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the server")
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("nf", Options{RPS: 1000, Burst: 1000, MaxFailures: 1}, nil, nil)
	for i := 0; i < 3; i++ {
		require.Error(t, c.GetJSON(context.Background(), srv.URL, nil, &struct{}{}))
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestGatherFailSoftKeepsOrder(t *testing.T) {
	keys := []int{1, 2, 3, 4, 5}
	got, err := Gather(context.Background(), keys, 2, nil, func(_ context.Context, k int) (int, error) {
		if k%2 == 0 {
			return 0, errors.New("boom")
		}
		return k * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30, 50}, got)
}

func TestGatherAllFail(t *testing.T) {
	_, err := Gather(context.Background(), []string{"a", "b"}, 0, nil, func(context.Context, string) (int, error) {
		return 0, errors.New("down")
	})
	assert.ErrorIs(t, err, ErrNoStations)
}

func TestLevelsAndConversions(t *testing.T) {
	assert.Equal(t, "dobra", LevelFor(42).Description)
	assert.Equal(t, "umiarkowana", LevelFor(51).Description)
	assert.Equal(t, "niebezpieczna", LevelFor(800).Description)

	assert.Equal(t, float64(0), AQIFromPM25(0))
	assert.Equal(t, float64(50), AQIFromPM25(12))
	assert.Equal(t, float64(100), AQIFromPM25(35.4))

	assert.True(t, InTriCity(54.44, 18.57))
	assert.False(t, InTriCity(52.23, 21.01))
	assert.InDelta(t, 0, DistanceKm(54.4, 18.6, 54.4, 18.6), 1e-9)
	assert.InDelta(t, 111.2, DistanceKm(54, 18, 55, 18), 0.5)
}

type fakeProvider struct {
	name    string
	records []domain.StationRecord
	meas    map[string]domain.Measurements
	near    []domain.NearbyStation
	err     error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchStation(_ context.Context, id string) (domain.Measurements, error) {
	if m, ok := f.meas[id]; ok {
		return m, nil
	}
	return domain.Measurements{}, ErrNotFound
}

func (f *fakeProvider) StationsNear(context.Context, float64, float64, float64) ([]domain.NearbyStation, error) {
	return f.near, f.err
}

func (f *fakeProvider) FetchAll(context.Context) ([]domain.StationRecord, error) {
	return f.records, f.err
}

func TestMulti(t *testing.T) {
	primary := &fakeProvider{name: "a", err: errors.New("down")}
	secondary := &fakeProvider{
		name:    "b",
		records: []domain.StationRecord{{ID: "b-1"}},
		meas:    map[string]domain.Measurements{"x": {AQI: 12}},
		near:    []domain.NearbyStation{{ID: "b-1"}},
	}
	m := NewMulti(nil, primary, secondary)

	recs, err := m.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b-1", recs[0].ID)

	meas, err := m.FetchStation(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, float64(12), meas.AQI)

	_, err = m.FetchStation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	near, err := m.StationsNear(context.Background(), 0, 0, 1)
	require.NoError(t, err)
	assert.Len(t, near, 1)

	_, err = NewMulti(nil, primary).FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrNoStations)
}

func TestProviderMetricsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := NewClient("m", Options{RPS: 1000, Burst: 1000}, nil, metrics.New(reg))
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &struct{}{}))
	n, err := testutil.GatherAndCount(reg, "airrag_provider_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
