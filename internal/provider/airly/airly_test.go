package airly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/provider"
)

func newProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := provider.NewClient(Name, provider.Options{RPS: 1000, Burst: 1000}, nil, nil)
	p, err := New(c, Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	require.NoError(t, err)
	return p
}

const measurementsBody = `{"current":{"tillDateTime":"2026-10-16T10:00:00Z",
 "values":[{"name":"PM25","value":8.2},{"name":"PM10","value":14},{"name":"TEMPERATURE","value":11}],
 "indexes":[{"name":"AIRLY_CAQI","value":17.5,"level":"VERY_LOW"}]}}`

func handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("apikey"))
		switch r.URL.Path {
		case "/installations/nearest":
			_, _ = w.Write([]byte(`[
			 {"id":1,"location":{"latitude":54.44,"longitude":18.56},"address":{"city":"Sopot","street":"Monte Cassino"}},
			 {"id":2,"location":{"latitude":54.52,"longitude":18.53},"address":{"city":"Gdynia","description":"Gdynia Port"}}]`))
		case "/measurements/installation":
			if r.URL.Query().Get("installationId") == "2" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(measurementsBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(nil, Config{}, nil)
	assert.Error(t, err)
}

func TestFetchStation(t *testing.T) {
	p := newProvider(t, handler(t))
	m, err := p.FetchStation(context.Background(), "airly-1")
	require.NoError(t, err)
	assert.Equal(t, 17.5, m.AQI)
	assert.Equal(t, 8.2, m.PM25)
	assert.Equal(t, float64(14), m.PM10)
	require.NotNil(t, m.Temperature)
	assert.Equal(t, "Airly", m.Source)
}

func TestFetchAllSkipsFailedInstallations(t *testing.T) {
	p := newProvider(t, handler(t))
	recs, err := p.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "airly-1", recs[0].ID)
	assert.Equal(t, "Sopot Monte Cassino", recs[0].StationName)
	assert.Equal(t, "Sopot", recs[0].Region)
}

func TestStationsNearKeepsStationsWithoutMeasurements(t *testing.T) {
	p := newProvider(t, handler(t))
	got, err := p.StationsNear(context.Background(), 54.4, 18.6, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 17.5, got[0].AQI)
	assert.Equal(t, "Gdynia Port", got[1].Name)
	assert.Equal(t, float64(0), got[1].AQI)
}
