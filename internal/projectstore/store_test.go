package projectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
)

type fetcher struct {
	stations []domain.StationRecord
	err      error
}

func (f fetcher) FetchAll(context.Context) ([]domain.StationRecord, error) {
	return f.stations, f.err
}

func stations() []domain.StationRecord {
	return []domain.StationRecord{
		{ID: "2684", StationName: "Gdańsk Wrzeszcz", Region: "Gdańsk", Measurements: domain.Measurements{AQI: 30}},
		{ID: "2686", StationName: "Gdynia Śródmieście", Region: "Gdynia", Measurements: domain.Measurements{AQI: 50}},
		{ID: "2688", StationName: "Sopot", Region: "Sopot", Measurements: domain.Measurements{AQI: 40}},
	}
}

func TestStore_SetGetIsolatesCopies(t *testing.T) {
	s := New()
	assert.Nil(t, s.Get())

	p := domain.ProjectData{Name: "p", Efficiency: []domain.EfficiencyPoint{{Period: "Maj", Value: 70}}}
	s.Set(p)
	p.Efficiency[0].Value = 1

	got := s.Get()
	require.NotNil(t, got)
	assert.Equal(t, 70.0, got.Efficiency[0].Value)
	got.Efficiency[0].Value = 2
	assert.Equal(t, 70.0, s.Get().Efficiency[0].Value)

	s.Clear()
	assert.Nil(t, s.Get())
}

func TestStore_StationByName(t *testing.T) {
	s := New()
	s.SetStations(stations())

	st, ok := s.StationByName("wrzeszcz")
	require.True(t, ok)
	assert.Equal(t, "2684", st.ID)

	st, ok = s.StationByName("GDYNIA")
	require.True(t, ok)
	assert.Equal(t, "2686", st.ID)

	_, ok = s.StationByName("Kraków")
	assert.False(t, ok)
}

func TestStore_RefreshProjectAirQuality(t *testing.T) {
	s := New()
	s.Set(domain.ProjectData{Name: "p"})

	p, err := s.RefreshProjectAirQuality(context.Background(), fetcher{stations: stations()})
	require.NoError(t, err)
	require.NotNil(t, p.AirQuality)
	assert.InDelta(t, 40.0, p.AirQuality.Current, 1e-9)
	assert.Equal(t, DefaultSources, p.AirQuality.Sources)
	assert.Len(t, s.Stations(), 3)
	assert.InDelta(t, 40.0, s.Get().AirQuality.Current, 1e-9)
}

func TestStore_RefreshKeepsCacheOnFailure(t *testing.T) {
	s := New()
	s.SetStations(stations())
	s.Set(domain.ProjectData{Name: "p", AirQuality: &domain.AirQuality{Current: 12}})

	p, err := s.RefreshProjectAirQuality(context.Background(), fetcher{err: errors.New("down")})
	require.Error(t, err)
	assert.Equal(t, 12.0, p.AirQuality.Current)
	assert.Len(t, s.Stations(), 3)

	_, err = s.RefreshProjectAirQuality(context.Background(), fetcher{})
	require.ErrorIs(t, err, ErrNoStations)
}
