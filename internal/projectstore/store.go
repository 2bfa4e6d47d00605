// Package projectstore holds the current project snapshot and the most
// recently fetched air-quality stations.
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"airrag/internal/domain"
)

// ErrNoStations is returned when a refresh yields no usable station.
var ErrNoStations = errors.New("projectstore: no stations available")

// DefaultSources is the regional energy mix assumed when a project has no
// air-quality section of its own.
var DefaultSources = domain.EnergySources{Coal: 60, Wind: 15, Biomass: 10, Other: 15}

// StationFetcher loads every station a provider knows about.
type StationFetcher interface {
	FetchAll(ctx context.Context) ([]domain.StationRecord, error)
}

// Store values are replaced wholesale; callers always receive copies.
type Store struct {
	mu       sync.RWMutex
	project  *domain.ProjectData
	stations []domain.StationRecord
}

func New() *Store { return &Store{} }

// Set replaces the project snapshot.
func (s *Store) Set(p domain.ProjectData) {
	c := p.Clone()
	s.mu.Lock()
	s.project = &c
	s.mu.Unlock()
}

// Clear drops the project snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	s.project = nil
	s.mu.Unlock()
}

// Get returns a copy of the snapshot, or nil when none is loaded.
func (s *Store) Get() *domain.ProjectData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.project == nil {
		return nil
	}
	c := s.project.Clone()
	return &c
}

// SetStations replaces the station cache.
func (s *Store) SetStations(stations []domain.StationRecord) {
	cp := append([]domain.StationRecord(nil), stations...)
	s.mu.Lock()
	s.stations = cp
	s.mu.Unlock()
}

// Stations returns the cached stations.
func (s *Store) Stations() []domain.StationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StationRecord(nil), s.stations...)
}

// StationByName matches name as a case-insensitive substring of a station
// name first, then of a region.
func (s *Store) StationByName(name string) (domain.StationRecord, bool) {
	q := strings.ToLower(strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stations {
		if strings.Contains(strings.ToLower(st.StationName), q) {
			return st, true
		}
	}
	for _, st := range s.stations {
		if strings.Contains(strings.ToLower(st.Region), q) {
			return st, true
		}
	}
	return domain.StationRecord{}, false
}

// RefreshStations fetches every station into the cache. On failure the
// previous cache is kept.
func (s *Store) RefreshStations(ctx context.Context, f StationFetcher) ([]domain.StationRecord, error) {
	stations, err := f.FetchAll(ctx)
	if err != nil {
		return s.Stations(), fmt.Errorf("refresh stations: %w", err)
	}
	if len(stations) == 0 {
		return s.Stations(), ErrNoStations
	}
	s.SetStations(stations)
	return stations, nil
}

// RefreshProjectAirQuality refreshes the station cache and sets the
// project's current air quality to the mean station AQI. It returns the
// updated snapshot, or the unchanged one when the refresh fails. With no
// project loaded only the cache is refreshed.
func (s *Store) RefreshProjectAirQuality(ctx context.Context, f StationFetcher) (*domain.ProjectData, error) {
	stations, err := s.RefreshStations(ctx, f)
	if err != nil {
		return s.Get(), err
	}
	sum := 0.0
	for _, st := range stations {
		sum += st.Measurements.AQI
	}
	avg := sum / float64(len(stations))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil, nil
	}
	next := s.project.Clone()
	if next.AirQuality == nil {
		next.AirQuality = &domain.AirQuality{Sources: DefaultSources}
	}
	next.AirQuality.Current = avg
	s.project = &next
	c := next.Clone()
	return &c, nil
}
