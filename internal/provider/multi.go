package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"airrag/internal/domain"
)

// Multi combines several providers. The first provider is the primary one.
type Multi struct {
	providers []domain.StationProvider
	log       *zap.Logger
}

func NewMulti(log *zap.Logger, providers ...domain.StationProvider) *Multi {
	if log == nil {
		log = zap.NewNop()
	}
	return &Multi{providers: providers, log: log}
}

func (m *Multi) Name() string { return "multi" }

// Providers returns the configured providers in priority order.
func (m *Multi) Providers() []domain.StationProvider { return m.providers }

// FetchStation asks each provider in turn until one knows the station.
func (m *Multi) FetchStation(ctx context.Context, id string) (domain.Measurements, error) {
	var errs []error
	for _, p := range m.providers {
		meas, err := p.FetchStation(ctx, id)
		if err == nil {
			return meas, nil
		}
		if ctx.Err() != nil {
			return domain.Measurements{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return domain.Measurements{}, fmt.Errorf("station %s: %w", id, ErrNotFound)
	}
	return domain.Measurements{}, errors.Join(errs...)
}

// FetchAll concatenates every provider's stations. A provider that fails
// is skipped; ErrNoStations is returned only when none returned anything.
func (m *Multi) FetchAll(ctx context.Context) ([]domain.StationRecord, error) {
	parts, err := Gather(ctx, m.providers, 0, m.log,
		func(ctx context.Context, p domain.StationProvider) ([]domain.StationRecord, error) {
			recs, err := p.FetchAll(ctx)
			if err != nil {
				m.log.Warn("provider fetch failed", zap.String("provider", p.Name()), zap.Error(err))
			}
			return recs, err
		})
	if err != nil {
		return nil, err
	}
	var out []domain.StationRecord
	for _, recs := range parts {
		out = append(out, recs...)
	}
	if len(out) == 0 {
		return nil, ErrNoStations
	}
	return out, nil
}

// StationsNear returns the first non-empty answer in priority order.
func (m *Multi) StationsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyStation, error) {
	var lastErr error
	for _, p := range m.providers {
		out, err := p.StationsNear(ctx, lat, lng, radiusKm)
		if err != nil {
			lastErr = err
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, lastErr
}
