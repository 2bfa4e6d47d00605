// Package airly reads installations and measurements from the Airly API.
package airly

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/provider"
)

const (
	Name     = "airly"
	idPrefix = "airly-"

	defaultRadiusKm   = 30
	defaultMaxResults = 100
)

type Config struct {
	BaseURL     string
	APIKey      string
	Concurrency int
}

// Provider implements domain.StationProvider.
type Provider struct {
	client *provider.Client
	cfg    Config
	header http.Header
	log    *zap.Logger
}

func New(client *provider.Client, cfg Config, log *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("airly: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://airapi.airly.eu/v2"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = zap.NewNop()
	}
	h := http.Header{}
	h.Set("apikey", cfg.APIKey)
	return &Provider{client: client, cfg: cfg, header: h, log: log}, nil
}

func (p *Provider) Name() string { return Name }

type installation struct {
	ID       int `json:"id"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Address struct {
		City        string `json:"city"`
		Street      string `json:"street"`
		Description string `json:"description"`
	} `json:"address"`
}

func (i installation) name() string {
	if i.Address.Description != "" {
		return i.Address.Description
	}
	if i.Address.Street != "" {
		return strings.TrimSpace(i.Address.City + " " + i.Address.Street)
	}
	return fmt.Sprintf("Airly %d", i.ID)
}

type measurementsResponse struct {
	Current struct {
		TillDateTime string `json:"tillDateTime"`
		Values       []struct {
			Name  string  `json:"name"`
			Value float64 `json:"value"`
		} `json:"values"`
		Indexes []struct {
			Name  string   `json:"name"`
			Value *float64 `json:"value"`
			Level string   `json:"level"`
		} `json:"indexes"`
	} `json:"current"`
}

func (m measurementsResponse) toDomain() domain.Measurements {
	out := domain.Measurements{Timestamp: m.Current.TillDateTime, Source: "Airly"}
	if len(m.Current.Indexes) > 0 && m.Current.Indexes[0].Value != nil {
		out.AQI = *m.Current.Indexes[0].Value
	}
	for _, v := range m.Current.Values {
		val := v.Value
		switch v.Name {
		case "PM25":
			out.PM25 = val
		case "PM10":
			out.PM10 = val
		case "O3":
			out.O3 = &val
		case "NO2":
			out.NO2 = &val
		case "SO2":
			out.SO2 = &val
		case "CO":
			out.CO = &val
		case "HUMIDITY":
			out.Humidity = &val
		case "PRESSURE":
			out.Pressure = &val
		case "TEMPERATURE":
			out.Temperature = &val
		case "WIND_SPEED":
			out.Wind = &val
		}
	}
	return out
}

func (p *Provider) nearest(ctx context.Context, lat, lng, radiusKm float64) ([]installation, error) {
	u := fmt.Sprintf("%s/installations/nearest?lat=%f&lng=%f&maxDistanceKM=%g&maxResults=%d",
		p.cfg.BaseURL, lat, lng, radiusKm, defaultMaxResults)
	var out []installation
	if err := p.client.GetJSON(ctx, u, p.header, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Provider) measurements(ctx context.Context, installationID string) (domain.Measurements, error) {
	u := fmt.Sprintf("%s/measurements/installation?installationId=%s", p.cfg.BaseURL, url.QueryEscape(installationID))
	var m measurementsResponse
	if err := p.client.GetJSON(ctx, u, p.header, &m); err != nil {
		return domain.Measurements{}, err
	}
	return m.toDomain(), nil
}

// FetchStation accepts either a bare installation id or "airly-<id>".
func (p *Provider) FetchStation(ctx context.Context, id string) (domain.Measurements, error) {
	return p.measurements(ctx, strings.TrimPrefix(id, idPrefix))
}

// FetchAll lists installations within 30 km of the Trójmiasto centre, then
// reads their measurements in parallel, dropping installations that fail.
func (p *Provider) FetchAll(ctx context.Context) ([]domain.StationRecord, error) {
	insts, err := p.nearest(ctx, provider.TriCityLat, provider.TriCityLng, defaultRadiusKm)
	if err != nil {
		return nil, err
	}
	return provider.Gather(ctx, insts, p.cfg.Concurrency, p.log,
		func(ctx context.Context, in installation) (domain.StationRecord, error) {
			m, err := p.measurements(ctx, fmt.Sprint(in.ID))
			if err != nil {
				return domain.StationRecord{}, err
			}
			return domain.StationRecord{
				ID:           fmt.Sprintf("%s%d", idPrefix, in.ID),
				StationName:  in.name(),
				Region:       in.Address.City,
				Coordinates:  [2]float64{in.Location.Latitude, in.Location.Longitude},
				Measurements: m,
			}, nil
		})
}

// StationsNear lists installations within radiusKm, with their current
// index. Installations whose measurements fail are still listed with AQI 0.
func (p *Provider) StationsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyStation, error) {
	insts, err := p.nearest(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, err
	}
	if len(insts) == 0 {
		return nil, nil
	}
	return provider.Gather(ctx, insts, p.cfg.Concurrency, p.log,
		func(ctx context.Context, in installation) (domain.NearbyStation, error) {
			ns := domain.NearbyStation{
				ID:   fmt.Sprintf("%s%d", idPrefix, in.ID),
				Name: in.name(),
				Lat:  in.Location.Latitude,
				Lng:  in.Location.Longitude,
			}
			if m, err := p.measurements(ctx, fmt.Sprint(in.ID)); err == nil {
				ns.AQI = m.AQI
			}
			return ns, nil
		})
}
