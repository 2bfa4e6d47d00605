// Package gios reads stations and sensor data from the Polish Chief
// Inspectorate of Environmental Protection (GIOŚ) API.
package gios

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/provider"
)

const (
	Name     = "gios"
	idPrefix = "gios-"
)

type Config struct {
	BaseURL     string
	Concurrency int
}

// Provider implements domain.StationProvider. GIOŚ needs no credentials.
type Provider struct {
	client *provider.Client
	cfg    Config
	log    *zap.Logger
}

func New(client *provider.Client, cfg Config, log *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.gios.gov.pl/pjp-api/rest"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{client: client, cfg: cfg, log: log}
}

func (p *Provider) Name() string { return Name }

type station struct {
	ID          int    `json:"id"`
	StationName string `json:"stationName"`
	GegrLat     string `json:"gegrLat"`
	GegrLon     string `json:"gegrLon"`
	City        *struct {
		Name string `json:"name"`
	} `json:"city"`
}

func (s station) coords() (lat, lng float64, ok bool) {
	lat, err1 := strconv.ParseFloat(s.GegrLat, 64)
	lng, err2 := strconv.ParseFloat(s.GegrLon, 64)
	return lat, lng, err1 == nil && err2 == nil
}

type sensor struct {
	ID    int `json:"id"`
	Param struct {
		ParamCode string `json:"paramCode"`
	} `json:"param"`
}

type sensorData struct {
	Key    string `json:"key"`
	Values []struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	} `json:"values"`
}

// latest returns the newest non-null value.
func (d sensorData) latest() (float64, string, bool) {
	for _, v := range d.Values {
		if v.Value != nil {
			return *v.Value, v.Date, true
		}
	}
	return 0, "", false
}

func (p *Provider) stations(ctx context.Context) ([]station, error) {
	var out []station
	if err := p.client.GetJSON(ctx, p.cfg.BaseURL+"/station/findAll", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchStation reads the sensor list of a station and then each sensor's
// latest value. Sensors that fail are skipped.
func (p *Provider) FetchStation(ctx context.Context, id string) (domain.Measurements, error) {
	raw := strings.TrimPrefix(id, idPrefix)
	if _, err := strconv.Atoi(raw); err != nil {
		return domain.Measurements{}, fmt.Errorf("gios: invalid station id %q: %w", id, provider.ErrNotFound)
	}
	var sensors []sensor
	if err := p.client.GetJSON(ctx, fmt.Sprintf("%s/station/sensors/%s", p.cfg.BaseURL, raw), nil, &sensors); err != nil {
		return domain.Measurements{}, err
	}
	if len(sensors) == 0 {
		return domain.Measurements{}, fmt.Errorf("gios station %s: %w", raw, provider.ErrNotFound)
	}
	data, err := provider.Gather(ctx, sensors, p.cfg.Concurrency, p.log,
		func(ctx context.Context, s sensor) (sensorData, error) {
			var d sensorData
			err := p.client.GetJSON(ctx, fmt.Sprintf("%s/data/getData/%d", p.cfg.BaseURL, s.ID), nil, &d)
			if d.Key == "" {
				d.Key = s.Param.ParamCode
			}
			return d, err
		})
	if err != nil {
		return domain.Measurements{}, err
	}

	m := domain.Measurements{Source: "GIOŚ"}
	for _, d := range data {
		v, date, ok := d.latest()
		if !ok {
			continue
		}
		if date > m.Timestamp {
			m.Timestamp = date
		}
		val := v
		switch strings.ToUpper(strings.ReplaceAll(d.Key, ".", "")) {
		case "PM25":
			m.PM25 = val
		case "PM10":
			m.PM10 = val
		case "O3":
			m.O3 = &val
		case "NO2":
			m.NO2 = &val
		case "SO2":
			m.SO2 = &val
		case "CO":
			m.CO = &val
		}
	}
	m.AQI = provider.AQIFromPM25(m.PM25)
	return m, nil
}

func (p *Provider) triCity(ctx context.Context) ([]station, error) {
	all, err := p.stations(ctx)
	if err != nil {
		return nil, err
	}
	var out []station
	for _, s := range all {
		if lat, lng, ok := s.coords(); ok && provider.InTriCity(lat, lng) {
			out = append(out, s)
		}
	}
	return out, nil
}

// FetchAll reads every GIOŚ station inside Trójmiasto.
func (p *Provider) FetchAll(ctx context.Context) ([]domain.StationRecord, error) {
	sts, err := p.triCity(ctx)
	if err != nil {
		return nil, err
	}
	return provider.Gather(ctx, sts, p.cfg.Concurrency, p.log,
		func(ctx context.Context, s station) (domain.StationRecord, error) {
			m, err := p.FetchStation(ctx, strconv.Itoa(s.ID))
			if err != nil {
				return domain.StationRecord{}, err
			}
			lat, lng, _ := s.coords()
			rec := domain.StationRecord{
				ID:           fmt.Sprintf("%s%d", idPrefix, s.ID),
				StationName:  s.StationName,
				Coordinates:  [2]float64{lat, lng},
				Measurements: m,
			}
			if s.City != nil {
				rec.Region = s.City.Name
			}
			return rec, nil
		})
}

// StationsNear filters the station list by distance. GIOŚ has no spatial
// query, so the whole list is read and AQI is left at 0.
func (p *Provider) StationsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyStation, error) {
	all, err := p.stations(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.NearbyStation
	for _, s := range all {
		slat, slng, ok := s.coords()
		if !ok || provider.DistanceKm(lat, lng, slat, slng) > radiusKm {
			continue
		}
		out = append(out, domain.NearbyStation{ID: fmt.Sprintf("%s%d", idPrefix, s.ID), Name: s.StationName, Lat: slat, Lng: slng})
	}
	return out, nil
}
