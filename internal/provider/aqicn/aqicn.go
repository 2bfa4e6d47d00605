// Package aqicn reads station data from the World Air Quality Index
// (api.waqi.info).
package aqicn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/provider"
)

const Name = "aqicn"

// Station is a known WAQI feed in the Trójmiasto area.
type Station struct {
	ID     string
	Name   string
	Region string
}

// DefaultStations are the feeds fetched by FetchAll.
var DefaultStations = []Station{
	{ID: "@2684", Name: "Gdańsk Wrzeszcz", Region: "Gdańsk"},
	{ID: "@2683", Name: "Gdańsk Śródmieście", Region: "Gdańsk"},
	{ID: "@2685", Name: "Gdańsk Stogi", Region: "Gdańsk"},
	{ID: "@2682", Name: "Gdańsk Nowy Port", Region: "Gdańsk"},
	{ID: "@2687", Name: "Gdynia Pogórze", Region: "Gdynia"},
	{ID: "@2686", Name: "Gdynia Śródmieście", Region: "Gdynia"},
	{ID: "@2688", Name: "Sopot", Region: "Sopot"},
}

type Config struct {
	BaseURL     string
	Token       string
	Stations    []Station
	Concurrency int
	// HistoryWindow is how far back FetchAll reads station history.
	// Zero disables history.
	HistoryWindow time.Duration
}

// Provider implements domain.StationProvider.
type Provider struct {
	client *provider.Client
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

func New(client *provider.Client, cfg Config, log *zap.Logger) (*Provider, error) {
	if cfg.Token == "" {
		return nil, errors.New("aqicn: missing token")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.waqi.info"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Stations == nil {
		cfg.Stations = DefaultStations
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{client: client, cfg: cfg, log: log, now: time.Now}, nil
}

func (p *Provider) Name() string { return Name }

// number accepts WAQI values that are sometimes numbers, sometimes numeric
// strings and sometimes "-" for no data.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

type iaqiValue struct {
	V number `json:"v"`
}

type iaqi map[string]iaqiValue

func (m iaqi) value(key string) float64 { return float64(m[key].V) }

func (m iaqi) optional(key string) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	return domain.Float(float64(v.V))
}

type feedData struct {
	AQI  number `json:"aqi"`
	Idx  int    `json:"idx"`
	City struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
	} `json:"city"`
	IAQI iaqi `json:"iaqi"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
}

func (p *Provider) feed(ctx context.Context, id string) (feedData, error) {
	var env envelope[json.RawMessage]
	u := fmt.Sprintf("%s/feed/%s/?token=%s", p.cfg.BaseURL, url.PathEscape(id), url.QueryEscape(p.cfg.Token))
	if err := p.client.GetJSON(ctx, u, nil, &env); err != nil {
		return feedData{}, err
	}
	if env.Status != "ok" {
		// on error WAQI puts a message string in data
		var msg string
		_ = json.Unmarshal(env.Data, &msg)
		if strings.Contains(strings.ToLower(msg), "unknown station") {
			return feedData{}, fmt.Errorf("aqicn %s: %w", id, provider.ErrNotFound)
		}
		return feedData{}, fmt.Errorf("aqicn %s: status %q: %s", id, env.Status, msg)
	}
	var d feedData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return feedData{}, fmt.Errorf("aqicn %s: decode feed: %w", id, err)
	}
	return d, nil
}

func measurements(d feedData) domain.Measurements {
	return domain.Measurements{
		AQI:         float64(d.AQI),
		PM25:        d.IAQI.value("pm25"),
		PM10:        d.IAQI.value("pm10"),
		O3:          d.IAQI.optional("o3"),
		NO2:         d.IAQI.optional("no2"),
		SO2:         d.IAQI.optional("so2"),
		CO:          d.IAQI.optional("co"),
		Humidity:    d.IAQI.optional("h"),
		Pressure:    d.IAQI.optional("p"),
		Temperature: d.IAQI.optional("t"),
		Wind:        d.IAQI.optional("w"),
		Timestamp:   d.Time.ISO,
		Source:      "AQICN",
	}
}

// FetchStation reads the current feed of one station, e.g. "@2688".
func (p *Provider) FetchStation(ctx context.Context, id string) (domain.Measurements, error) {
	d, err := p.feed(ctx, id)
	if err != nil {
		return domain.Measurements{}, err
	}
	return measurements(d), nil
}

// FetchAll reads every configured station in parallel. Stations that fail
// are dropped. History is read after the current feed and is best effort.
func (p *Provider) FetchAll(ctx context.Context) ([]domain.StationRecord, error) {
	return provider.Gather(ctx, p.cfg.Stations, p.cfg.Concurrency, p.log,
		func(ctx context.Context, st Station) (domain.StationRecord, error) {
			d, err := p.feed(ctx, st.ID)
			if err != nil {
				return domain.StationRecord{}, err
			}
			rec := domain.StationRecord{
				ID:           fmt.Sprintf("aqicn-%d", d.Idx),
				StationName:  st.Name,
				Region:       st.Region,
				Measurements: measurements(d),
			}
			if len(d.City.Geo) == 2 {
				rec.Coordinates = [2]float64{d.City.Geo[0], d.City.Geo[1]}
			}
			if p.cfg.HistoryWindow > 0 {
				hist, err := p.history(ctx, st.ID)
				if err != nil {
					p.log.Debug("history unavailable", zap.String("station", st.ID), zap.Error(err))
				}
				rec.History = hist
			}
			return rec, nil
		})
}

type historyItem struct {
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
	IAQI iaqi `json:"iaqi"`
}

var historyKeys = map[string]string{
	"pm25": "pm25", "pm10": "pm10", "o3": "o3", "no2": "no2", "so2": "so2", "co": "co",
	"h": "humidity", "p": "pressure", "t": "temperature", "w": "wind",
}

func (p *Provider) history(ctx context.Context, id string) ([]domain.HistoryPoint, error) {
	end := p.now().UTC()
	start := end.Add(-p.cfg.HistoryWindow)
	u := fmt.Sprintf("%s/feed/%s/history/?token=%s&start=%s&end=%s", p.cfg.BaseURL, url.PathEscape(id),
		url.QueryEscape(p.cfg.Token), url.QueryEscape(start.Format(time.RFC3339)), url.QueryEscape(end.Format(time.RFC3339)))
	var env envelope[[]historyItem]
	if err := p.client.GetJSON(ctx, u, nil, &env); err != nil {
		return nil, err
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("aqicn history %s: status %q", id, env.Status)
	}
	out := make([]domain.HistoryPoint, 0, len(env.Data))
	for _, item := range env.Data {
		values := make(map[string]float64, len(historyKeys))
		for src, dst := range historyKeys {
			values[dst] = item.IAQI.value(src)
		}
		out = append(out, domain.HistoryPoint{Timestamp: item.Time.ISO, Values: values})
	}
	return out, nil
}

type boundsStation struct {
	UID     int     `json:"uid"`
	AQI     number  `json:"aqi"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Station struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
	} `json:"station"`
}

// StationsNear lists stations inside a square of side 2×radiusKm centred
// on lat/lng, using about 111 km per degree.
func (p *Provider) StationsNear(ctx context.Context, lat, lng, radiusKm float64) ([]domain.NearbyStation, error) {
	d := radiusKm / 111
	latlng := fmt.Sprintf("%f,%f,%f,%f", lat-d, lng-d, lat+d, lng+d)
	u := fmt.Sprintf("%s/map/bounds/?latlng=%s&token=%s", p.cfg.BaseURL, latlng, url.QueryEscape(p.cfg.Token))
	var env envelope[[]boundsStation]
	if err := p.client.GetJSON(ctx, u, nil, &env); err != nil {
		return nil, err
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("aqicn bounds: status %q", env.Status)
	}
	out := make([]domain.NearbyStation, 0, len(env.Data))
	for _, s := range env.Data {
		ns := domain.NearbyStation{ID: fmt.Sprintf("@%d", s.UID), Name: s.Station.Name, AQI: float64(s.AQI), Lat: s.Lat, Lng: s.Lon}
		if ns.Lat == 0 && ns.Lng == 0 && len(s.Station.Geo) == 2 {
			ns.Lat, ns.Lng = s.Station.Geo[0], s.Station.Geo[1]
		}
		out = append(out, ns)
	}
	return out, nil
}
