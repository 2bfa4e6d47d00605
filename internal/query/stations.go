package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/provider"
	"airrag/internal/sensors"
)

const (
	nearbyRadiusKm  = 10
	maxVisualized   = 3
	unitMicrograms  = "µg/m³"
	tricityLocation = "Trójmiasta"
)

// station fetches live data for the station named in the query, or the
// default station, and reports it in detail.
func (r *Router) station(ctx context.Context, in request) domain.SensorResponse {
	r.warmCache(ctx)

	loc, _ := r.kw.Station.Locate(in.q)
	log := r.deps.Log.With(zap.String("station", loc.StationID))
	if r.deps.Stations == nil {
		log.Warn("no station provider configured")
		return domain.SensorResponse{Text: fmt.Sprintf(msgStationUnavailable, loc.StationName)}
	}
	m, err := r.deps.Stations.FetchStation(ctx, loc.StationID)
	if err != nil {
		log.Warn("station fetch failed", zap.Error(err))
		return domain.SensorResponse{Text: fmt.Sprintf(msgStationUnavailable, loc.StationName)}
	}

	rec := domain.StationRecord{
		ID:           loc.StationID,
		StationName:  loc.StationName,
		Coordinates:  [2]float64{loc.Lat, loc.Lng},
		Measurements: m,
	}
	return domain.SensorResponse{
		Text: stationReport(rec),
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationAirQuality,
			Title: "Stacja pomiarowa: " + loc.StationName,
			Data:  rec,
		}},
	}
}

// warmCache fills the station cache on first use. Failures only log.
func (r *Router) warmCache(ctx context.Context) {
	if r.deps.Stations == nil || len(r.deps.Projects.Stations()) > 0 {
		return
	}
	if _, err := r.deps.Projects.RefreshStations(ctx, r.deps.Stations); err != nil {
		r.deps.Log.Debug("station cache refresh failed", zap.Error(err))
	}
}

func stationReport(rec domain.StationRecord) string {
	m := rec.Measurements
	level := provider.LevelFor(m.AQI)

	var b strings.Builder
	fmt.Fprintf(&b, "Raport jakości powietrza dla stacji %s:\n\n", rec.StationName)
	fmt.Fprintf(&b, "AQI: %s (jakość %s)\n", num(m.AQI), level.Description)
	fmt.Fprintf(&b, "Zalecenia zdrowotne: %s\n\n", level.Advice)
	b.WriteString("Szczegółowe pomiary:\n")
	fmt.Fprintf(&b, "- PM2.5: %s %s\n", num(m.PM25), unitMicrograms)
	fmt.Fprintf(&b, "- PM10: %s %s\n", num(m.PM10), unitMicrograms)
	if m.O3 != nil {
		fmt.Fprintf(&b, "- O3: %s %s\n", num(*m.O3), unitMicrograms)
	}
	if m.NO2 != nil {
		fmt.Fprintf(&b, "- NO2: %s %s\n", num(*m.NO2), unitMicrograms)
	}
	fmt.Fprintf(&b, "- Temperatura: %s°C\n", optional(m.Temperature))
	fmt.Fprintf(&b, "- Wilgotność: %s%%\n", optional(m.Humidity))
	fmt.Fprintf(&b, "- Ciśnienie: %s hPa", optional(m.Pressure))
	if m.Timestamp != "" {
		fmt.Fprintf(&b, "\n\nOstatnia aktualizacja: %s", m.Timestamp)
	}
	return b.String()
}

// mapData lists stations, either the cached list or those near the place
// named in the query.
func (r *Router) mapData(ctx context.Context, in request) domain.SensorResponse {
	if r.kw.StationList.Match(in.q) {
		return r.stationList(ctx)
	}
	if r.deps.Stations == nil {
		return domain.SensorResponse{Text: msgMapFailed}
	}

	lat, lng, where := provider.TriCityLat, provider.TriCityLng, tricityLocation
	if loc, ok := r.kw.Station.Locate(in.q); ok {
		lat, lng, where = loc.Lat, loc.Lng, loc.StationName
	}
	near, err := r.deps.Stations.StationsNear(ctx, lat, lng, nearbyRadiusKm)
	if err != nil {
		r.deps.Log.Warn("nearby station lookup failed", zap.Error(err))
		return domain.SensorResponse{Text: msgMapFailed}
	}
	if len(near) == 0 {
		return domain.SensorResponse{Text: fmt.Sprintf(msgNoNearby, where)}
	}

	lines := make([]string, len(near))
	for i, s := range near {
		lines[i] = fmt.Sprintf("- %s: AQI %s (%.4f, %.4f)", s.Name, num(s.AQI), s.Lat, s.Lng)
	}
	return domain.SensorResponse{
		Text: fmt.Sprintf("Stacje pomiarowe w pobliżu %s:\n%s", where, strings.Join(lines, "\n")),
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationStationList,
			Title: "Stacje w pobliżu " + where,
			Data:  near,
		}},
	}
}

func (r *Router) stationList(ctx context.Context) domain.SensorResponse {
	r.warmCache(ctx)
	stations := r.deps.Projects.Stations()
	if len(stations) == 0 {
		return domain.SensorResponse{Text: msgNoStations}
	}
	lines := make([]string, len(stations))
	for i, s := range stations {
		lines[i] = fmt.Sprintf("- %s (%s): AQI %s", s.StationName, s.Region, num(s.Measurements.AQI))
	}
	return domain.SensorResponse{
		Text: "Lista stacji pomiarowych:\n" + strings.Join(lines, "\n"),
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationStationList,
			Title: "Lista stacji",
			Data:  stations,
		}},
	}
}

// sensorData reads live pollutant values from the station for the place
// named in the query.
func (r *Router) sensorData(ctx context.Context, in request) domain.SensorResponse {
	loc, _ := r.kw.Station.Locate(in.q)
	if r.deps.Stations == nil {
		return domain.SensorResponse{Text: fmt.Sprintf(msgSensorUnavailable, loc.StationName)}
	}
	m, err := r.deps.Stations.FetchStation(ctx, loc.StationID)
	if err != nil {
		r.deps.Log.Warn("sensor fetch failed", zap.String("station", loc.StationID), zap.Error(err))
		return domain.SensorResponse{Text: fmt.Sprintf(msgSensorUnavailable, loc.StationName)}
	}
	readings := readingsFrom(m)

	if st, ok := r.kw.RAG.SensorType(in.q); ok {
		if rd, found := sensors.Find(readings, st.Reading); found {
			return singleReading(rd, loc.StationName)
		}
	}
	return readingList(readings, "Odczyty czujników ze stacji "+loc.StationName+":")
}

// localData answers from the cached stations without any network call.
func (r *Router) localData(_ context.Context, in request) domain.SensorResponse {
	stations := r.deps.Projects.Stations()
	if len(stations) == 0 {
		return domain.SensorResponse{Text: MsgNotFound}
	}

	var (
		rec   domain.StationRecord
		found bool
	)
	for _, s := range stations {
		if name := strings.ToLower(s.StationName); name != "" && strings.Contains(in.q, name) {
			rec, found = s, true
			break
		}
	}
	if !found {
		if loc, ok := r.kw.Station.Locate(in.q); ok {
			rec, found = r.deps.Projects.StationByName(loc.StationName)
			if !found {
				rec, found = r.deps.Projects.StationByName(firstWord(loc.StationName))
			}
		}
	}
	if !found {
		return domain.SensorResponse{Text: MsgNotFound}
	}

	m := rec.Measurements
	text := fmt.Sprintf("Dane ze stacji pomiarowej %s (%s):\n\nIndeks jakości powietrza (AQI): %s - jakość %s\nPM2.5: %s %s\nPM10: %s %s",
		rec.StationName, rec.Region, num(m.AQI), provider.LevelFor(m.AQI).Description,
		num(m.PM25), unitMicrograms, num(m.PM10), unitMicrograms)
	if m.Temperature != nil {
		text += fmt.Sprintf("\nTemperatura: %s°C", num(*m.Temperature))
	}
	if m.Humidity != nil {
		text += fmt.Sprintf("\nWilgotność: %s%%", num(*m.Humidity))
	}
	if m.Timestamp != "" {
		text += "\n\nOstatnia aktualizacja: " + m.Timestamp
	}
	return domain.SensorResponse{
		Text: text,
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationAirQuality,
			Title: "Stacja pomiarowa: " + rec.StationName,
			Data:  rec,
		}},
	}
}

// readingsFrom turns station measurements into sensor readings, skipping
// values the station did not report.
func readingsFrom(m domain.Measurements) []domain.SensorReading {
	level := provider.LevelFor(m.AQI)
	out := []domain.SensorReading{
		{Name: "Indeks AQI", Value: m.AQI, Status: level.Description, Trend: domain.TrendStable, Description: level.Advice},
		{Name: "PM2.5", Value: m.PM25, Unit: unitMicrograms, Status: level.Description, Trend: domain.TrendStable, Description: "Pył zawieszony PM2.5"},
		{Name: "PM10", Value: m.PM10, Unit: unitMicrograms, Status: level.Description, Trend: domain.TrendStable, Description: "Pył zawieszony PM10"},
	}
	add := func(name string, v *float64, unit, desc string) {
		if v != nil {
			out = append(out, domain.SensorReading{Name: name, Value: *v, Unit: unit, Status: "Pomiar", Trend: domain.TrendStable, Description: desc})
		}
	}
	add("O₃", m.O3, unitMicrograms, "Ozon")
	add("NO₂", m.NO2, unitMicrograms, "Dwutlenek azotu")
	add("SO₂", m.SO2, unitMicrograms, "Dwutlenek siarki")
	add("CO", m.CO, unitMicrograms, "Tlenek węgla")
	add("Temperatura", m.Temperature, "°C", "Temperatura powietrza")
	add("Wilgotność", m.Humidity, "%", "Wilgotność względna")
	add("Ciśnienie", m.Pressure, "hPa", "Ciśnienie atmosferyczne")
	return out
}

func singleReading(rd domain.SensorReading, where string) domain.SensorResponse {
	desc := rd.Description
	if desc == "" {
		desc = rd.Status
	}
	text := fmt.Sprintf("Aktualny odczyt dla %s: %s%s. %s", rd.Name, num(rd.Value), rd.Unit, desc)
	if where != "" {
		text = fmt.Sprintf("Aktualny odczyt dla %s (%s): %s%s. %s", rd.Name, where, num(rd.Value), rd.Unit, desc)
	}
	return domain.SensorResponse{
		Text:           strings.TrimSpace(text),
		Visualizations: []domain.Visualization{readingViz(rd)},
	}
}

// readingList lists every reading and attaches at most maxVisualized
// widgets.
func readingList(readings []domain.SensorReading, header string) domain.SensorResponse {
	lines := make([]string, len(readings))
	for i, s := range readings {
		desc := s.Description
		if desc == "" {
			desc = s.Status
		}
		lines[i] = fmt.Sprintf("%s: %s%s (%s)", s.Name, num(s.Value), s.Unit, desc)
	}
	n := min(len(readings), maxVisualized)
	viz := make([]domain.Visualization, n)
	for i := range n {
		viz[i] = readingViz(readings[i])
	}
	return domain.SensorResponse{
		Text:           header + "\n\n" + strings.Join(lines, "\n"),
		Visualizations: viz,
	}
}

func readingViz(s domain.SensorReading) domain.Visualization {
	trend := s.Trend
	if trend == "" {
		trend = domain.TrendStable
	}
	return domain.Visualization{
		Type:  domain.VisualizationSensorReading,
		Title: "Czujnik " + s.Name,
		Data: domain.SensorReadingData{
			Name:        s.Name,
			Value:       num(s.Value),
			Unit:        s.Unit,
			Trend:       trend,
			Description: s.Description,
		},
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return noData
	}
	return num(*v)
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return s
}
