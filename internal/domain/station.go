package domain

// Measurements is one reading from an air-quality station. Optional
// pollutants and weather values are nil when the provider did not report them.
type Measurements struct {
	AQI         float64  `json:"aqi"`
	PM25        float64  `json:"pm25"`
	PM10        float64  `json:"pm10"`
	O3          *float64 `json:"o3,omitempty"`
	NO2         *float64 `json:"no2,omitempty"`
	SO2         *float64 `json:"so2,omitempty"`
	CO          *float64 `json:"co,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Wind        *float64 `json:"wind,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
}

type HistoryPoint struct {
	Timestamp string             `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// StationRecord is a station with its latest measurements.
type StationRecord struct {
	ID           string         `json:"id"`
	StationName  string         `json:"stationName"`
	Region       string         `json:"region"`
	Coordinates  [2]float64     `json:"coordinates"`
	Measurements Measurements   `json:"measurements"`
	History      []HistoryPoint `json:"history,omitempty"`
}

// NearbyStation is the short form returned by a bounding-box search.
type NearbyStation struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	AQI  float64 `json:"aqi"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Float returns a pointer to v, for optional measurement fields.
func Float(v float64) *float64 { return &v }
