package domain

// ProjectData is one coherent snapshot of a monitored area. Sequences are
// chronological; the last element is the most recent period.
type ProjectData struct {
	Name           string             `json:"name"`
	Efficiency     []EfficiencyPoint  `json:"efficiency"`
	Correlation    []CorrelationPoint `json:"correlation"`
	SensorReadings []SensorReading    `json:"sensorReadings,omitempty"`
	AirQuality     *AirQuality        `json:"airQuality,omitempty"`
}

type EfficiencyPoint struct {
	Period        string   `json:"name"`
	Value         float64  `json:"value"`
	ForecastValue *float64 `json:"forecastValue,omitempty"`
}

type CorrelationPoint struct {
	Period      string  `json:"name"`
	Consumption float64 `json:"consumption"`
	Efficiency  float64 `json:"efficiency"`
}

type HistoricalPoint struct {
	Time          string   `json:"time"`
	Value         float64  `json:"value"`
	ForecastValue *float64 `json:"forecastValue,omitempty"`
}

// EnergySources holds percentage shares. They are not required to sum to 100.
type EnergySources struct {
	Coal    float64 `json:"coal"`
	Wind    float64 `json:"wind"`
	Biomass float64 `json:"biomass"`
	Other   float64 `json:"other"`
}

type AirQuality struct {
	Current    float64           `json:"current"`
	Historical []HistoricalPoint `json:"historical,omitempty"`
	Sources    EnergySources     `json:"sources"`
}

// Trend is the direction of a sensor reading since the previous sample.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type SensorReading struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Status      string  `json:"status"`
	Trend       Trend   `json:"trend,omitempty"`
	TrendValue  string  `json:"trendValue,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Severity grades an anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Anomaly struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source"`
}

// Clone returns a copy that shares no memory with p.
func (p ProjectData) Clone() ProjectData {
	out := ProjectData{Name: p.Name}
	if p.Efficiency != nil {
		out.Efficiency = make([]EfficiencyPoint, len(p.Efficiency))
		for i, e := range p.Efficiency {
			out.Efficiency[i] = EfficiencyPoint{Period: e.Period, Value: e.Value, ForecastValue: cloneFloat(e.ForecastValue)}
		}
	}
	if p.Correlation != nil {
		out.Correlation = make([]CorrelationPoint, len(p.Correlation))
		copy(out.Correlation, p.Correlation)
	}
	if p.SensorReadings != nil {
		out.SensorReadings = make([]SensorReading, len(p.SensorReadings))
		copy(out.SensorReadings, p.SensorReadings)
	}
	if p.AirQuality != nil {
		aq := AirQuality{Current: p.AirQuality.Current, Sources: p.AirQuality.Sources}
		if p.AirQuality.Historical != nil {
			aq.Historical = make([]HistoricalPoint, len(p.AirQuality.Historical))
			for i, h := range p.AirQuality.Historical {
				aq.Historical[i] = HistoricalPoint{Time: h.Time, Value: h.Value, ForecastValue: cloneFloat(h.ForecastValue)}
			}
		}
		out.AirQuality = &aq
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
