package analysis

import (
	"airrag/internal/domain"
)

const (
	ForecastDefault   = "Prognoza na kolejne okresy"
	ForecastImproving = "Prognoza wskazuje na poprawę jakości powietrza w najbliższych okresach"
	ForecastWorsening = "Prognoza wskazuje na pogorszenie jakości powietrza w najbliższych okresach"

	defaultCurrentAQI = 20
)

// Months are the period labels forecasts cycle through.
var Months = [12]string{
	"Styczeń", "Luty", "Marzec", "Kwiecień", "Maj", "Czerwiec",
	"Lipiec", "Sierpień", "Wrzesień", "Październik", "Listopad", "Grudzień",
}

var fallbackPeriods = [4]string{"Lipiec", "Sierpień", "Wrzesień", "Październik"}

// Rand is the random source used by forecasts. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type ForecastPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type Forecast struct {
	Message string          `json:"message"`
	Points  []ForecastPoint `json:"forecast"`
}

// GenerateForecast projects four periods of air quality. With history, the
// first step moves the last value by 5% either way and each later step by
// 2%; the direction of each step is drawn from rng. Without history the
// forecast is a fixed ramp around the current value.
func GenerateForecast(data domain.ProjectData, rng Rand) Forecast {
	f := Forecast{Message: ForecastDefault}

	if data.AirQuality != nil && len(data.AirQuality.Historical) > 0 {
		hist := data.AirQuality.Historical
		last := hist[len(hist)-1]
		seed := last.Value * step(rng, 0.95, 1.05)

		next := (monthIndex(last.Time) + 1) % len(Months)
		f.Points = append(f.Points, ForecastPoint{Time: Months[next], Value: seed})
		for i := 1; i <= 3; i++ {
			v := f.Points[i-1].Value * step(rng, 0.98, 1.02)
			f.Points = append(f.Points, ForecastPoint{Time: Months[(next+i)%len(Months)], Value: v})
		}
		if seed < last.Value {
			f.Message = ForecastImproving
		} else {
			f.Message = ForecastWorsening
		}
		return f
	}

	base := float64(defaultCurrentAQI)
	if data.AirQuality != nil && data.AirQuality.Current != 0 {
		base = data.AirQuality.Current
	}
	for i, period := range fallbackPeriods {
		f.Points = append(f.Points, ForecastPoint{Time: period, Value: base * (1 + (float64(i)-1.5)*0.05)})
	}
	return f
}

func step(rng Rand, down, up float64) float64 {
	if rng.Float64() > 0.5 {
		return down
	}
	return up
}

// monthIndex returns -1 for labels that are not month names, so the
// forecast then starts in January.
func monthIndex(label string) int {
	for i, m := range Months {
		if m == label {
			return i
		}
	}
	return -1
}
