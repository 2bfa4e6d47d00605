// Package sensors produces the sensor readings attached to a project.
package sensors

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"airrag/internal/domain"
)

const unitMicrograms = "µg/m³"

// Synthetic generates plausible readings for presentation. A project that
// carries its own readings gets those back instead.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSynthetic(rng *rand.Rand) *Synthetic {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthetic{rng: rng}
}

func (s *Synthetic) Readings(_ context.Context, project *domain.ProjectData) []domain.SensorReading {
	if project == nil {
		return nil
	}
	if len(project.SensorReadings) > 0 {
		return append([]domain.SensorReading(nil), project.SensorReadings...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return []domain.SensorReading{
		{Name: "PM2.5", Value: s.between(0, 15), Unit: unitMicrograms, Status: "Good", Trend: s.trend(),
			TrendValue: fmt.Sprintf("%.1f%% od ostatniego pomiaru", s.between(0, 3)), Description: "Dobry poziom"},
		{Name: "PM10", Value: s.between(5, 35), Unit: unitMicrograms, Status: "Good", Trend: s.trend(),
			TrendValue: fmt.Sprintf("%.1f%% od ostatniej godziny", s.between(0, 3)), Description: "Dobry poziom"},
		{Name: "O₃", Value: s.between(70, 190), Unit: unitMicrograms, Status: "Good", Trend: s.trend(),
			TrendValue: fmt.Sprintf("%.1f%% od ostatniego odczytu", s.between(0, 3)), Description: "Dobry poziom ozonu"},
		{Name: "NO₂", Value: s.between(0, 40), Unit: unitMicrograms, Status: "Good", Trend: s.trend(),
			TrendValue: fmt.Sprintf("%.1f%% od ostatniej godziny", s.between(0, 2)), Description: "Dobry poziom dwutlenku azotu"},
		{Name: "SO₂", Value: s.between(0, 30), Unit: unitMicrograms, Status: "Good", Trend: domain.TrendStable,
			TrendValue: "Stabilny poziom", Description: "Stabilny poziom dwutlenku siarki"},
		{Name: "CO", Value: math.Floor(s.rng.Float64()*3000 + 1000), Unit: unitMicrograms, Status: "Good", Trend: domain.TrendStable,
			TrendValue: "Dobry poziom", Description: "Dobry poziom tlenku węgla"},
		{Name: "Indeks CAQI", Value: s.between(10, 50), Status: "Good", Trend: domain.TrendStable,
			Description: "Dobra jakość powietrza"},
		{Name: "Wilgotność", Value: s.between(45, 70), Unit: "%", Status: "Good", Trend: domain.TrendStable,
			Description: "Optymalna wilgotność"},
	}
}

// between draws from [lo, hi) rounded to one decimal.
func (s *Synthetic) between(lo, hi float64) float64 {
	return math.Round((s.rng.Float64()*(hi-lo)+lo)*10) / 10
}

func (s *Synthetic) trend() domain.Trend {
	if s.rng.Float64() > 0.5 {
		return domain.TrendUp
	}
	return domain.TrendDown
}

// Static always returns the same readings while a project is present.
type Static struct {
	List []domain.SensorReading
}

func (s Static) Readings(_ context.Context, project *domain.ProjectData) []domain.SensorReading {
	if project == nil {
		return nil
	}
	return append([]domain.SensorReading(nil), s.List...)
}

// Find returns the first reading whose name matches name ignoring case,
// either exactly or with one name containing the other.
func Find(readings []domain.SensorReading, name string) (domain.SensorReading, bool) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return domain.SensorReading{}, false
	}
	for _, r := range readings {
		n := strings.ToLower(Fold(strings.TrimSpace(r.Name)))
		if n == "" {
			continue
		}
		if n == q || strings.Contains(n, q) || strings.Contains(q, n) {
			return r, true
		}
	}
	return domain.SensorReading{}, false
}

var subscripts = strings.NewReplacer("₂", "2", "₃", "3", "₅", "5", "₁", "1", "₀", "0")

// Fold rewrites subscript digits so "NO₂" matches a typed "no2".
func Fold(s string) string {
	return subscripts.Replace(s)
}
