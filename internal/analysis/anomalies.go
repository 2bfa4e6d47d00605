// Package analysis holds pure functions over a project snapshot. Nothing
// here performs I/O or keeps state between calls.
package analysis

import (
	"fmt"
	"strings"

	"airrag/internal/domain"
)

const (
	SourceEfficiency  = "efficiency"
	SourceAirQuality  = "air_quality"
	SourceConsumption = "consumption"
)

// DetectAnomalies flags efficiency dips below 80% of the mean, air-quality
// spikes above 150% of the mean and consumption above 130% of the mean.
// The three checks are independent; results keep per-section order.
func DetectAnomalies(data domain.ProjectData) []domain.Anomaly {
	var out []domain.Anomaly

	if len(data.Efficiency) > 0 {
		vals := make([]float64, len(data.Efficiency))
		for i, p := range data.Efficiency {
			vals[i] = p.Value
		}
		avg := mean(vals)
		for _, p := range data.Efficiency {
			if p.Value < avg*0.8 {
				out = append(out, domain.Anomaly{
					Message:  fmt.Sprintf("Niska wydajność (%s%%) w okresie %s", num(p.Value), p.Period),
					Severity: domain.SeverityMedium,
					Source:   SourceEfficiency,
				})
			}
		}
	}

	if data.AirQuality != nil && len(data.AirQuality.Historical) > 0 {
		hist := data.AirQuality.Historical
		vals := make([]float64, len(hist))
		for i, p := range hist {
			vals[i] = p.Value
		}
		avg := mean(vals)
		for _, p := range hist {
			if p.Value > avg*1.5 {
				out = append(out, domain.Anomaly{
					Message:  fmt.Sprintf("Wyraźnie podwyższony poziom zanieczyszczeń (%s) w okresie %s", num(p.Value), p.Time),
					Severity: domain.SeverityHigh,
					Source:   SourceAirQuality,
				})
			}
		}
	}

	if len(data.Correlation) > 0 {
		vals := make([]float64, len(data.Correlation))
		for i, p := range data.Correlation {
			vals[i] = p.Consumption
		}
		avg := mean(vals)
		for _, p := range data.Correlation {
			if p.Consumption > avg*1.3 {
				out = append(out, domain.Anomaly{
					Message:  fmt.Sprintf("Wysokie zużycie energii (%s) w okresie %s", num(p.Consumption), p.Period),
					Severity: domain.SeverityMedium,
					Source:   SourceConsumption,
				})
			}
		}
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// num prints whole numbers without a fractional part and everything else
// with at most two decimals.
func num(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
