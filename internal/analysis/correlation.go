package analysis

import (
	"math"

	"airrag/internal/domain"
)

const (
	CorrelationDefault  = "Analiza korelacji dla projektu"
	CorrelationInverse  = "Wykryto silną odwrotną korelację między wydajnością a zużyciem energii - wzrost wydajności przekłada się na spadek zużycia."
	CorrelationPositive = "Uwaga: Wykryto dodatnią korelację między wydajnością a zużyciem energii - to może wskazywać na problem."
	CorrelationNone     = "Nie wykryto silnej korelacji między wydajnością a zużyciem energii."
)

type Factor struct {
	Factor1 string  `json:"factor1"`
	Factor2 string  `json:"factor2"`
	Score   float64 `json:"correlationScore"`
}

type CorrelationResult struct {
	Message string   `json:"message"`
	Factors []Factor `json:"factors"`
}

// IdentifyCorrelations relates efficiency to consumption over the
// correlation series.
func IdentifyCorrelations(data domain.ProjectData) CorrelationResult {
	res := CorrelationResult{Message: CorrelationDefault}
	if len(data.Correlation) == 0 {
		return res
	}
	eff := make([]float64, len(data.Correlation))
	cons := make([]float64, len(data.Correlation))
	for i, p := range data.Correlation {
		eff[i] = p.Efficiency
		cons[i] = p.Consumption
	}
	r := Pearson(eff, cons)
	res.Factors = append(res.Factors, Factor{Factor1: "Wydajność", Factor2: "Zużycie energii", Score: r})
	switch {
	case r < -0.5:
		res.Message = CorrelationInverse
	case r > 0.5:
		res.Message = CorrelationPositive
	default:
		res.Message = CorrelationNone
	}
	return res
}

// Pearson returns the correlation coefficient of x and y, or 0 when the
// series are empty, differ in length or have zero variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sx, sy, sxy, sxx, syy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxy += x[i] * y[i]
		sxx += x[i] * x[i]
		syy += y[i] * y[i]
	}
	fn := float64(n)
	den := math.Sqrt((fn*sxx - sx*sx) * (fn*syy - sy*sy))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return (fn*sxy - sx*sy) / den
}
