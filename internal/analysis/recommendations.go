package analysis

import (
	"context"
	"fmt"

	"airrag/internal/domain"
)

// GenerateRecommendations is rule based: two general suggestions followed
// by one per rule that fires.
func GenerateRecommendations(_ context.Context, data domain.ProjectData) []string {
	recs := []string{
		"Rozważ instalację monitoringu zużycia energii w czasie rzeczywistym",
		"Wprowadź systematyczne przeglądy i konserwację sprzętu, aby utrzymać optymalną wydajność",
	}

	if aq := data.AirQuality; aq != nil {
		if aq.Sources.Coal > 30 {
			recs = append(recs, fmt.Sprintf("Zmniejsz zależność od węgla jako źródła energii (obecnie %s%%)", num(aq.Sources.Coal)))
		}
		if aq.Current > 30 {
			recs = append(recs, "Wdrażaj bardziej restrykcyjne kontrole jakości powietrza i filtry przemysłowe")
		}
	}

	if n := len(data.Efficiency); n >= 2 && data.Efficiency[n-1].Value < data.Efficiency[n-2].Value {
		recs = append(recs, "Przeprowadź audyt wydajności - wykryto trend spadkowy w ostatnim okresie")
	}

	for _, p := range data.Correlation {
		if p.Consumption > 110 {
			recs = append(recs, "Zidentyfikuj i rozwiąż problemy związane z okresami wysokiego zużycia energii")
			break
		}
	}
	return recs
}
