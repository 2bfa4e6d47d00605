package analysis

import (
	"fmt"
	"math"

	"airrag/internal/domain"
)

// Scenario names a what-if transform.
type Scenario string

const (
	RenewableIncrease Scenario = "renewable_increase"
	TechnologyUpgrade Scenario = "technology_upgrade"
	WeatherChange     Scenario = "weather_change"
)

// ParseScenario accepts the canonical scenario names.
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(s) {
	case RenewableIncrease, TechnologyUpgrade, WeatherChange:
		return Scenario(s), nil
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// SimulateScenario returns a transformed copy of data. data itself is
// never modified.
func SimulateScenario(data domain.ProjectData, scenario Scenario) domain.ProjectData {
	sim := data.Clone()

	switch scenario {
	case RenewableIncrease:
		if aq := sim.AirQuality; aq != nil {
			aq.Sources.Coal = math.Max(10, aq.Sources.Coal-20)
			aq.Sources.Wind += 10
			aq.Sources.Biomass += 5
			aq.Sources.Other += 5
			aq.Current = math.Max(5, aq.Current*0.85)
		}
		for i := range sim.Efficiency {
			sim.Efficiency[i].Value = math.Min(100, sim.Efficiency[i].Value*1.1)
		}

	case TechnologyUpgrade:
		for i := range sim.Efficiency {
			sim.Efficiency[i].Value = math.Min(100, sim.Efficiency[i].Value*1.15)
		}
		for i := range sim.Correlation {
			sim.Correlation[i].Consumption *= 0.8
			sim.Correlation[i].Efficiency = math.Min(100, sim.Correlation[i].Efficiency*1.15)
		}

	case WeatherChange:
		if aq := sim.AirQuality; aq != nil {
			aq.Current *= 1.3
		}
		for i := range sim.Correlation {
			sim.Correlation[i].Consumption *= 1.25
			sim.Correlation[i].Efficiency *= 0.9
		}
	}
	return sim
}

// Impact compares a snapshot with its simulated counterpart. Percent
// changes are relative to before; sections absent from the data report
// zero and leave the matching Has flag unset.
type Impact struct {
	HasAirQuality  bool
	AQIBefore      float64
	AQIAfter       float64
	AQIChangePct   float64
	CoalBefore     float64
	CoalAfter      float64
	RenewableAfter float64

	HasEfficiency       bool
	EfficiencyChangePct float64

	HasConsumption       bool
	ConsumptionChangePct float64
	CorrEfficiencyPct    float64
}

// ScenarioImpact measures what a simulation actually changed.
func ScenarioImpact(before, after domain.ProjectData) Impact {
	var im Impact
	if before.AirQuality != nil && after.AirQuality != nil {
		im.HasAirQuality = true
		im.AQIBefore = before.AirQuality.Current
		im.AQIAfter = after.AirQuality.Current
		im.AQIChangePct = pctChange(im.AQIBefore, im.AQIAfter)
		im.CoalBefore = before.AirQuality.Sources.Coal
		im.CoalAfter = after.AirQuality.Sources.Coal
		s := after.AirQuality.Sources
		im.RenewableAfter = s.Wind + s.Biomass + s.Other
	}
	if len(before.Efficiency) > 0 && len(before.Efficiency) == len(after.Efficiency) {
		im.HasEfficiency = true
		im.EfficiencyChangePct = pctChange(effMean(before), effMean(after))
	}
	if len(before.Correlation) > 0 && len(before.Correlation) == len(after.Correlation) {
		im.HasConsumption = true
		bc, be := corrMeans(before)
		ac, ae := corrMeans(after)
		im.ConsumptionChangePct = pctChange(bc, ac)
		im.CorrEfficiencyPct = pctChange(be, ae)
	}
	return im
}

func pctChange(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (after - before) / before * 100
}

func effMean(d domain.ProjectData) float64 {
	vals := make([]float64, len(d.Efficiency))
	for i, p := range d.Efficiency {
		vals[i] = p.Value
	}
	return mean(vals)
}

func corrMeans(d domain.ProjectData) (consumption, efficiency float64) {
	c := make([]float64, len(d.Correlation))
	e := make([]float64, len(d.Correlation))
	for i, p := range d.Correlation {
		c[i] = p.Consumption
		e[i] = p.Efficiency
	}
	return mean(c), mean(e)
}
