package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
)

type fixedRand []float64

func (f *fixedRand) Float64() float64 {
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func sampleProject() domain.ProjectData {
	return domain.ProjectData{
		Name: "Gdańsk Port",
		Efficiency: []domain.EfficiencyPoint{
			{Period: "Styczeń", Value: 80},
			{Period: "Luty", Value: 82},
			{Period: "Marzec", Value: 50},
			{Period: "Kwiecień", Value: 78},
		},
		Correlation: []domain.CorrelationPoint{
			{Period: "Styczeń", Consumption: 100, Efficiency: 80},
			{Period: "Luty", Consumption: 95, Efficiency: 82},
			{Period: "Marzec", Consumption: 180, Efficiency: 50},
			{Period: "Kwiecień", Consumption: 105, Efficiency: 78},
		},
		AirQuality: &domain.AirQuality{
			Current: 45,
			Historical: []domain.HistoricalPoint{
				{Time: "Styczeń", Value: 20},
				{Time: "Luty", Value: 22},
				{Time: "Marzec", Value: 70},
				{Time: "Kwiecień", Value: 24},
			},
			Sources: domain.EnergySources{Coal: 60, Wind: 15, Biomass: 10, Other: 15},
		},
	}
}

func TestDetectAnomalies(t *testing.T) {
	got := DetectAnomalies(sampleProject())
	require.Len(t, got, 3)

	assert.Equal(t, SourceEfficiency, got[0].Source)
	assert.Equal(t, domain.SeverityMedium, got[0].Severity)
	assert.Equal(t, "Niska wydajność (50%) w okresie Marzec", got[0].Message)

	assert.Equal(t, SourceAirQuality, got[1].Source)
	assert.Equal(t, domain.SeverityHigh, got[1].Severity)

	assert.Equal(t, SourceConsumption, got[2].Source)
	assert.Equal(t, domain.SeverityMedium, got[2].Severity)
}

func TestDetectAnomalies_Idempotent(t *testing.T) {
	p := sampleProject()
	assert.Equal(t, DetectAnomalies(p), DetectAnomalies(p))
}

func TestDetectAnomalies_MissingSectionsAreSkipped(t *testing.T) {
	assert.Empty(t, DetectAnomalies(domain.ProjectData{Name: "pusty"}))
}

func TestIdentifyCorrelations_PerfectInverse(t *testing.T) {
	p := domain.ProjectData{Correlation: []domain.CorrelationPoint{
		{Efficiency: 60, Consumption: 140},
		{Efficiency: 65, Consumption: 130},
		{Efficiency: 70, Consumption: 120},
		{Efficiency: 75, Consumption: 110},
	}}
	res := IdentifyCorrelations(p)
	require.Len(t, res.Factors, 1)
	assert.InDelta(t, -1.0, res.Factors[0].Score, 1e-12)
	assert.Equal(t, CorrelationInverse, res.Message)
}

func TestIdentifyCorrelations_NoData(t *testing.T) {
	res := IdentifyCorrelations(domain.ProjectData{})
	assert.Equal(t, CorrelationDefault, res.Message)
	assert.Empty(t, res.Factors)
}

func TestPearson_DegenerateInputs(t *testing.T) {
	assert.Zero(t, Pearson(nil, nil))
	assert.Zero(t, Pearson([]float64{1, 2}, []float64{1}))
	assert.Zero(t, Pearson([]float64{5, 5, 5}, []float64{1, 2, 3}))
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
}

func TestGenerateForecast_FromHistory(t *testing.T) {
	// first draw > 0.5 picks the 5% improvement, later draws alternate
	rng := &fixedRand{0.9, 0.1, 0.9, 0.1}
	f := GenerateForecast(sampleProject(), rng)

	require.Len(t, f.Points, 4)
	assert.Equal(t, ForecastImproving, f.Message)
	assert.Equal(t, []string{"Maj", "Czerwiec", "Lipiec", "Sierpień"},
		[]string{f.Points[0].Time, f.Points[1].Time, f.Points[2].Time, f.Points[3].Time})
	assert.InDelta(t, 24*0.95, f.Points[0].Value, 1e-9)
	assert.InDelta(t, 24*0.95*1.02, f.Points[1].Value, 1e-9)
	assert.InDelta(t, 24*0.95*1.02*0.98, f.Points[2].Value, 1e-9)
}

func TestGenerateForecast_WrapsAroundYearAndWorsens(t *testing.T) {
	p := domain.ProjectData{AirQuality: &domain.AirQuality{Historical: []domain.HistoricalPoint{{Time: "Grudzień", Value: 10}}}}
	f := GenerateForecast(p, &fixedRand{0.1, 0.1, 0.1, 0.1})
	assert.Equal(t, ForecastWorsening, f.Message)
	assert.Equal(t, "Styczeń", f.Points[0].Time)
}

func TestGenerateForecast_Fallback(t *testing.T) {
	f := GenerateForecast(domain.ProjectData{}, &fixedRand{})
	require.Len(t, f.Points, 4)
	assert.Equal(t, ForecastDefault, f.Message)
	assert.Equal(t, "Lipiec", f.Points[0].Time)
	assert.InDelta(t, 20*0.925, f.Points[0].Value, 1e-9)
	assert.InDelta(t, 20*1.075, f.Points[3].Value, 1e-9)

	f = GenerateForecast(domain.ProjectData{AirQuality: &domain.AirQuality{Current: 40}}, &fixedRand{})
	assert.InDelta(t, 40*0.975, f.Points[1].Value, 1e-9)
}

func TestGenerateRecommendations(t *testing.T) {
	recs := GenerateRecommendations(context.Background(), sampleProject())
	require.Len(t, recs, 5)
	assert.Contains(t, recs[2], "60%")

	recs = GenerateRecommendations(context.Background(), domain.ProjectData{})
	assert.Len(t, recs, 2)
}

func TestSimulateScenario_RenewableDoesNotMutate(t *testing.T) {
	p := sampleProject()
	sim := SimulateScenario(p, RenewableIncrease)

	assert.Equal(t, 60.0, p.AirQuality.Sources.Coal)
	assert.Equal(t, 40.0, sim.AirQuality.Sources.Coal)
	assert.Equal(t, 25.0, sim.AirQuality.Sources.Wind)
	assert.InDelta(t, 45*0.85, sim.AirQuality.Current, 1e-9)
	assert.Equal(t, 80.0, p.Efficiency[0].Value)
	assert.InDelta(t, 88.0, sim.Efficiency[0].Value, 1e-9)
	assert.Equal(t, sampleProject(), p)
}

func TestSimulateScenario_RenewableCoalFloor(t *testing.T) {
	p := sampleProject()
	p.AirQuality.Sources.Coal = 25
	sim := SimulateScenario(p, RenewableIncrease)
	assert.Equal(t, 10.0, sim.AirQuality.Sources.Coal)
}

func TestSimulateScenario_TechnologyCapsEfficiency(t *testing.T) {
	p := sampleProject()
	p.Efficiency[0].Value = 95
	sim := SimulateScenario(p, TechnologyUpgrade)
	assert.Equal(t, 100.0, sim.Efficiency[0].Value)
	assert.InDelta(t, 80.0, sim.Correlation[0].Consumption, 1e-9)
	assert.Equal(t, 95.0, p.Efficiency[0].Value)
}

func TestSimulateScenario_Weather(t *testing.T) {
	p := sampleProject()
	sim := SimulateScenario(p, WeatherChange)
	assert.InDelta(t, 45*1.3, sim.AirQuality.Current, 1e-9)
	assert.InDelta(t, 125.0, sim.Correlation[0].Consumption, 1e-9)
	assert.InDelta(t, 72.0, sim.Correlation[0].Efficiency, 1e-9)
}

func TestScenarioImpact(t *testing.T) {
	p := sampleProject()
	im := ScenarioImpact(p, SimulateScenario(p, WeatherChange))
	assert.True(t, im.HasAirQuality)
	assert.InDelta(t, 30.0, im.AQIChangePct, 1e-9)
	assert.InDelta(t, 25.0, im.ConsumptionChangePct, 1e-9)
	assert.InDelta(t, -10.0, im.CorrEfficiencyPct, 1e-9)
	assert.InDelta(t, 0.0, im.EfficiencyChangePct, 1e-9)

	im = ScenarioImpact(domain.ProjectData{}, domain.ProjectData{})
	assert.False(t, im.HasAirQuality)
	assert.False(t, im.HasConsumption)
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario("weather_change")
	require.NoError(t, err)
	assert.Equal(t, WeatherChange, s)
	_, err = ParseScenario("flood")
	require.Error(t, err)
}
