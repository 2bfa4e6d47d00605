package sensors

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
)

func TestSynthetic_NilProject(t *testing.T) {
	assert.Nil(t, NewSynthetic(nil).Readings(context.Background(), nil))
}

func TestSynthetic_RangesAndDeterminism(t *testing.T) {
	p := &domain.ProjectData{Name: "x"}
	a := NewSynthetic(rand.New(rand.NewPCG(1, 2))).Readings(context.Background(), p)
	b := NewSynthetic(rand.New(rand.NewPCG(1, 2))).Readings(context.Background(), p)
	require.Len(t, a, 8)
	assert.Equal(t, a, b)

	pm10, ok := Find(a, "pm10")
	require.True(t, ok)
	assert.GreaterOrEqual(t, pm10.Value, 5.0)
	assert.LessOrEqual(t, pm10.Value, 35.0)

	co, ok := Find(a, "co")
	require.True(t, ok)
	assert.GreaterOrEqual(t, co.Value, 1000.0)
}

func TestSynthetic_PrefersProjectReadings(t *testing.T) {
	own := []domain.SensorReading{{Name: "PM2.5", Value: 99}}
	got := NewSynthetic(nil).Readings(context.Background(), &domain.ProjectData{SensorReadings: own})
	assert.Equal(t, own, got)
}

func TestStatic(t *testing.T) {
	s := Static{List: []domain.SensorReading{{Name: "PM10", Value: 12}}}
	assert.Nil(t, s.Readings(context.Background(), nil))
	got := s.Readings(context.Background(), &domain.ProjectData{})
	got[0].Value = 1
	assert.Equal(t, 12.0, s.List[0].Value)
}

func TestFind(t *testing.T) {
	readings := []domain.SensorReading{{Name: "PM2.5"}, {Name: "NO₂"}, {Name: "Indeks CAQI"}}

	r, ok := Find(readings, "no2")
	require.True(t, ok)
	assert.Equal(t, "NO₂", r.Name)

	r, ok = Find(readings, "caqi")
	require.True(t, ok)
	assert.Equal(t, "Indeks CAQI", r.Name)

	r, ok = Find(readings, "Podaj PM2.5")
	require.True(t, ok)
	assert.Equal(t, "PM2.5", r.Name)

	_, ok = Find(readings, "ozon")
	assert.False(t, ok)
}

func TestFind_SkipsUnnamedReadings(t *testing.T) {
	readings := []domain.SensorReading{{Name: "", Value: 1}, {Name: "  "}, {Name: "PM10", Value: 20}}

	r, ok := Find(readings, "pm10")
	require.True(t, ok)
	assert.Equal(t, "PM10", r.Name)

	_, ok = Find(readings, "ozon")
	assert.False(t, ok)
}
