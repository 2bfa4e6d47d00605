package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
	"airrag/internal/service"
)

type assistant struct{}

func (assistant) Process(_ context.Context, input string) domain.SensorResponse {
	return domain.SensorResponse{
		Text: "Dane ze stacji Sopot.",
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationAirQuality,
			Title: "Sopot",
			Data:  domain.StationRecord{StationName: "Sopot", Measurements: domain.Measurements{AQI: 42, PM25: 10, PM10: 20}},
		}},
	}
}

type uploader struct{ err error }

func (u uploader) IngestFile(context.Context, string) (service.Result, error) {
	return service.Result{Message: "Dokument został przetworzony na 2 fragmentów", Topics: []string{"Smog"}, Summary: "Smog rośnie."}, u.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func submit(t *testing.T, m Model, text string) (Model, tea.Msg) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.pending)
	require.NotNil(t, cmd)

	// the query command is the second in the batch, after the spinner tick
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)
	return m, batch[1]()
}

func TestModel_QueryRoundTrip(t *testing.T) {
	m := sized(t, New(assistant{}, nil, "", 0))
	m, msg := submit(t, m, "jakość powietrza w Sopocie")

	resp, ok := msg.(responseMsg)
	require.True(t, ok)
	next, _ := m.Update(resp)
	m = next.(Model)

	assert.False(t, m.pending)
	require.Len(t, m.history, 1)
	out := m.renderHistory()
	assert.Contains(t, out, "Dane ze stacji Sopot.")
	assert.Contains(t, out, "AQI 42")
	assert.Contains(t, m.View(), "Trójmiasto")
}

func TestModel_Upload(t *testing.T) {
	m := sized(t, New(assistant{}, uploader{}, "", 0))
	m, msg := submit(t, m, "/wgraj raport.pdf")

	up, ok := msg.(uploadMsg)
	require.True(t, ok)
	assert.Equal(t, "raport.pdf", up.path)
	next, _ := m.Update(up)
	m = next.(Model)
	assert.Equal(t, "Smog rośnie.", m.summary)
	assert.Contains(t, m.renderHistory(), "Tematy: Smog")

	m, msg = submit(t, New(assistant{}, uploader{err: errors.New("brak pliku")}, "", 0), "/wgraj x.txt")
	next, _ = m.Update(msg)
	assert.Equal(t, "Błąd: brak pliku", next.(Model).status)
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Turbiny pracują. Smog w Gdańsku rośnie. Energia tanieje."
	out := highlightBestSentence(text, "smog gdańsku")
	assert.Contains(t, out, "Turbiny pracują.")
	assert.Contains(t, out, "Energia tanieje.")

	assert.Equal(t, "Brak kropki", highlightBestSentence("Brak kropki", "kropki"))
	assert.Equal(t, text, highlightBestSentence(text, "wiatr"))
}

func TestRenderVisualization(t *testing.T) {
	out := renderVisualization(domain.Visualization{
		Type:  domain.VisualizationSensorReading,
		Title: "PM10",
		Data:  domain.SensorReadingData{Name: "PM10", Value: "35", Unit: "µg/m³", Trend: domain.TrendUp},
	})
	assert.Contains(t, out, "PM10 35 µg/m³ (↑)")

	out = renderVisualization(domain.Visualization{
		Type: domain.VisualizationStationList,
		Data: []domain.NearbyStation{{Name: "Gdynia", AQI: 30, Lat: 54.5189, Lng: 18.5305}},
	})
	assert.Contains(t, out, "Gdynia  AQI 30  (54.5189, 18.5305)")
}
