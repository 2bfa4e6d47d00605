package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"airrag/internal/analysis"
	"airrag/internal/domain"
	"airrag/internal/llm"
	"airrag/internal/sensors"
)

// ragBranch is one entry of the RAG processor's dispatch table. Branches
// that need a project answer noProject when none is loaded. A handler
// returning false passes the query on to the next branch.
type ragBranch struct {
	name      string
	match     func(q string) bool
	noProject string
	handle    func(ctx context.Context, in request) (domain.SensorResponse, bool)
}

func (r *Router) buildRAG() []ragBranch {
	t := r.kw.RAG
	return []ragBranch{
		{
			name: "sensor",
			match: func(q string) bool {
				_, typed := t.SensorType(q)
				return typed || t.Sensor.Match(q)
			},
			handle: r.ragSensors,
		},
		{name: "anomalies", match: t.Anomalies.Match, noProject: msgNoProjectAnomalies, handle: always(r.anomalies)},
		{name: "forecast", match: t.Forecast.Match, noProject: msgNoProjectForecast, handle: always(r.forecast)},
		{name: "correlation", match: t.Correlation.Match, noProject: msgNoProjectCorrelation, handle: always(r.correlation)},
		{name: "recommendations", match: t.Recommendations.Match, noProject: msgNoProjectRecommendations, handle: always(r.recommendations)},
		{name: "scenario", match: t.Scenario.Match, noProject: msgNoProjectScenario, handle: always(r.scenario)},
		{name: "report", match: t.Report.Match, handle: always(r.report)},
		{name: "air_summary", match: t.AirSummary.Match, noProject: msgNoProjectAir, handle: always(r.airSummary)},
	}
}

// ragQuery runs the first matching branch, or the generic completion.
func (r *Router) ragQuery(ctx context.Context, in request) domain.SensorResponse {
	for _, b := range r.rag {
		if !b.match(in.q) {
			continue
		}
		if b.noProject != "" && in.project == nil {
			return domain.SensorResponse{Text: b.noProject}
		}
		if out, ok := b.handle(ctx, in); ok {
			r.deps.Log.Debug("rag branch", zap.String("branch", b.name))
			return out
		}
	}
	return r.answer(ctx, in)
}

func projectName(p *domain.ProjectData) string {
	if p.Name == "" {
		return unnamedProject
	}
	return p.Name
}

// ragSensors answers from the project's sensor readings: one reading when
// a sensor type is named, every reading for a list request.
func (r *Router) ragSensors(ctx context.Context, in request) (domain.SensorResponse, bool) {
	var readings []domain.SensorReading
	if in.project != nil && r.deps.Sensors != nil {
		readings = r.deps.Sensors.Readings(ctx, in.project)
	}
	if st, ok := r.kw.RAG.SensorType(in.q); ok {
		if in.project == nil {
			return domain.SensorResponse{Text: msgNoProjectSensors}, true
		}
		if rd, found := sensors.Find(readings, st.Reading); found {
			return singleReading(rd, ""), true
		}
	}
	if r.kw.RAG.SensorAll.Match(in.q) {
		if in.project == nil {
			return domain.SensorResponse{Text: msgNoProjectSensors}, true
		}
		return readingList(readings, "Oto aktualne odczyty ze wszystkich czujników:"), true
	}
	return domain.SensorResponse{}, false
}

var severityLabels = map[domain.Severity]string{
	domain.SeverityHigh:   "wysoka",
	domain.SeverityMedium: "średnia",
	domain.SeverityLow:    "niska",
}

func (r *Router) anomalies(_ context.Context, in request) domain.SensorResponse {
	found := analysis.DetectAnomalies(*in.project)
	if len(found) == 0 {
		return domain.SensorResponse{Text: msgNoAnomalies}
	}
	lines := make([]string, len(found))
	for i, a := range found {
		lines[i] = fmt.Sprintf("• %s (ważność: %s)", a.Message, severityLabels[a.Severity])
	}
	return domain.SensorResponse{
		Text: fmt.Sprintf("Wykryto następujące anomalie w projekcie %s:\n\n%s", projectName(in.project), strings.Join(lines, "\n")),
	}
}

func (r *Router) forecast(_ context.Context, in request) domain.SensorResponse {
	f := analysis.GenerateForecast(*in.project, r.deps.Rand)
	lines := make([]string, len(f.Points))
	for i, p := range f.Points {
		lines[i] = fmt.Sprintf("• %s: %.1f", p.Time, p.Value)
	}
	resp := domain.SensorResponse{
		Text: fmt.Sprintf("Prognoza dla projektu %s:\n\n%s\n\nWartości prognozowane:\n%s",
			projectName(in.project), f.Message, strings.Join(lines, "\n")),
	}
	if len(f.Points) > 0 {
		current := 0.0
		if in.project.AirQuality != nil {
			current = in.project.AirQuality.Current
		}
		trend := domain.TrendUp
		if f.Points[0].Value < current {
			trend = domain.TrendDown
		}
		resp.Visualizations = []domain.Visualization{{
			Type:  domain.VisualizationSensorReading,
			Title: "Prognoza jakości powietrza",
			Data: domain.SensorReadingData{
				Name:        "Prognoza",
				Value:       fmt.Sprintf("%.1f", f.Points[0].Value),
				Unit:        "AQI",
				Trend:       trend,
				Description: f.Message,
			},
		}}
	}
	return resp
}

func (r *Router) correlation(_ context.Context, in request) domain.SensorResponse {
	c := analysis.IdentifyCorrelations(*in.project)
	detail := msgNoCorrelation
	if len(c.Factors) > 0 {
		lines := make([]string, len(c.Factors))
		for i, f := range c.Factors {
			lines[i] = fmt.Sprintf("• %s vs %s: %.2f", f.Factor1, f.Factor2, f.Score)
		}
		detail = "Zidentyfikowane korelacje:\n" + strings.Join(lines, "\n")
	}
	return domain.SensorResponse{
		Text: fmt.Sprintf("Analiza korelacji dla projektu %s:\n\n%s\n\n%s", projectName(in.project), c.Message, detail),
	}
}

func (r *Router) recommendations(ctx context.Context, in request) domain.SensorResponse {
	recs := analysis.GenerateRecommendations(ctx, *in.project)
	lines := make([]string, len(recs))
	for i, rec := range recs {
		lines[i] = "• " + rec
	}
	return domain.SensorResponse{
		Text: fmt.Sprintf("Rekomendacje dla projektu %s:\n\n%s", projectName(in.project), strings.Join(lines, "\n\n")),
	}
}

var scenarioNames = map[analysis.Scenario]string{
	analysis.RenewableIncrease: "zwiększenie udziału energii odnawialnej",
	analysis.TechnologyUpgrade: "modernizacja technologii",
	analysis.WeatherChange:     "ekstremalne warunki pogodowe",
}

// scenario simulates the what-if named in the query. Weather takes
// priority over technology; anything else is the renewable scenario.
func (r *Router) scenario(_ context.Context, in request) domain.SensorResponse {
	sc := analysis.RenewableIncrease
	switch {
	case r.kw.RAG.ScenarioWeather.Match(in.q):
		sc = analysis.WeatherChange
	case r.kw.RAG.ScenarioTechnology.Match(in.q):
		sc = analysis.TechnologyUpgrade
	}
	sim := analysis.SimulateScenario(*in.project, sc)
	im := analysis.ScenarioImpact(*in.project, sim)

	var parts []string
	switch sc {
	case analysis.WeatherChange:
		parts = append(parts, airImpact(im), "Wpływ na zużycie energii: "+consumptionChange(im))
	case analysis.TechnologyUpgrade:
		parts = append(parts, "Wpływ na wydajność: "+efficiencyChange(im), "Wpływ na zużycie energii: "+consumptionChange(im))
	default:
		parts = append(parts, airImpact(im))
		if im.HasAirQuality {
			parts = append(parts, fmt.Sprintf("Wpływ na źródła energii: spadek udziału węgla z %s%% do %s%%, wzrost udziału OZE do %s%%",
				num(im.CoalBefore), num(im.CoalAfter), num(im.RenewableAfter)))
		}
	}
	return domain.SensorResponse{
		Text: fmt.Sprintf("Symulacja scenariusza: %s dla projektu %s:\n\n%s",
			scenarioNames[sc], projectName(in.project), strings.Join(parts, "\n\n")),
	}
}

func airImpact(im analysis.Impact) string {
	if !im.HasAirQuality {
		return "Wpływ na jakość powietrza: " + noData
	}
	// a lower index is cleaner air
	return fmt.Sprintf("Wpływ na jakość powietrza: %s (z %.1f do %.1f)",
		change(-im.AQIChangePct, "poprawa", "pogorszenie"), im.AQIBefore, im.AQIAfter)
}

func efficiencyChange(im analysis.Impact) string {
	if !im.HasEfficiency {
		return noData
	}
	return change(im.EfficiencyChangePct, "poprawa", "pogorszenie")
}

func consumptionChange(im analysis.Impact) string {
	if !im.HasConsumption {
		return noData
	}
	return change(im.ConsumptionChangePct, "wzrost", "spadek")
}

// change words a percentage delta: positive is up, negative is down.
func change(pct float64, up, down string) string {
	switch {
	case pct >= 0.5:
		return fmt.Sprintf("%s o około %.0f%%", up, pct)
	case pct <= -0.5:
		return fmt.Sprintf("%s o około %.0f%%", down, -pct)
	}
	return "bez zmian"
}

func (r *Router) report(ctx context.Context, in request) domain.SensorResponse {
	topic := r.kw.RAG.ReportTopic(in.raw)
	text, err := r.deps.Reports.Report(ctx, topic)
	if err != nil {
		r.deps.Log.Warn("report failed", zap.String("topic", topic), zap.Error(err))
		return domain.SensorResponse{Text: msgReportFailed}
	}
	return domain.SensorResponse{Text: text}
}

// airSummary composes the current air quality from the project and its
// sensor readings.
func (r *Router) airSummary(ctx context.Context, in request) domain.SensorResponse {
	var readings []domain.SensorReading
	if r.deps.Sensors != nil {
		readings = r.deps.Sensors.Readings(ctx, in.project)
	}
	caqi, hasCAQI := sensors.Find(readings, "caqi")
	pm25, hasPM25 := sensors.Find(readings, "pm2.5")
	pm10, hasPM10 := sensors.Find(readings, "pm10")

	aq := in.project.AirQuality
	current := noData
	if aq != nil {
		current = num(aq.Current)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Aktualna jakość powietrza: %s", current)
	if hasCAQI {
		fmt.Fprintf(&b, " (Indeks CAQI: %s)", num(caqi.Value))
	}
	b.WriteString(".\n\n")
	if hasPM25 && hasPM10 {
		fmt.Fprintf(&b, "Poziom PM2.5: %s%s\nPoziom PM10: %s%s\n\n", num(pm25.Value), pm25.Unit, num(pm10.Value), pm10.Unit)
	}
	if aq != nil {
		fmt.Fprintf(&b, "Główne źródła: Węgiel (%s%%), Wiatr (%s%%), Biomasa (%s%%), Inne (%s%%).",
			num(aq.Sources.Coal), num(aq.Sources.Wind), num(aq.Sources.Biomass), num(aq.Sources.Other))
	} else {
		b.WriteString("Główne źródła: " + noData + ".")
	}

	value := current
	if hasCAQI {
		value = num(caqi.Value)
	}
	return domain.SensorResponse{
		Text: b.String(),
		Visualizations: []domain.Visualization{{
			Type:  domain.VisualizationSensorReading,
			Title: "Jakość powietrza",
			Data: domain.SensorReadingData{
				Name:        "Indeks CAQI",
				Value:       value,
				Trend:       domain.TrendStable,
				Description: "Ogólna jakość powietrza",
			},
		}},
	}
}

// answer is the generic completion: document context when documents are
// loaded, otherwise a topic-hinted prompt. Project context is added for
// air, energy and analysis questions.
func (r *Router) answer(ctx context.Context, in request) domain.SensorResponse {
	ctxKW := r.kw.Context
	air, energy, analytic := ctxKW.Air.Match(in.q), ctxKW.Energy.Match(in.q), ctxKW.Analysis.Match(in.q)

	var project string
	if in.project != nil && (air || energy || analytic) {
		project = projectContext(*in.project)
	}

	var chunks []string
	if !r.deps.Documents.Empty() {
		var err error
		chunks, err = r.deps.Documents.Search(ctx, in.q)
		if err != nil {
			r.deps.Log.Warn("document search failed", zap.Error(err))
		}
	}

	var prompt string
	if len(chunks) == 0 {
		prompt = hintedPrompt(in.raw, air, energy, analytic, project)
	} else {
		prompt = contextPrompt(in.raw, r.kw.RAG.IsSummarize(in.q), chunks, air, energy, analytic, project)
	}

	text, err := r.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		r.deps.Log.Warn("completion failed", zap.Error(err))
		if llm.Classify(err) == llm.ClassRateLimit {
			return domain.SensorResponse{Text: llm.UserMessage(err)}
		}
		return domain.SensorResponse{Text: msgAnswerFailed}
	}
	return domain.SensorResponse{Text: text}
}

func projectContext(p domain.ProjectData) string {
	current, sources := noData, noData
	if aq := p.AirQuality; aq != nil {
		current = num(aq.Current)
		sources = fmt.Sprintf("węgiel %s%%, wiatr %s%%, biomasa %s%%, inne %s%%",
			num(aq.Sources.Coal), num(aq.Sources.Wind), num(aq.Sources.Biomass), num(aq.Sources.Other))
	}
	eff := "Brak danych"
	if len(p.Efficiency) > 0 {
		sum := 0.0
		for _, e := range p.Efficiency {
			sum += e.Value
		}
		eff = fmt.Sprintf("%.1f%%", sum/float64(len(p.Efficiency)))
	}
	name := p.Name
	if name == "" {
		name = "Projekt"
	}
	return fmt.Sprintf("Kontekst projektu:\nNazwa projektu: %s\nAktualna jakość powietrza: %s\nŹródła energii: %s\nŚrednia wydajność: %s",
		name, current, sources, eff)
}

func hintedPrompt(query string, air, energy, analytic bool, project string) string {
	lines := []string{"Odpowiedz na pytanie: " + query + "."}
	if air {
		lines = append(lines, "Skup się na informacjach dotyczących wpływu na zdrowie i zalecanych działaniach profilaktycznych.")
	}
	if energy {
		lines = append(lines, "Uwzględnij informacje o efektywności energetycznej i możliwościach redukcji zużycia.")
	}
	if analytic {
		lines = append(lines, "Uwzględnij metody analizy danych i wykrywania wzorców.")
	}
	if project != "" {
		lines = append(lines, project)
	}
	lines = append(lines, "Odpowiedz w sposób przyjazny i pomocny.")
	return strings.Join(lines, "\n")
}

func contextPrompt(query string, summarize bool, chunks []string, air, energy, analytic bool, project string) string {
	task, closing := "odpowiedz na pytanie", "Pytanie: "+query
	if summarize {
		task, closing = "przedstaw krótkie podsumowanie głównych punktów dokumentu", "Podsumuj najważniejsze informacje z dokumentu."
	}
	lines := []string{"Na podstawie poniższego kontekstu, " + task + "."}
	if air {
		lines = append(lines, "Zwróć szczególną uwagę na informacje dotyczące jakości powietrza i ich wpływu na zdrowie.")
	}
	if energy {
		lines = append(lines, "Zwróć szczególną uwagę na informacje o efektywności energetycznej i sposobach redukcji zużycia.")
	}
	if analytic {
		lines = append(lines, "Zwróć szczególną uwagę na metody analizy danych, wykrywania wzorców i korelacji.")
	}
	lines = append(lines, "Jeśli odpowiedź nie znajduje się w kontekście, powiedz, że nie masz tej informacji, ale spróbuj pomóc na podstawie swojej ogólnej wiedzy.")
	if project != "" {
		lines = append(lines, "", project)
	}
	lines = append(lines, "", "Kontekst:", strings.Join(chunks, "\n\n"), "", closing)
	return strings.Join(lines, "\n")
}
