// Package report writes free-form reports from the loaded documents and
// the current project snapshot.
package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"airrag/internal/domain"
)

const (
	// NoData is returned when there is nothing to report on.
	NoData = "Brak danych do wygenerowania raportu. Wgraj dokumenty lub utwórz projekt."
	// Failed is returned by Generate when the backend call fails.
	Failed = "Wystąpił błąd podczas generowania raportu. Spróbuj ponownie później."
	// DefaultTopic replaces an empty topic.
	DefaultTopic = "jakość powietrza i zużycia energii"

	maxContextChunks = 3
)

// DocumentSource exposes the loaded chunk texts in document order.
type DocumentSource interface {
	Texts() []string
}

// ProjectSource exposes the current project snapshot, nil when absent.
type ProjectSource interface {
	Get() *domain.ProjectData
}

type Generator struct {
	docs      DocumentSource
	projects  ProjectSource
	completer domain.Completer
	log       *zap.Logger
}

func New(docs DocumentSource, projects ProjectSource, completer domain.Completer, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{docs: docs, projects: projects, completer: completer, log: log}
}

// Generate always returns report text; backend failures become Failed.
func (g *Generator) Generate(ctx context.Context, topic string) string {
	out, err := g.Report(ctx, topic)
	if err != nil {
		return Failed
	}
	return out
}

// Report is Generate with the backend error exposed. With no documents
// and no project it returns NoData without calling the backend.
func (g *Generator) Report(ctx context.Context, topic string) (string, error) {
	texts := g.docs.Texts()
	project := g.projects.Get()
	if len(texts) == 0 && project == nil {
		return NoData, nil
	}

	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	out, err := g.completer.Complete(ctx, Prompt(topic, Context(texts, project)))
	if err != nil {
		g.log.Warn("report generation failed", zap.String("topic", topic), zap.Error(err))
		return "", fmt.Errorf("generate report: %w", err)
	}
	return out, nil
}

// Context joins up to three chunks verbatim with a digest of the project.
func Context(texts []string, project *domain.ProjectData) string {
	var b strings.Builder
	if len(texts) > 0 {
		if len(texts) > maxContextChunks {
			texts = texts[:maxContextChunks]
		}
		b.WriteString("Kontekst z dokumentów:\n")
		b.WriteString(strings.Join(texts, "\n\n"))
	}
	if project != nil {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Digest(*project))
	}
	return b.String()
}

// Digest summarises a project for prompts: current air quality, the
// energy mix and the historical trend.
func Digest(p domain.ProjectData) string {
	name := p.Name
	if name == "" {
		name = "Brak nazwy"
	}
	current, sources, trend := "brak danych", "brak danych", "brak danych"
	if aq := p.AirQuality; aq != nil {
		current = fmt.Sprintf("%g", aq.Current)
		sources = fmt.Sprintf("węgiel (%g%%), wiatr (%g%%), biomasa (%g%%), inne (%g%%)",
			aq.Sources.Coal, aq.Sources.Wind, aq.Sources.Biomass, aq.Sources.Other)
		if len(aq.Historical) > 0 {
			pairs := make([]string, len(aq.Historical))
			for i, h := range aq.Historical {
				pairs[i] = fmt.Sprintf("%s: %g", h.Time, h.Value)
			}
			trend = strings.Join(pairs, ", ")
		}
	}
	return fmt.Sprintf("Dane projektu %s:\n- Jakość powietrza: %s\n- Źródła energii: %s\n- Trendy: %s",
		name, current, sources, trend)
}

// Prompt is the fixed four-section report template.
func Prompt(topic, background string) string {
	return fmt.Sprintf(`Wygeneruj profesjonalny raport na temat: "%s".

Użyj następującego kontekstu:
%s

Raport powinien zawierać:
1. Wprowadzenie
2. Analiza danych
3. Wnioski
4. Rekomendacje

Format raportu powinien być przejrzysty, z nagłówkami i podpunktami.`, topic, background)
}
