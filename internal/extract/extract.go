// Package extract asks the completion backend for a document's main topics
// and key metrics, and turns whatever comes back into fixed-shape results.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/llm"
)

const (
	TopicCount = 8
	// MinTextRunes is the shortest text worth sending to the backend.
	MinTextRunes = 10

	TopicPlaceholder = "Analizowanie treści..."
	TopicTooShort    = "Tekst zbyt krótki do analizy"

	ReasonBadFormat = "Nie udało się wyodrębnić metryk w odpowiednim formacie"
	ReasonBackend   = "Wystąpił błąd podczas analizy dokumentu"
	ReasonTooShort  = "Tekst zbyt krótki do wyodrębnienia metryk"
)

// FallbackTopics is returned when the backend cannot be reached.
var FallbackTopics = [TopicCount]string{
	"Jakość powietrza",
	"Zużycie energii",
	"Źródła emisji",
	"Efektywność energetyczna",
	"Odnawialne źródła energii",
	"Monitoring środowiska",
	"Wpływ na zdrowie",
	"Rekomendacje",
}

// Extractor is safe for concurrent use.
type Extractor struct {
	completer domain.Completer
	log       *zap.Logger
}

func New(completer domain.Completer, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{completer: completer, log: log}
}

// ExtractTopics always returns exactly TopicCount entries.
func (e *Extractor) ExtractTopics(ctx context.Context, text string) []string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextRunes {
		topics := []string{TopicTooShort}
		return pad(topics)
	}
	out, err := e.completer.Complete(ctx, topicsPrompt(text))
	if err != nil {
		e.log.Warn("topic extraction failed", zap.Error(err), zap.Stringer("class", llm.Classify(err)))
		return append([]string(nil), FallbackTopics[:]...)
	}
	return pad(ParseTopics(out))
}

// ParseTopics keeps the first TopicCount non-empty lines, with list
// markers removed.
func ParseTopics(raw string) []string {
	var topics []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		topics = append(topics, line)
		if len(topics) == TopicCount {
			break
		}
	}
	return topics
}

var listMarker = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)

func pad(topics []string) []string {
	for len(topics) < TopicCount {
		topics = append(topics, TopicPlaceholder)
	}
	return topics
}

// Metrics maps a metric name to a float64 or a string.
type Metrics map[string]any

// AsMap returns the wire shape used by outer surfaces.
func (m Metrics) AsMap() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ExtractionError means metrics are unavailable. Callers treat it as a
// soft failure.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrorMap renders an extraction failure in the {"error": reason} wire shape.
func ErrorMap(err error) map[string]any {
	reason := ReasonBackend
	var ee *ExtractionError
	if errors.As(err, &ee) {
		reason = ee.Reason
	}
	return map[string]any{"error": reason}
}

// ExtractMetrics returns a non-empty metric map, or an *ExtractionError.
func (e *Extractor) ExtractMetrics(ctx context.Context, text string) (Metrics, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextRunes {
		return nil, &ExtractionError{Reason: ReasonTooShort}
	}
	out, err := e.completer.Complete(ctx, metricsPrompt(text))
	if err != nil {
		e.log.Warn("metric extraction failed", zap.Error(err), zap.Stringer("class", llm.Classify(err)))
		return nil, &ExtractionError{Reason: ReasonBackend, Err: err}
	}
	m, err := ParseMetrics(out)
	if err != nil {
		e.log.Debug("unparseable metrics", zap.String("raw", out), zap.Error(err))
	}
	return m, err
}

var codeFence = regexp.MustCompile("```(?:json)?\\n?|```")

// StripCodeFences removes Markdown code fence markers.
func StripCodeFences(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}

// ParseMetrics decodes a flat JSON object. Empty output, "{}" and anything
// that is not an object yield an *ExtractionError.
func ParseMetrics(raw string) (Metrics, error) {
	clean := StripCodeFences(raw)
	if clean == "" || clean == "{}" {
		return nil, &ExtractionError{Reason: ReasonBadFormat}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, &ExtractionError{Reason: ReasonBadFormat, Err: err}
	}
	if len(obj) == 0 {
		return nil, &ExtractionError{Reason: ReasonBadFormat}
	}
	m := make(Metrics, len(obj))
	for k, v := range obj {
		switch tv := v.(type) {
		case float64, string:
			m[k] = tv
		case nil:
			continue
		default:
			b, _ := json.Marshal(tv)
			m[k] = string(b)
		}
	}
	if len(m) == 0 {
		return nil, &ExtractionError{Reason: ReasonBadFormat}
	}
	return m, nil
}

func topicsPrompt(text string) string {
	return fmt.Sprintf(`Przeanalizuj poniższy tekst i wypisz %d najważniejszych zagadnień lub tematów.
Wypisz je w formie krótkich, zwięzłych haseł (maksymalnie 3-4 słowa na temat).

Tekst do analizy:
%s

Zwróć dokładnie %d głównych tematów, każdy w nowej linii, bez numeracji i dodatkowych oznaczeń.`, TopicCount, text, TopicCount)
}

func metricsPrompt(text string) string {
	return fmt.Sprintf(`Przeanalizuj poniższy tekst i wyodrębnij kluczowe wartości liczbowe dotyczące jakości powietrza,
zużycia energii lub wskaźników środowiskowych. Zwróć wyniki w formacie JSON.
Przykładowy format odpowiedzi:
{
  "PM10": 45.2,
  "PM2.5": 22.1,
  "zużycie_energii": 120.5,
  "emisja_CO2": 85.4
}

Tekst do analizy:
%s`, text)
}
