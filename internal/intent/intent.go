// Package intent loads the per-locale keyword tables used to classify
// chat queries.
package intent

import (
	"embed"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "pl"

// Matcher is one keyword category.
type Matcher struct {
	Contains []string `yaml:"contains"`
	Words    []string `yaml:"words"`
}

// Match reports whether the lower-cased query q hits any keyword.
func (m Matcher) Match(q string) bool {
	for _, k := range m.Contains {
		if strings.Contains(q, k) {
			return true
		}
	}
	for _, w := range m.Words {
		if HasWord(q, w) {
			return true
		}
	}
	return false
}

// HasWord reports whether w occurs in s with no letter or digit on
// either side.
func HasWord(s, w string) bool {
	if w == "" {
		return false
	}
	for off := 0; ; {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(w)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		off = start + 1
	}
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Location maps place names to a WAQI station.
type Location struct {
	Match       Matcher `yaml:"match"`
	StationID   string  `yaml:"station_id"`
	StationName string  `yaml:"station_name"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
}

type SensorType struct {
	Match   Matcher `yaml:"match"`
	Reading string  `yaml:"reading"`
}

type StationTable struct {
	Trigger   Matcher    `yaml:"trigger"`
	AirPhrase Matcher    `yaml:"air_phrase"`
	Default   Location   `yaml:"default"`
	Locations []Location `yaml:"locations"`
}

// Locate returns the first location named in q.
func (t StationTable) Locate(q string) (Location, bool) {
	for _, l := range t.Locations {
		if l.Match.Match(q) {
			return l, true
		}
	}
	return t.Default, false
}

type RAGTable struct {
	Summarize          []string     `yaml:"summarize"`
	Sensor             Matcher      `yaml:"sensor"`
	SensorTypes        []SensorType `yaml:"sensor_types"`
	SensorAll          Matcher      `yaml:"sensor_all"`
	Anomalies          Matcher      `yaml:"anomalies"`
	Forecast           Matcher      `yaml:"forecast"`
	Correlation        Matcher      `yaml:"correlation"`
	Recommendations    Matcher      `yaml:"recommendations"`
	Scenario           Matcher      `yaml:"scenario"`
	ScenarioWeather    Matcher      `yaml:"scenario_weather"`
	ScenarioTechnology Matcher      `yaml:"scenario_technology"`
	Report             Matcher      `yaml:"report"`
	ReportStrip        []string     `yaml:"report_strip"`
	ReportDefaultTopic string       `yaml:"report_default_topic"`
	AirSummary         Matcher      `yaml:"air_summary"`
}

// IsSummarize reports whether the normalized query is exactly a
// whole-document summary command.
func (t RAGTable) IsSummarize(q string) bool {
	return slices.Contains(t.Summarize, q)
}

// SensorType returns the first sensor type named in q.
func (t RAGTable) SensorType(q string) (SensorType, bool) {
	for _, s := range t.SensorTypes {
		if s.Match.Match(q) {
			return s, true
		}
	}
	return SensorType{}, false
}

// ReportTopic removes report trigger words from query. The remaining
// text, or the default topic when nothing is left, is the report topic.
func (t RAGTable) ReportTopic(query string) string {
	strip := make(map[string]bool, len(t.ReportStrip))
	var phrases []string
	for _, s := range t.ReportStrip {
		if strings.Contains(s, " ") {
			phrases = append(phrases, s)
			continue
		}
		strip[s] = true
	}
	q := query
	for _, p := range phrases {
		q = replaceFold(q, p)
	}
	var kept []string
	for _, f := range strings.Fields(q) {
		if strip[strings.ToLower(strings.Trim(f, ".,:;!?\"'"))] {
			continue
		}
		kept = append(kept, f)
	}
	topic := strings.Trim(strings.Join(kept, " "), " .,:;!?\"'")
	if topic == "" {
		return t.ReportDefaultTopic
	}
	return topic
}

func replaceFold(s, phrase string) string {
	lower := strings.ToLower(s)
	for {
		i := strings.Index(lower, phrase)
		if i < 0 {
			return s
		}
		s = s[:i] + " " + s[i+len(phrase):]
		lower = lower[:i] + " " + lower[i+len(phrase):]
	}
}

type ContextTable struct {
	Air      Matcher `yaml:"air"`
	Energy   Matcher `yaml:"energy"`
	Analysis Matcher `yaml:"analysis"`
}

// Table is the full keyword configuration for one locale.
type Table struct {
	Station          StationTable `yaml:"station"`
	ProjectAnalysis  Matcher      `yaml:"project_analysis"`
	SensorReading    Matcher      `yaml:"sensor_reading"`
	MapData          Matcher      `yaml:"map_data"`
	StationList      Matcher      `yaml:"station_list"`
	SensorQuery      Matcher      `yaml:"sensor_query"`
	LocalData        Matcher      `yaml:"local_data"`
	LocalDataSubject Matcher      `yaml:"local_data_subject"`
	Advanced         Matcher      `yaml:"advanced"`
	RAG              RAGTable     `yaml:"rag"`
	Context          ContextTable `yaml:"context"`
}

// Load reads the embedded table for locale.
func Load(locale string) (*Table, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	b, err := locales.ReadFile("locales/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q: %w", locale, err)
	}
	return Parse(b)
}

// Parse decodes a keyword table.
func Parse(b []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	if t.Station.Default.StationID == "" {
		return nil, fmt.Errorf("keyword table: station.default.station_id is required")
	}
	return &t, nil
}

// MustLoad is Load for tables known at compile time.
func MustLoad(locale string) *Table {
	t, err := Load(locale)
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize lower-cases and trims a query before matching.
func Normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// IsStationQuery reports whether q asks about air quality at a station:
// either an explicit trigger, or an air-quality phrase with a place name.
func (t *Table) IsStationQuery(q string) bool {
	if t.Station.Trigger.Match(q) {
		return true
	}
	if !t.Station.AirPhrase.Match(q) {
		return false
	}
	_, ok := t.Station.Locate(q)
	return ok
}
