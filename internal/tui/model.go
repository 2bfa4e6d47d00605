package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"airrag/internal/domain"
	"airrag/internal/service"
)

const uploadCommand = "/wgraj "

// Assistant answers chat queries.
type Assistant interface {
	Process(ctx context.Context, input string) domain.SensorResponse
}

// Uploader indexes a document from disk.
type Uploader interface {
	IngestFile(ctx context.Context, path string) (service.Result, error)
}

type exchange struct {
	query    string
	response domain.SensorResponse
}

type responseMsg struct {
	query    string
	response domain.SensorResponse
}

type uploadMsg struct {
	path   string
	result service.Result
	err    error
}

// Model is the Bubble Tea model of the chat console.
type Model struct {
	assistant Assistant
	uploader  Uploader
	timeout   time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []exchange
	summary  string
	status   string
	pending  bool
	ready    bool
}

// New creates the chat model. uploader may be nil, which disables /wgraj.
func New(assistant Assistant, uploader Uploader, summary string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Zadaj pytanie lub wpisz /wgraj <plik>"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return Model{
		assistant: assistant,
		uploader:  uploader,
		timeout:   timeout,
		input:     ti,
		viewport:  vp,
		spinner:   sp,
		summary:   summary,
		status:    "Gotowe. Wpisz pytanie i naciśnij Enter.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case responseMsg:
		m.pending = false
		m.history = append(m.history, exchange{query: msg.query, response: msg.response})
		m.status = fmt.Sprintf("Odpowiedź na %q", msg.query)
		m.refresh()
		return m, nil
	case uploadMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Błąd: " + msg.err.Error()
			return m, nil
		}
		m.summary = msg.result.Summary
		m.history = append(m.history, exchange{
			query:    uploadCommand + msg.path,
			response: domain.SensorResponse{Text: uploadText(msg.result)},
		})
		m.status = msg.result.Message
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.input.SetValue("")
			m.pending = true
			if path, ok := strings.CutPrefix(q, strings.TrimSpace(uploadCommand)); ok && m.uploader != nil {
				path = strings.TrimSpace(path)
				m.status = "Przetwarzam " + path
				return m, tea.Batch(m.spinner.Tick, m.upload(path))
			}
			m.status = "Analizuję zapytanie"
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		return responseMsg{query: q, response: m.assistant.Process(ctx, q)}
	}
}

func (m Model) upload(path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		res, err := m.uploader.IngestFile(ctx, path)
		return uploadMsg{path: path, result: res, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Ładowanie..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Trójmiasto: jakość powietrza i energia")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(firstLine(m.summary))
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.pending {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "Brak rozmów."
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(queryStyle.Render("> " + ex.query))
		b.WriteString("\n")
		b.WriteString(highlightBestSentence(ex.response.Text, ex.query))
		for _, v := range ex.response.Visualizations {
			b.WriteString("\n")
			b.WriteString(renderVisualization(v))
		}
	}
	return b.String()
}

// renderVisualization draws a compact text card for each widget type.
func renderVisualization(v domain.Visualization) string {
	var lines []string
	switch data := v.Data.(type) {
	case domain.StationRecord:
		ms := data.Measurements
		lines = append(lines, fmt.Sprintf("AQI %s  PM2.5 %s  PM10 %s", num(ms.AQI), num(ms.PM25), num(ms.PM10)))
		if ms.Timestamp != "" {
			lines = append(lines, ms.Source+", "+ms.Timestamp)
		}
	case domain.SensorReadingData:
		lines = append(lines, fmt.Sprintf("%s %s %s (%s)", data.Name, data.Value, data.Unit, trendArrow(data.Trend)))
	case []domain.StationRecord:
		for _, st := range data {
			lines = append(lines, fmt.Sprintf("%s  AQI %s", st.StationName, num(st.Measurements.AQI)))
		}
	case []domain.NearbyStation:
		for _, st := range data {
			lines = append(lines, fmt.Sprintf("%s  AQI %s  (%.4f, %.4f)", st.Name, num(st.AQI), st.Lat, st.Lng))
		}
	default:
		lines = append(lines, fmt.Sprintf("%v", data))
	}
	title := vizTitleStyle.Render(fmt.Sprintf("[%s] %s", v.Type, v.Title))
	return vizBoxStyle.Render(title + "\n" + strings.Join(lines, "\n"))
}

func uploadText(res service.Result) string {
	var b strings.Builder
	b.WriteString(res.Message)
	if len(res.Topics) > 0 {
		b.WriteString("\nTematy: ")
		b.WriteString(strings.Join(res.Topics, ", "))
	}
	if reason, ok := res.Metrics["error"]; ok {
		fmt.Fprintf(&b, "\nMetryki: %v", reason)
	} else if len(res.Metrics) > 0 {
		b.WriteString("\nMetryki:")
		for k, v := range res.Metrics {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}
	return b.String()
}

func trendArrow(t domain.Trend) string {
	switch t {
	case domain.TrendUp:
		return "↑"
	case domain.TrendDown:
		return "↓"
	}
	return "→"
}

func num(v float64) string { return fmt.Sprintf("%.0f", v) }

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	vizBoxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	vizTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	queryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence sharing the most words
// with the query. Text with fewer than two sentences is returned as is.
func highlightBestSentence(text, query string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) < 2 || strings.Contains(text, "\n") || !strings.ContainsAny(lastRune(text), ".!?") {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func lastRune(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := []rune(s)
	return string(r[len(r)-1])
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
