// Package tui implements the live tail dashboard.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/logsift/logsift/internal/analysis"
	"github.com/logsift/logsift/internal/logreader"
	"github.com/logsift/logsift/pkg/models"
)

const (
	maxRecentLines    = 12
	maxRecentFindings = 8
	topPathRows       = 5
)

type keyMap struct {
	Pause key.Binding
	Clear key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear counters"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)

	findingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Padding(0, 1)
)

// RecordMsg carries the next record from the tail stream.
type RecordMsg struct {
	Record logreader.Record
}

// StreamClosedMsg is sent when the tail stream ends.
type StreamClosedMsg struct{}

// ErrorMsg is sent when reading fails.
type ErrorMsg struct {
	Err error
}

// Model is the live tail application state.
type Model struct {
	source string
	rules  *analysis.RuleSet

	records <-chan logreader.Record
	errors  <-chan error

	total      int64
	errorCount int64
	rejected   int64
	pathCounts map[string]int64

	recentLines    []string
	recentFindings []models.Finding
	seenFindings   int

	paused bool
	closed bool
	err    error

	width  int
	height int

	keys keyMap
}

// NewModel creates a tail dashboard fed by the given record stream.
func NewModel(source string, rules *analysis.RuleSet, records <-chan logreader.Record, errors <-chan error) Model {
	return Model{
		source:     source,
		rules:      rules,
		records:    records,
		errors:     errors,
		pathCounts: make(map[string]int64),
		keys:       keys,
	}
}

func (m Model) waitForRecord() tea.Cmd {
	return func() tea.Msg {
		select {
		case rec, ok := <-m.records:
			if !ok {
				return StreamClosedMsg{}
			}
			return RecordMsg{Record: rec}
		case err, ok := <-m.errors:
			if ok && err != nil {
				return ErrorMsg{Err: err}
			}
			return StreamClosedMsg{}
		}
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForRecord()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Clear):
			m.total = 0
			m.errorCount = 0
			m.rejected = 0
			m.pathCounts = make(map[string]int64)
			m.recentLines = nil
			m.recentFindings = nil
			m.seenFindings = 0
			m.rules.Reset()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case RecordMsg:
		if !m.paused {
			m.apply(msg.Record)
		}
		return m, m.waitForRecord()

	case StreamClosedMsg:
		m.closed = true

	case ErrorMsg:
		m.err = msg.Err
	}

	return m, nil
}

func (m *Model) apply(rec logreader.Record) {
	if rec.Reject != nil {
		m.rejected++
		return
	}

	entry := rec.Entry
	m.total++
	if entry.Status >= 400 {
		m.errorCount++
	}
	m.pathCounts[entry.Path]++

	line := fmt.Sprintf("%s %s %s %d", entry.Timestamp.Format("15:04:05"), entry.Method, entry.Path, entry.Status)
	m.recentLines = append(m.recentLines, line)
	if len(m.recentLines) > maxRecentLines {
		m.recentLines = m.recentLines[len(m.recentLines)-maxRecentLines:]
	}

	m.rules.Inspect(entry)
	findings := m.rules.Findings()
	if len(findings) > m.seenFindings {
		m.recentFindings = append(m.recentFindings, findings[m.seenFindings:]...)
		m.seenFindings = len(findings)
		if len(m.recentFindings) > maxRecentFindings {
			m.recentFindings = m.recentFindings[len(m.recentFindings)-maxRecentFindings:]
		}
	}
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\nError: %v\n\nPress q to quit.\n", m.err)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("logsift tail %s", m.source)))
	if m.paused {
		b.WriteString(errorStyle.Render("  [paused]"))
	}
	if m.closed {
		b.WriteString(helpStyle.Render("  [stream closed]"))
	}
	b.WriteString("\n\n")

	b.WriteString(panelStyle.Render(m.renderCounters()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.renderTopPaths()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.renderRecent()))
	if len(m.recentFindings) > 0 {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.renderFindings()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("p pause · c clear · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCounters() string {
	errorRate := 0.0
	if m.total > 0 {
		errorRate = float64(m.errorCount) / float64(m.total) * 100
	}
	return fmt.Sprintf("%s %d   %s %d (%.1f%%)   %s %d",
		labelStyle.Render("requests"), m.total,
		labelStyle.Render("errors"), m.errorCount, errorRate,
		labelStyle.Render("rejected"), m.rejected)
}

func (m Model) renderTopPaths() string {
	type pathCount struct {
		path  string
		count int64
	}
	counts := make([]pathCount, 0, len(m.pathCounts))
	for path, count := range m.pathCounts {
		counts = append(counts, pathCount{path, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].path < counts[j].path
	})
	if len(counts) > topPathRows {
		counts = counts[:topPathRows]
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("top paths"))
	for _, c := range counts {
		b.WriteString(fmt.Sprintf("\n%6d  %s", c.count, c.path))
	}
	if len(counts) == 0 {
		b.WriteString("\nwaiting for traffic...")
	}
	return b.String()
}

func (m Model) renderRecent() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("recent"))
	for _, line := range m.recentLines {
		b.WriteString("\n" + line)
	}
	if len(m.recentLines) == 0 {
		b.WriteString("\nno entries yet")
	}
	return b.String()
}

func (m Model) renderFindings() string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("findings"))
	for _, f := range m.recentFindings {
		b.WriteString("\n" + findingStyle.Render(fmt.Sprintf("[%s] %s", f.ReasonCode, f.Detail)))
	}
	return b.String()
}

// Run starts the dashboard and blocks until it exits.
func Run(source string, rules *analysis.RuleSet, records <-chan logreader.Record, errors <-chan error) error {
	program := tea.NewProgram(NewModel(source, rules, records, errors), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tail dashboard failed: %w", err)
	}
	return nil
}
