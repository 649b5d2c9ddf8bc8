package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/logsift/logsift/internal/analysis"
	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/internal/logreader"
	"github.com/logsift/logsift/pkg/models"
)

func testModel() Model {
	records := make(chan logreader.Record)
	errors := make(chan error)
	return NewModel("access.log", analysis.DefaultRuleSet(config.Defaults()), records, errors)
}

func record(path string, status int) RecordMsg {
	return RecordMsg{Record: logreader.Record{Entry: &models.LogEntry{
		Host:      "1.2.3.4",
		Timestamp: time.Date(2023, 10, 10, 13, 55, 36, 0, time.UTC),
		Method:    "GET",
		Path:      path,
		Protocol:  "HTTP/1.1",
		Status:    status,
	}}}
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T", updated)
	}
	return next
}

func TestCountersTrackRecords(t *testing.T) {
	m := testModel()
	m = apply(t, m, record("/", 200))
	m = apply(t, m, record("/missing", 404))
	m = apply(t, m, RecordMsg{Record: logreader.Record{Reject: &models.RejectedLine{LineNumber: 3, Raw: "junk"}}})

	if m.total != 2 {
		t.Errorf("total = %d, want 2", m.total)
	}
	if m.errorCount != 1 {
		t.Errorf("errorCount = %d, want 1", m.errorCount)
	}
	if m.rejected != 1 {
		t.Errorf("rejected = %d, want 1", m.rejected)
	}
}

func TestPauseStopsCounting(t *testing.T) {
	m := testModel()
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	m = apply(t, m, record("/", 200))
	if m.total != 0 {
		t.Errorf("paused model counted %d records", m.total)
	}
}

func TestFindingsSurfaceInView(t *testing.T) {
	m := testModel()
	m = apply(t, m, record("/../../etc/passwd", 403))

	view := m.View()
	if !strings.Contains(view, models.ReasonPathTraversal) {
		t.Errorf("view missing traversal finding:\n%s", view)
	}
}

func TestClearResetsState(t *testing.T) {
	m := testModel()
	m = apply(t, m, record("/", 200))
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	if m.total != 0 || len(m.pathCounts) != 0 {
		t.Error("clear should reset counters")
	}
}

func TestStreamClosedShownInView(t *testing.T) {
	m := testModel()
	m = apply(t, m, StreamClosedMsg{})
	if !strings.Contains(m.View(), "stream closed") {
		t.Error("view should note a closed stream")
	}
}
