package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logsift/logsift/pkg/models"
)

func sampleReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		TotalRequests: 3,
		RejectedCount: 1,
		TimeRange: &models.TimeRange{
			Start: time.Date(2023, 10, 10, 13, 0, 0, 0, time.UTC),
			End:   time.Date(2023, 10, 10, 14, 0, 0, 0, time.UTC),
		},
		MethodCounts:  map[string]int64{"GET": 2, "POST": 1},
		StatusCounts:  map[int]int64{200: 2, 404: 1},
		TotalBytes:    3000,
		AvgBytes:      1000,
		SizeStats:     &models.SizeStats{Min: 500, Max: 2000, Mean: 1000, Median: 500, P95: 2000},
		TopHosts:      []models.HostStat{{Host: "1.2.3.4", Count: 2}, {Host: "5.6.7.8", Count: 1}},
		TopPaths:      []models.PathStat{{Path: "/", Count: 2}, {Path: "/missing", Count: 1}},
		HourlyCounts:  map[int]int64{13: 3},
		DailyCounts:   map[string]int64{"2023-10-10": 3},
		HumanRequests: 3,
		Anomalies: []models.Finding{
			{ReasonCode: models.ReasonPathTraversal, Detail: "1.2.3.4 GET /../../etc/passwd"},
		},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataExporter().WriteJSON(sampleReport(), &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded models.AnalysisReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalRequests != 3 || decoded.RejectedCount != 1 {
		t.Errorf("decoded counts = %d, %d; want 3, 1", decoded.TotalRequests, decoded.RejectedCount)
	}
	if len(decoded.Anomalies) != 1 || decoded.Anomalies[0].ReasonCode != models.ReasonPathTraversal {
		t.Errorf("anomalies did not survive round trip: %+v", decoded.Anomalies)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataExporter().WriteCSV(sampleReport(), &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if records[0][0] != "Metric" || records[0][1] != "Value" {
		t.Errorf("unexpected header %v", records[0])
	}

	found := map[string]string{}
	for _, rec := range records[1:] {
		found[rec[0]] = rec[1]
	}
	if found["Total Requests"] != "3" {
		t.Errorf("Total Requests = %q, want 3", found["Total Requests"])
	}
	if found["Rejected Lines"] != "1" {
		t.Errorf("Rejected Lines = %q, want 1", found["Rejected Lines"])
	}
	if found["Status 404"] != "1" {
		t.Errorf("Status 404 = %q, want 1", found["Status 404"])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataExporter().WriteText(sampleReport(), &buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total Requests:      3",
		"Rejected Lines:      1",
		"1.2.3.4 (2 requests)",
		"/missing (1 requests)",
		models.ReasonPathTraversal,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q", want)
		}
	}
}

func TestWriteTextEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	empty := &models.AnalysisReport{
		MethodCounts: map[string]int64{},
		StatusCounts: map[int]int64{},
	}
	if err := NewDataExporter().WriteText(empty, &buf); err != nil {
		t.Fatalf("WriteText on empty report: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Requests:      0") {
		t.Error("empty report should still print zero totals")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{FormatJSON, FormatCSV, FormatText} {
		path := filepath.Join(dir, "report."+format)
		if err := NewDataExporter().Export(sampleReport(), format, path); err != nil {
			t.Fatalf("Export %s: %v", format, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if len(data) == 0 {
			t.Errorf("%s export produced an empty file", format)
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	if err := NewDataExporter().Export(sampleReport(), "xml", path); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExportDailyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.csv")
	if err := NewDataExporter().ExportDailyCSV(sampleReport(), path); err != nil {
		t.Fatalf("ExportDailyCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d rows, want header plus one day", len(records))
	}
	if records[1][0] != "2023-10-10" || records[1][1] != "3" {
		t.Errorf("daily row = %v", records[1])
	}
}
