package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/logsift/logsift/pkg/models"
)

func resetFlags() {
	logFile = ""
	logFormat = "auto"
	configFile = ""
	topN = 0
	exportFormat = ""
	exportFile = ""
	noColor = true
	resolveHosts = false
	filterHosts = nil
	filterCIDRs = nil
	filterMethods = nil
	filterStatus = nil
	filterPath = ""
	sinceStr = ""
	untilStr = ""
	excludeBots = false
}

const logContent = `192.168.1.1 - - [19/Apr/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326 "-" "Mozilla/5.0"
192.168.1.100 - - [19/Apr/2023:13:55:40 +0000] "GET /search?q=1' OR '1'='1 HTTP/1.1" 400 217 "-" "Mozilla/5.0"
not a log line
192.168.1.2 - - [19/Apr/2023:14:02:11 +0000] "POST /api/data HTTP/1.1" 201 512 "-" "Mozilla/5.0"
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.log")
	if err := os.WriteFile(path, []byte(logContent), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestAnalyzeExportsJSON(t *testing.T) {
	resetFlags()
	out := filepath.Join(t.TempDir(), "report.json")

	RootCmd.SetArgs([]string{
		"analyze",
		"--file", writeLog(t),
		"--export", "json",
		"--output", out,
		"--no-color",
	})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var report models.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON export: %v", err)
	}
	if report.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", report.TotalRequests)
	}
	if report.RejectedCount != 1 {
		t.Errorf("RejectedCount = %d, want 1", report.RejectedCount)
	}

	var sawInjection bool
	for _, f := range report.Anomalies {
		if f.ReasonCode == models.ReasonSQLInjection {
			sawInjection = true
		}
	}
	if !sawInjection {
		t.Errorf("expected an injection finding, got %+v", report.Anomalies)
	}
}

func TestAnalyzeWithStatusFilter(t *testing.T) {
	resetFlags()
	out := filepath.Join(t.TempDir(), "report.json")

	RootCmd.SetArgs([]string{
		"analyze",
		"--file", writeLog(t),
		"--filter-status", "200",
		"--export", "json",
		"--output", out,
		"--no-color",
	})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var report models.AnalysisReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1 after filter", report.TotalRequests)
	}
}

func TestAnalyzeInvalidFilterFails(t *testing.T) {
	resetFlags()
	RootCmd.SetArgs([]string{
		"analyze",
		"--file", writeLog(t),
		"--filter-path", "[unclosed",
		"--no-color",
	})
	if err := RootCmd.Execute(); err == nil {
		t.Fatal("expected error for invalid path regex")
	}
}

func TestSampleCommand(t *testing.T) {
	resetFlags()
	out := filepath.Join(t.TempDir(), "sample.log")

	RootCmd.SetArgs([]string{
		"sample",
		"--lines", "20",
		"--seed", "42",
		"--output", out,
	})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("sample: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Error("sample log is empty")
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := parseFormat("combined"); err != nil {
		t.Errorf("combined should be valid: %v", err)
	}
	if _, err := parseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
