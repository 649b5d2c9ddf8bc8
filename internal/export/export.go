package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/logsift/logsift/pkg/models"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// DataExporter writes analysis reports in several formats.
type DataExporter struct{}

// NewDataExporter creates a new data exporter.
func NewDataExporter() *DataExporter {
	return &DataExporter{}
}

// Export writes the report to filename in the given format.
func (e *DataExporter) Export(report *models.AnalysisReport, format, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		return e.WriteJSON(report, file)
	case FormatCSV:
		return e.WriteCSV(report, file)
	case FormatText:
		return e.WriteText(report, file)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the full report as indented JSON.
func (e *DataExporter) WriteJSON(report *models.AnalysisReport, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteCSV writes the summary metrics as metric,value rows.
func (e *DataExporter) WriteCSV(report *models.AnalysisReport, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}

	records := [][]string{
		{"Total Requests", fmt.Sprintf("%d", report.TotalRequests)},
		{"Rejected Lines", fmt.Sprintf("%d", report.RejectedCount)},
		{"Total Bytes", fmt.Sprintf("%d", report.TotalBytes)},
		{"Avg Bytes", fmt.Sprintf("%.1f", report.AvgBytes)},
		{"Bot Requests", fmt.Sprintf("%d", report.BotRequests)},
		{"Human Requests", fmt.Sprintf("%d", report.HumanRequests)},
	}
	if report.TimeRange != nil {
		records = append(records,
			[]string{"First Entry", report.TimeRange.Start.Format("2006-01-02 15:04:05")},
			[]string{"Last Entry", report.TimeRange.End.Format("2006-01-02 15:04:05")},
		)
	}
	for _, method := range sortedKeys(report.MethodCounts) {
		records = append(records, []string{
			fmt.Sprintf("Method %s", method),
			fmt.Sprintf("%d", report.MethodCounts[method]),
		})
	}
	for _, status := range sortedIntKeys(report.StatusCounts) {
		records = append(records, []string{
			fmt.Sprintf("Status %d", status),
			fmt.Sprintf("%d", report.StatusCounts[status]),
		})
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// ExportDailyCSV writes the per-day request counts as a timeline CSV.
func (e *DataExporter) ExportDailyCSV(report *models.AnalysisReport, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Requests"}); err != nil {
		return err
	}

	for _, day := range sortedKeys(report.DailyCounts) {
		record := []string{day, fmt.Sprintf("%d", report.DailyCounts[day])}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// WriteText writes a plain text report summary.
func (e *DataExporter) WriteText(report *models.AnalysisReport, w io.Writer) error {
	fmt.Fprintf(w, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(w, "          LOG ANALYSIS REPORT                  \n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════\n\n")

	fmt.Fprintf(w, "OVERALL STATISTICS\n")
	fmt.Fprintf(w, "─────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Total Requests:      %d\n", report.TotalRequests)
	fmt.Fprintf(w, "Rejected Lines:      %d\n", report.RejectedCount)
	fmt.Fprintf(w, "Total Bytes:         %.2f MB\n", float64(report.TotalBytes)/1024/1024)
	if report.TotalRequests > 0 {
		fmt.Fprintf(w, "Bot Traffic:         %d (%.1f%%)\n", report.BotRequests,
			float64(report.BotRequests)/float64(report.TotalRequests)*100)
		fmt.Fprintf(w, "Human Traffic:       %d (%.1f%%)\n", report.HumanRequests,
			float64(report.HumanRequests)/float64(report.TotalRequests)*100)
	}
	if report.TimeRange != nil {
		fmt.Fprintf(w, "Time Range:          %s to %s\n",
			report.TimeRange.Start.Format("2006-01-02 15:04:05"),
			report.TimeRange.End.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "\n")

	if report.SizeStats != nil {
		fmt.Fprintf(w, "RESPONSE SIZES\n")
		fmt.Fprintf(w, "─────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Min:                 %.0f\n", report.SizeStats.Min)
		fmt.Fprintf(w, "Max:                 %.0f\n", report.SizeStats.Max)
		fmt.Fprintf(w, "Mean:                %.1f\n", report.SizeStats.Mean)
		fmt.Fprintf(w, "Median:              %.1f\n", report.SizeStats.Median)
		fmt.Fprintf(w, "P95:                 %.1f\n\n", report.SizeStats.P95)
	}

	if len(report.TopHosts) > 0 {
		fmt.Fprintf(w, "TOP HOSTS\n")
		fmt.Fprintf(w, "─────────────────────────────────────────────\n")
		for i, host := range report.TopHosts {
			fmt.Fprintf(w, "%2d. %s (%d requests)\n", i+1, host.Host, host.Count)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(report.TopPaths) > 0 {
		fmt.Fprintf(w, "TOP PATHS\n")
		fmt.Fprintf(w, "─────────────────────────────────────────────\n")
		for i, path := range report.TopPaths {
			fmt.Fprintf(w, "%2d. %s (%d requests)\n", i+1, path.Path, path.Count)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(report.Anomalies) > 0 {
		fmt.Fprintf(w, "ANOMALIES\n")
		fmt.Fprintf(w, "─────────────────────────────────────────────\n")
		for _, finding := range report.Anomalies {
			fmt.Fprintf(w, "[%s] %s\n", finding.ReasonCode, finding.Detail)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[int]int64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
