package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/logsift/logsift/pkg/models"
)

// ConsoleUI renders analysis reports on the terminal.
type ConsoleUI struct {
	writer io.Writer
	colors bool
}

// NewConsoleUI creates a new console UI.
func NewConsoleUI(enableColors bool) *ConsoleUI {
	return &ConsoleUI{
		writer: os.Stdout,
		colors: enableColors,
	}
}

// SetWriter redirects output, mainly for tests.
func (u *ConsoleUI) SetWriter(w io.Writer) {
	u.writer = w
}

// DisplayReport renders the full analysis report.
func (u *ConsoleUI) DisplayReport(report *models.AnalysisReport) {
	u.printHeader("LOG ANALYSIS SUMMARY")

	u.printSection("Overall Statistics")
	u.printKeyValue("Total Requests", fmt.Sprintf("%d", report.TotalRequests))
	u.printKeyValue("Rejected Lines", fmt.Sprintf("%d", report.RejectedCount))
	u.printKeyValue("Total Bytes", fmt.Sprintf("%.2f MB", float64(report.TotalBytes)/1024/1024))
	u.printKeyValue("Avg Response Size", fmt.Sprintf("%.1f bytes", report.AvgBytes))

	if report.TotalRequests > 0 {
		botPct := float64(report.BotRequests) / float64(report.TotalRequests) * 100
		humanPct := float64(report.HumanRequests) / float64(report.TotalRequests) * 100
		u.printKeyValue("Bot Traffic", fmt.Sprintf("%d (%.1f%%)", report.BotRequests, botPct))
		u.printKeyValue("Human Traffic", fmt.Sprintf("%d (%.1f%%)", report.HumanRequests, humanPct))
	}
	if report.TimeRange != nil {
		u.printKeyValue("First Entry", report.TimeRange.Start.Format("2006-01-02 15:04:05"))
		u.printKeyValue("Last Entry", report.TimeRange.End.Format("2006-01-02 15:04:05"))
	}

	if report.SizeStats != nil {
		u.printSection("Response Sizes")
		u.printKeyValue("Min", fmt.Sprintf("%.0f", report.SizeStats.Min))
		u.printKeyValue("Max", fmt.Sprintf("%.0f", report.SizeStats.Max))
		u.printKeyValue("Mean", fmt.Sprintf("%.1f", report.SizeStats.Mean))
		u.printKeyValue("Median", fmt.Sprintf("%.1f", report.SizeStats.Median))
		u.printKeyValue("P95", fmt.Sprintf("%.1f", report.SizeStats.P95))
	}

	if len(report.MethodCounts) > 0 {
		u.printSection("Methods")
		u.printCountsTable("Method", stringCounts(report.MethodCounts))
	}

	if len(report.StatusCounts) > 0 {
		u.printSection("Status Codes")
		u.printStatusTable(report.StatusCounts)
	}

	if len(report.TopHosts) > 0 {
		u.printSection("Top Hosts")
		u.printHostsTable(report.TopHosts)
	}

	if len(report.TopPaths) > 0 {
		u.printSection("Top Paths")
		u.printPathsTable(report.TopPaths)
	}

	if len(report.HourlyCounts) > 0 {
		u.printSection("Requests by Hour")
		u.printHourlyChart(report.HourlyCounts)
	}

	u.DisplayFindings(report.Anomalies)
}

// DisplayFindings renders anomaly findings, or a note when there are none.
func (u *ConsoleUI) DisplayFindings(findings []models.Finding) {
	u.printSection("Anomalies")
	if len(findings) == 0 {
		fmt.Fprintf(u.writer, "none detected\n")
		return
	}

	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{"Reason", "Detail", "Line"})

	for _, f := range findings {
		line := ""
		if f.SourceLine > 0 {
			line = fmt.Sprintf("%d", f.SourceLine)
		}
		table.Append([]string{
			u.colorize(f.ReasonCode, color.FgRed),
			truncate(f.Detail, 60),
			line,
		})
	}

	table.Render()
}

// DisplayAnomalies renders statistical traffic anomalies.
func (u *ConsoleUI) DisplayAnomalies(anomalies []models.Anomaly) {
	u.printHeader("TRAFFIC ANOMALIES")
	if len(anomalies) == 0 {
		fmt.Fprintf(u.writer, "none detected\n")
		return
	}

	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{"Time", "Reason", "Severity", "Value", "Expected", "Z-Score"})

	for _, a := range anomalies {
		table.Append([]string{
			a.Timestamp.Format("2006-01-02 15:04"),
			a.ReasonCode,
			u.colorize(a.Severity, severityColor(a.Severity)),
			fmt.Sprintf("%.2f", a.Value),
			fmt.Sprintf("%.2f", a.Expected),
			fmt.Sprintf("%.1f", a.ZScore),
		})
	}

	table.Render()
}

func (u *ConsoleUI) printHostsTable(hosts []models.HostStat) {
	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{"Host", "Requests", "Bytes", "Errors"})

	for _, host := range hosts {
		name := host.Host
		if host.Hostname != "" {
			name = fmt.Sprintf("%s (%s)", host.Host, host.Hostname)
		}
		table.Append([]string{
			truncate(name, 50),
			fmt.Sprintf("%d", host.Count),
			fmt.Sprintf("%d", host.Bytes),
			fmt.Sprintf("%d", host.ErrorCount),
		})
	}

	table.Render()
}

func (u *ConsoleUI) printPathsTable(paths []models.PathStat) {
	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{"Path", "Requests", "Bytes", "Errors"})

	for _, path := range paths {
		table.Append([]string{
			truncate(path.Path, 50),
			fmt.Sprintf("%d", path.Count),
			fmt.Sprintf("%d", path.Bytes),
			fmt.Sprintf("%d", path.ErrorCount),
		})
	}

	table.Render()
}

func (u *ConsoleUI) printCountsTable(label string, counts []stringCount) {
	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{label, "Requests"})
	for _, c := range counts {
		table.Append([]string{c.key, fmt.Sprintf("%d", c.count)})
	}
	table.Render()
}

func (u *ConsoleUI) printStatusTable(counts map[int]int64) {
	statuses := make([]int, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)

	table := tablewriter.NewWriter(u.writer)
	table.SetHeader([]string{"Status", "Requests"})
	for _, status := range statuses {
		table.Append([]string{
			u.colorize(fmt.Sprintf("%d", status), statusColor(status)),
			fmt.Sprintf("%d", counts[status]),
		})
	}
	table.Render()
}

// printHourlyChart draws a simple horizontal bar chart of requests per hour.
func (u *ConsoleUI) printHourlyChart(counts map[int]int64) {
	hours := make([]int, 0, len(counts))
	var max int64
	for hour, count := range counts {
		hours = append(hours, hour)
		if count > max {
			max = count
		}
	}
	sort.Ints(hours)

	for _, hour := range hours {
		count := counts[hour]
		width := int(count * 40 / max)
		if width == 0 && count > 0 {
			width = 1
		}
		bar := strings.Repeat("█", width)
		if u.colors {
			bar = color.New(color.FgCyan).Sprint(bar)
		}
		fmt.Fprintf(u.writer, "%02d:00 %s %d\n", hour, bar, count)
	}
}

func (u *ConsoleUI) printHeader(title string) {
	if u.colors {
		color.New(color.FgCyan, color.Bold).Fprintf(u.writer, "\n%s\n", title)
		color.New(color.FgCyan).Fprintf(u.writer, "%s\n\n", strings.Repeat("═", len(title)))
	} else {
		fmt.Fprintf(u.writer, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	}
}

func (u *ConsoleUI) printSection(title string) {
	if u.colors {
		color.New(color.FgYellow, color.Bold).Fprintf(u.writer, "\n%s\n", title)
		color.New(color.FgYellow).Fprintf(u.writer, "%s\n", strings.Repeat("─", len(title)))
	} else {
		fmt.Fprintf(u.writer, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	}
}

func (u *ConsoleUI) printKeyValue(key, value string) {
	if u.colors {
		color.New(color.FgWhite, color.Bold).Fprintf(u.writer, "%-22s", key+":")
		color.New(color.FgGreen).Fprintf(u.writer, "%s\n", value)
	} else {
		fmt.Fprintf(u.writer, "%-22s %s\n", key+":", value)
	}
}

func (u *ConsoleUI) colorize(text string, colorAttr color.Attribute) string {
	if u.colors {
		return color.New(colorAttr).Sprint(text)
	}
	return text
}

func severityColor(severity string) color.Attribute {
	switch severity {
	case "critical":
		return color.FgRed
	case "high":
		return color.FgYellow
	case "medium":
		return color.FgBlue
	default:
		return color.FgWhite
	}
}

func statusColor(status int) color.Attribute {
	switch {
	case status >= 500:
		return color.FgRed
	case status >= 400:
		return color.FgYellow
	case status >= 300:
		return color.FgBlue
	default:
		return color.FgGreen
	}
}

type stringCount struct {
	key   string
	count int64
}

func stringCounts(m map[string]int64) []stringCount {
	out := make([]stringCount, 0, len(m))
	for k, v := range m {
		out = append(out, stringCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
