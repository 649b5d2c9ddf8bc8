package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/internal/aggregators"
	"github.com/logsift/logsift/internal/analysis"
	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/internal/dns"
	"github.com/logsift/logsift/internal/export"
	"github.com/logsift/logsift/internal/filters"
	"github.com/logsift/logsift/internal/logreader"
	"github.com/logsift/logsift/internal/parser"
	"github.com/logsift/logsift/internal/samplelog"
	"github.com/logsift/logsift/internal/tui"
	"github.com/logsift/logsift/internal/ui"
	"github.com/logsift/logsift/pkg/models"
)

var (
	// Global flags
	logFile      string
	logFormat    string
	configFile   string
	topN         int
	exportFormat string
	exportFile   string
	noColor      bool
	resolveHosts bool

	// Filter flags
	filterHosts   []string
	filterCIDRs   []string
	filterMethods []string
	filterStatus  []int
	filterPath    string
	sinceStr      string
	untilStr      string
	excludeBots   bool
)

// RootCmd is the root command
var RootCmd = &cobra.Command{
	Use:   "logsift",
	Short: "Access log analyzer with anomaly detection",
	Long: `logsift analyzes web server access logs in Common or Combined Log Format.

Features include:
  - Traffic statistics and top-N rankings
  - Rule-based anomaly flagging (SQL injection, path traversal, 404 scans)
  - Statistical traffic anomaly detection
  - Live tail dashboard
  - CSV, JSON and text export`,
	Version: "1.0.0",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&logFile, "file", "f", "", "Log file to analyze (- or empty reads stdin)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "format", "auto", "Log format: auto, common, combined")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file with analysis settings")
	RootCmd.PersistentFlags().IntVar(&topN, "top", 0, "Number of entries in top-N rankings")
	RootCmd.PersistentFlags().StringVar(&exportFormat, "export", "", "Export format (csv, json, text)")
	RootCmd.PersistentFlags().StringVarP(&exportFile, "output", "o", "", "Output file for export")
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	RootCmd.PersistentFlags().BoolVar(&resolveHosts, "resolve", false, "Reverse-resolve top host addresses")

	RootCmd.PersistentFlags().StringSliceVar(&filterHosts, "filter-host", nil, "Only include these client hosts")
	RootCmd.PersistentFlags().StringSliceVar(&filterCIDRs, "filter-cidr", nil, "Only include clients in these CIDR ranges")
	RootCmd.PersistentFlags().StringSliceVar(&filterMethods, "filter-method", nil, "Only include these HTTP methods")
	RootCmd.PersistentFlags().IntSliceVar(&filterStatus, "filter-status", nil, "Only include these status codes")
	RootCmd.PersistentFlags().StringVar(&filterPath, "filter-path", "", "Only include paths matching this regex")
	RootCmd.PersistentFlags().StringVar(&sinceStr, "since", "", "Only include entries at or after this time (RFC 3339)")
	RootCmd.PersistentFlags().StringVar(&untilStr, "until", "", "Only include entries at or before this time (RFC 3339)")
	RootCmd.PersistentFlags().BoolVar(&excludeBots, "exclude-bots", false, "Exclude bot traffic")

	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(anomaliesCmd)
	RootCmd.AddCommand(tailCmd)
	RootCmd.AddCommand(sampleCmd)
}

// Execute runs the CLI
func Execute() error {
	return RootCmd.Execute()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Full log analysis",
	Long:  "Parse a log file and report traffic statistics together with flagged anomalies",
	RunE:  runAnalyze,
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Statistical anomaly detection",
	Long:  "Detect traffic volume and error rate deviations using per-minute z-scores",
	RunE:  runAnomalies,
}

var (
	tailFollow bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Live tail dashboard",
	Long:  "Stream a log file into an interactive terminal dashboard",
	RunE:  runTail,
}

var (
	sampleLines int
	sampleSeed  int64
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a sample log file",
	Long:  "Write a synthetic access log with seeded attack traffic for testing",
	RunE:  runSample,
}

func init() {
	tailCmd.Flags().BoolVar(&tailFollow, "follow", true, "Keep watching the file for new lines")
	sampleCmd.Flags().IntVar(&sampleLines, "lines", 1000, "Number of normal traffic lines")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", time.Now().UnixNano(), "Random seed")
}

func parseFormat(name string) (parser.Format, error) {
	switch name {
	case "auto", "":
		return parser.FormatAuto, nil
	case "common":
		return parser.FormatCommon, nil
	case "combined":
		return parser.FormatCombined, nil
	default:
		return parser.FormatAuto, fmt.Errorf("unknown log format %q", name)
	}
}

func buildFilter() (*filters.LogFilter, error) {
	filter := filters.NewLogFilter()

	if len(filterHosts) > 0 {
		filter.AddHostFilter(filterHosts)
	}
	for _, cidr := range filterCIDRs {
		if err := filter.AddIPRangeFilter(cidr); err != nil {
			return nil, err
		}
	}
	if len(filterMethods) > 0 {
		filter.AddMethodFilter(filterMethods)
	}
	if len(filterStatus) > 0 {
		filter.AddStatusFilter(filterStatus)
	}
	if filterPath != "" {
		if err := filter.AddPathPattern(filterPath); err != nil {
			return nil, err
		}
	}
	if sinceStr != "" || untilStr != "" {
		start := time.Time{}
		end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
		var err error
		if sinceStr != "" {
			if start, err = time.Parse(time.RFC3339, sinceStr); err != nil {
				return nil, fmt.Errorf("invalid --since value: %w", err)
			}
		}
		if untilStr != "" {
			if end, err = time.Parse(time.RFC3339, untilStr); err != nil {
				return nil, fmt.Errorf("invalid --until value: %w", err)
			}
		}
		if err := filter.SetTimeRange(start, end); err != nil {
			return nil, err
		}
	}
	filter.SetExcludeBots(excludeBots)

	return filter, nil
}

// readEntries streams the input through the parser and filter, returning the
// accepted entries and the count of rejected lines.
func readEntries(ctx context.Context) ([]models.LogEntry, int64, error) {
	format, err := parseFormat(logFormat)
	if err != nil {
		return nil, 0, err
	}
	filter, err := buildFilter()
	if err != nil {
		return nil, 0, err
	}

	reader := logreader.NewLogReader(parser.NewLogParser(format))

	var records <-chan logreader.Record
	var errors <-chan error
	if logFile == "" || logFile == "-" {
		records, errors = reader.ReadStdin(ctx)
	} else {
		records, errors = reader.ReadFile(ctx, logFile)
	}

	var entries []models.LogEntry
	var rejected int64
	for rec := range records {
		if rec.Reject != nil {
			rejected++
			continue
		}
		if filter.ShouldInclude(rec.Entry) {
			entries = append(entries, *rec.Entry)
		}
	}
	for err := range errors {
		if err != nil {
			return nil, 0, err
		}
	}

	return entries, rejected, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if topN > 0 {
		settings.TopN = topN
	}

	entries, rejected, err := readEntries(cmd.Context())
	if err != nil {
		return err
	}

	agg := aggregators.NewStatisticsAggregator(settings.TopN)
	rules := analysis.DefaultRuleSet(settings)
	for i := range entries {
		agg.AddEntry(&entries[i])
		rules.Inspect(&entries[i])
	}

	report := agg.Report(rejected)
	report.Anomalies = rules.Findings()

	if resolveHosts {
		dns.NewResolver().AnnotateHosts(report.TopHosts)
	}

	consoleUI := ui.NewConsoleUI(!noColor)
	consoleUI.DisplayReport(report)

	if exportFormat != "" && exportFile != "" {
		return export.NewDataExporter().Export(report, exportFormat, exportFile)
	}

	return nil
}

func runAnomalies(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}

	entries, _, err := readEntries(cmd.Context())
	if err != nil {
		return err
	}

	rules := analysis.DefaultRuleSet(settings)
	for i := range entries {
		rules.Inspect(&entries[i])
	}

	detector := analysis.NewAnomalyDetector(settings.ZScoreThreshold)
	detector.CalculateBaseline(entries)
	anomalies := detector.DetectAnomalies(entries)

	consoleUI := ui.NewConsoleUI(!noColor)
	consoleUI.DisplayFindings(rules.Findings())
	consoleUI.DisplayAnomalies(anomalies)

	return nil
}

func runTail(cmd *cobra.Command, args []string) error {
	if logFile == "" || logFile == "-" {
		return fmt.Errorf("tail requires a log file, use --file")
	}

	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}
	format, err := parseFormat(logFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reader := logreader.NewLogReader(parser.NewLogParser(format))
	records, errors := reader.TailFile(ctx, logFile, tailFollow)

	return tui.Run(logFile, analysis.DefaultRuleSet(settings), records, errors)
}

func runSample(cmd *cobra.Command, args []string) error {
	path := exportFile
	if path == "" {
		path = "sample.log"
	}

	if err := samplelog.NewGenerator(sampleSeed).WriteFile(path, sampleLines); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "wrote sample log to %s\n", path)
	return nil
}
