package models

import (
	"fmt"
	"net"
	"time"
)

// LogEntry represents one parsed access log line (Common or Combined format).
// Entries are constructed once by the parser and never mutated afterwards.
type LogEntry struct {
	Host       string         `json:"host"`
	RemoteUser string         `json:"remote_user,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	Protocol   string         `json:"protocol"`
	Status     int            `json:"status"`
	BytesSent  int64          `json:"bytes_sent"`
	Referer    string         `json:"referer,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	ParsedUA   *UserAgentInfo `json:"-"`
	IsBot      bool           `json:"is_bot,omitempty"`
	LineNumber int            `json:"line_number"`
	Raw        string         `json:"-"`
}

// IP returns the client address as a net.IP, or nil when the host
// field is a hostname rather than a dotted-quad address.
func (e *LogEntry) IP() net.IP {
	return net.ParseIP(e.Host)
}

// RequestLine reconstructs the quoted request portion of the log line.
func (e *LogEntry) RequestLine() string {
	return fmt.Sprintf("%s %s %s", e.Method, e.Path, e.Protocol)
}

// UserAgentInfo contains parsed user agent information
type UserAgentInfo struct {
	Browser string
	OS      string
	Device  string
}

// RejectedLine records a raw line the parser could not match, with its
// position in the input for diagnostics.
type RejectedLine struct {
	LineNumber int    `json:"line_number"`
	Raw        string `json:"raw"`
}

// TimeRange represents the time span covered by a set of entries.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Reason codes for anomaly findings. Callers switch on these rather than
// matching detail strings.
const (
	ReasonSQLInjection  = "sql_injection"
	ReasonPathTraversal = "path_traversal"
	ReasonExcessive404  = "excessive_404"
	ReasonTrafficSpike  = "traffic_spike"
	ReasonErrorRate     = "error_rate"
)

// Finding is a single anomaly flagged by a detection rule.
type Finding struct {
	ReasonCode string `json:"reason_code"`
	Detail     string `json:"detail"`
	SourceLine int    `json:"source_line,omitempty"`
}

// HostStat contains statistics for a single client host.
type HostStat struct {
	Host       string `json:"host"`
	Count      int64  `json:"count"`
	Bytes      int64  `json:"bytes"`
	ErrorCount int64  `json:"error_count"`
	Hostname   string `json:"hostname,omitempty"`
}

// PathStat contains statistics for a single requested path.
type PathStat struct {
	Path       string `json:"path"`
	Count      int64  `json:"count"`
	Bytes      int64  `json:"bytes"`
	ErrorCount int64  `json:"error_count"`
}

// SizeStats contains response size distribution statistics.
type SizeStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// AnalysisReport is the read-only snapshot produced by one analysis run.
// A run over an empty entry set yields a valid zero-valued report.
type AnalysisReport struct {
	TotalRequests int64            `json:"total_requests"`
	RejectedCount int64            `json:"rejected_count"`
	TimeRange     *TimeRange       `json:"time_range,omitempty"`
	MethodCounts  map[string]int64 `json:"methods"`
	StatusCounts  map[int]int64    `json:"status_codes"`
	TotalBytes    int64            `json:"total_bytes"`
	AvgBytes      float64          `json:"average_response_size"`
	SizeStats     *SizeStats       `json:"size_stats,omitempty"`
	TopHosts      []HostStat       `json:"top_hosts"`
	TopPaths      []PathStat       `json:"top_paths"`
	HourlyCounts  map[int]int64    `json:"hourly_distribution"`
	DailyCounts   map[string]int64 `json:"daily_distribution"`
	BotRequests   int64            `json:"bot_requests"`
	HumanRequests int64            `json:"human_requests"`
	Anomalies     []Finding        `json:"anomalies"`
}

// Anomaly represents a statistical deviation from the traffic baseline.
type Anomaly struct {
	Timestamp   time.Time `json:"timestamp"`
	ReasonCode  string    `json:"reason_code"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	Expected    float64   `json:"expected"`
	ZScore      float64   `json:"z_score"`
}

// Baseline contains per-minute baseline statistics for anomaly detection.
type Baseline struct {
	AvgRequestsPerMinute float64 `json:"avg_requests_per_minute"`
	StdDevRequests       float64 `json:"stddev_requests"`
	AvgErrorRate         float64 `json:"avg_error_rate"`
	StdDevErrorRate      float64 `json:"stddev_error_rate"`
}
