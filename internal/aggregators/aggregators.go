package aggregators

import (
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/logsift/logsift/pkg/models"
)

// StatisticsAggregator folds log entries into an AnalysisReport. Each
// analysis run uses a fresh aggregator; the report is built once at the end.
type StatisticsAggregator struct {
	mu            sync.RWMutex
	totalRequests int64
	statusCounts  map[int]int64
	methodCounts  map[string]int64
	hostStats     map[string]*hostStats
	pathStats     map[string]*pathStats
	hourlyCounts  map[int]int64
	dailyCounts   map[string]int64
	sizes         []float64
	totalBytes    int64
	botRequests   int64
	humanRequests int64
	minTime       time.Time
	maxTime       time.Time
	topN          int
}

type hostStats struct {
	count      int64
	bytes      int64
	errorCount int64
	order      int
}

type pathStats struct {
	count      int64
	bytes      int64
	errorCount int64
	order      int
}

// NewStatisticsAggregator creates an aggregator that reports topN hosts and
// paths.
func NewStatisticsAggregator(topN int) *StatisticsAggregator {
	if topN <= 0 {
		topN = 10
	}
	return &StatisticsAggregator{
		statusCounts: make(map[int]int64),
		methodCounts: make(map[string]int64),
		hostStats:    make(map[string]*hostStats),
		pathStats:    make(map[string]*pathStats),
		hourlyCounts: make(map[int]int64),
		dailyCounts:  make(map[string]int64),
		topN:         topN,
	}
}

// AddEntry adds a log entry to the aggregator
func (a *StatisticsAggregator) AddEntry(entry *models.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalRequests++
	a.totalBytes += entry.BytesSent
	a.statusCounts[entry.Status]++
	a.methodCounts[entry.Method]++
	a.sizes = append(a.sizes, float64(entry.BytesSent))

	a.hourlyCounts[entry.Timestamp.Hour()]++
	a.dailyCounts[entry.Timestamp.Format("2006-01-02")]++

	if a.minTime.IsZero() || entry.Timestamp.Before(a.minTime) {
		a.minTime = entry.Timestamp
	}
	if entry.Timestamp.After(a.maxTime) {
		a.maxTime = entry.Timestamp
	}

	if entry.IsBot {
		a.botRequests++
	} else {
		a.humanRequests++
	}

	// The order field records first-seen position so top-N ties stay stable.
	if _, exists := a.hostStats[entry.Host]; !exists {
		a.hostStats[entry.Host] = &hostStats{order: len(a.hostStats)}
	}
	hs := a.hostStats[entry.Host]
	hs.count++
	hs.bytes += entry.BytesSent
	if entry.Status >= 400 {
		hs.errorCount++
	}

	if _, exists := a.pathStats[entry.Path]; !exists {
		a.pathStats[entry.Path] = &pathStats{order: len(a.pathStats)}
	}
	ps := a.pathStats[entry.Path]
	ps.count++
	ps.bytes += entry.BytesSent
	if entry.Status >= 400 {
		ps.errorCount++
	}
}

// Report builds the analysis report. rejected is the count of input lines the
// parser could not match, carried through so partial results are never
// presented as complete.
func (a *StatisticsAggregator) Report(rejected int64) *models.AnalysisReport {
	a.mu.RLock()
	defer a.mu.RUnlock()

	report := &models.AnalysisReport{
		TotalRequests: a.totalRequests,
		RejectedCount: rejected,
		MethodCounts:  copyStringCounts(a.methodCounts),
		StatusCounts:  copyIntCounts(a.statusCounts),
		TotalBytes:    a.totalBytes,
		HourlyCounts:  copyIntCounts(a.hourlyCounts),
		DailyCounts:   copyStringCounts(a.dailyCounts),
		BotRequests:   a.botRequests,
		HumanRequests: a.humanRequests,
		TopHosts:      a.topHosts(a.topN),
		TopPaths:      a.topPaths(a.topN),
		Anomalies:     []models.Finding{},
	}

	if a.totalRequests > 0 {
		report.AvgBytes = float64(a.totalBytes) / float64(a.totalRequests)
	}

	if len(a.sizes) > 0 {
		ss := &models.SizeStats{}
		ss.Min, _ = stats.Min(a.sizes)
		ss.Max, _ = stats.Max(a.sizes)
		ss.Mean, _ = stats.Mean(a.sizes)
		ss.Median, _ = stats.Median(a.sizes)
		if p95, err := stats.Percentile(a.sizes, 95); err == nil {
			ss.P95 = p95
		}
		report.SizeStats = ss
	}

	if !a.minTime.IsZero() {
		report.TimeRange = &models.TimeRange{Start: a.minTime, End: a.maxTime}
	}

	return report
}

// TopHosts returns the n most frequent client hosts.
func (a *StatisticsAggregator) TopHosts(n int) []models.HostStat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.topHosts(n)
}

func (a *StatisticsAggregator) topHosts(n int) []models.HostStat {
	type ranked struct {
		stat  models.HostStat
		order int
	}

	hosts := make([]ranked, 0, len(a.hostStats))
	for host, hs := range a.hostStats {
		hosts = append(hosts, ranked{
			stat: models.HostStat{
				Host:       host,
				Count:      hs.count,
				Bytes:      hs.bytes,
				ErrorCount: hs.errorCount,
			},
			order: hs.order,
		})
	}

	// Descending count, ties broken by first-seen order.
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].stat.Count != hosts[j].stat.Count {
			return hosts[i].stat.Count > hosts[j].stat.Count
		}
		return hosts[i].order < hosts[j].order
	})

	if n < len(hosts) {
		hosts = hosts[:n]
	}
	out := make([]models.HostStat, len(hosts))
	for i, h := range hosts {
		out[i] = h.stat
	}
	return out
}

// TopPaths returns the n most requested paths.
func (a *StatisticsAggregator) TopPaths(n int) []models.PathStat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.topPaths(n)
}

func (a *StatisticsAggregator) topPaths(n int) []models.PathStat {
	type ranked struct {
		stat  models.PathStat
		order int
	}

	paths := make([]ranked, 0, len(a.pathStats))
	for path, ps := range a.pathStats {
		paths = append(paths, ranked{
			stat: models.PathStat{
				Path:       path,
				Count:      ps.count,
				Bytes:      ps.bytes,
				ErrorCount: ps.errorCount,
			},
			order: ps.order,
		})
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].stat.Count != paths[j].stat.Count {
			return paths[i].stat.Count > paths[j].stat.Count
		}
		return paths[i].order < paths[j].order
	})

	if n < len(paths) {
		paths = paths[:n]
	}
	out := make([]models.PathStat, len(paths))
	for i, p := range paths {
		out[i] = p.stat
	}
	return out
}

// TotalRequests returns the number of entries added so far.
func (a *StatisticsAggregator) TotalRequests() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalRequests
}

// ErrorCount returns the number of entries with a 4xx or 5xx status.
func (a *StatisticsAggregator) ErrorCount() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var errors int64
	for status, count := range a.statusCounts {
		if status >= 400 {
			errors += count
		}
	}
	return errors
}

func copyIntCounts(src map[int]int64) map[int]int64 {
	dst := make(map[int]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyStringCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
