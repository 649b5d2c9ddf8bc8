package filters

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/logsift/logsift/pkg/models"
)

// LogFilter decides which parsed entries make it into the analysis.
type LogFilter struct {
	hosts        map[string]bool
	ipRanges     []*net.IPNet
	statusCodes  map[int]bool
	statusRanges [][2]int
	methods      map[string]bool
	pathPatterns []*regexp.Regexp
	timeRange    *models.TimeRange
	excludeBots  bool
}

// NewLogFilter creates an empty filter that includes everything.
func NewLogFilter() *LogFilter {
	return &LogFilter{
		hosts:       make(map[string]bool),
		ipRanges:    make([]*net.IPNet, 0),
		statusCodes: make(map[int]bool),
		methods:     make(map[string]bool),
	}
}

// ShouldInclude checks if a log entry passes all configured filters.
func (f *LogFilter) ShouldInclude(entry *models.LogEntry) bool {
	if f.excludeBots && entry.IsBot {
		return false
	}

	if len(f.hosts) > 0 || len(f.ipRanges) > 0 {
		if !f.matchesHost(entry) {
			return false
		}
	}

	if len(f.statusCodes) > 0 || len(f.statusRanges) > 0 {
		if !f.matchesStatus(entry.Status) {
			return false
		}
	}

	if len(f.methods) > 0 {
		if !f.methods[strings.ToUpper(entry.Method)] {
			return false
		}
	}

	if f.timeRange != nil {
		if entry.Timestamp.Before(f.timeRange.Start) || entry.Timestamp.After(f.timeRange.End) {
			return false
		}
	}

	if len(f.pathPatterns) > 0 {
		matched := false
		for _, pattern := range f.pathPatterns {
			if pattern.MatchString(entry.Path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func (f *LogFilter) matchesHost(entry *models.LogEntry) bool {
	if f.hosts[entry.Host] {
		return true
	}
	if ip := entry.IP(); ip != nil {
		for _, ipRange := range f.ipRanges {
			if ipRange.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func (f *LogFilter) matchesStatus(status int) bool {
	if f.statusCodes[status] {
		return true
	}
	for _, r := range f.statusRanges {
		if status >= r[0] && status <= r[1] {
			return true
		}
	}
	return false
}

// AddHostFilter adds exact host matches. Entries from any of the given
// hosts are included.
func (f *LogFilter) AddHostFilter(hosts []string) {
	for _, host := range hosts {
		f.hosts[host] = true
	}
}

// AddIPRangeFilter adds an IP range filter in CIDR notation.
func (f *LogFilter) AddIPRangeFilter(cidr string) error {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	f.ipRanges = append(f.ipRanges, ipNet)
	return nil
}

// AddStatusFilter adds exact status code matches.
func (f *LogFilter) AddStatusFilter(codes []int) {
	for _, code := range codes {
		f.statusCodes[code] = true
	}
}

// AddStatusRange adds an inclusive status code range, e.g. 400-499.
func (f *LogFilter) AddStatusRange(low, high int) error {
	if low > high {
		return fmt.Errorf("invalid status range %d-%d", low, high)
	}
	f.statusRanges = append(f.statusRanges, [2]int{low, high})
	return nil
}

// AddMethodFilter adds an HTTP method filter. Methods are matched
// case-insensitively.
func (f *LogFilter) AddMethodFilter(methods []string) {
	for _, method := range methods {
		f.methods[strings.ToUpper(method)] = true
	}
}

// AddPathPattern adds a path filter from a regular expression.
func (f *LogFilter) AddPathPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	f.pathPatterns = append(f.pathPatterns, re)
	return nil
}

// SetTimeRange restricts entries to the inclusive window [start, end].
func (f *LogFilter) SetTimeRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("time range end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	f.timeRange = &models.TimeRange{Start: start, End: end}
	return nil
}

// SetExcludeBots sets whether to drop entries classified as bot traffic.
func (f *LogFilter) SetExcludeBots(exclude bool) {
	f.excludeBots = exclude
}

// Clear resets all filters.
func (f *LogFilter) Clear() {
	f.hosts = make(map[string]bool)
	f.ipRanges = make([]*net.IPNet, 0)
	f.statusCodes = make(map[int]bool)
	f.statusRanges = nil
	f.methods = make(map[string]bool)
	f.pathPatterns = nil
	f.timeRange = nil
	f.excludeBots = false
}

// ErrorsOnly creates a filter for error responses only (4xx, 5xx).
func ErrorsOnly() *LogFilter {
	filter := NewLogFilter()
	_ = filter.AddStatusRange(400, 599)
	return filter
}

// ClientErrorsOnly creates a filter for client errors (4xx).
func ClientErrorsOnly() *LogFilter {
	filter := NewLogFilter()
	_ = filter.AddStatusRange(400, 499)
	return filter
}

// ServerErrorsOnly creates a filter for server errors (5xx).
func ServerErrorsOnly() *LogFilter {
	filter := NewLogFilter()
	_ = filter.AddStatusRange(500, 599)
	return filter
}

// NoBots creates a filter that excludes bot traffic.
func NoBots() *LogFilter {
	filter := NewLogFilter()
	filter.SetExcludeBots(true)
	return filter
}
