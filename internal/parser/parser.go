package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/pkg/models"
)

// Format selects which access log grammar the parser matches.
type Format int

const (
	// FormatAuto tries Combined first, then Common.
	FormatAuto Format = iota
	FormatCommon
	FormatCombined
)

// Common Log Format:
// 192.168.1.1 - - [19/Apr/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326
var commonRe = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([A-Za-z]+) (.*?) (HTTP/[0-9.]+)" (\d{3}) (\d+|-)\s*$`,
)

// Combined Log Format adds quoted referrer and user agent:
// ... 200 2326 "http://example.com/" "Mozilla/5.0 ..."
var combinedRe = regexp.MustCompile(
	`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([A-Za-z]+) (.*?) (HTTP/[0-9.]+)" (\d{3}) (\d+|-) "([^"]*)" "([^"]*)"\s*$`,
)

const timestampLayout = "02/Jan/2006:15:04:05 -0700"

// LogParser turns raw access log lines into LogEntry values.
type LogParser struct {
	format        Format
	botSignatures map[string]bool
}

// NewLogParser creates a parser for the given log format.
func NewLogParser(format Format) *LogParser {
	return &LogParser{
		format:        format,
		botSignatures: config.BotSignatures,
	}
}

// Result holds the outcome of parsing a stream of log lines. The successful
// entries and the rejected raw lines are kept separately so a partially
// malformed file still produces a report over the valid subset.
type Result struct {
	Entries    []models.LogEntry
	Rejects    []models.RejectedLine
	TotalLines int
}

// RejectedCount returns the number of lines that failed to parse.
func (r *Result) RejectedCount() int {
	return len(r.Rejects)
}

// ParseLine parses a single log line. Failure returns a nil entry and an
// error; no partial entries are ever produced.
func (p *LogParser) ParseLine(line string, lineNum int) (*models.LogEntry, error) {
	line = strings.TrimRight(line, "\r\n")

	var m []string
	switch p.format {
	case FormatCommon:
		m = commonRe.FindStringSubmatch(line)
	case FormatCombined:
		m = combinedRe.FindStringSubmatch(line)
	default:
		if m = combinedRe.FindStringSubmatch(line); m == nil {
			m = commonRe.FindStringSubmatch(line)
		}
	}
	if m == nil {
		return nil, fmt.Errorf("line does not match log format")
	}

	ts, err := time.Parse(timestampLayout, m[4])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", m[4], err)
	}

	status, err := strconv.Atoi(m[8])
	if err != nil {
		return nil, fmt.Errorf("bad status %q: %w", m[8], err)
	}
	if status < 100 || status > 599 {
		return nil, fmt.Errorf("status %d out of range", status)
	}

	var bytesSent int64
	if m[9] != "-" {
		bytesSent, err = strconv.ParseInt(m[9], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad response size %q: %w", m[9], err)
		}
	}

	entry := &models.LogEntry{
		Host:       m[1],
		Timestamp:  ts,
		Method:     m[5],
		Path:       m[6],
		Protocol:   m[7],
		Status:     status,
		BytesSent:  bytesSent,
		LineNumber: lineNum,
		Raw:        line,
	}
	if m[3] != "-" {
		entry.RemoteUser = m[3]
	}

	if len(m) > 10 {
		if m[10] != "-" {
			entry.Referer = m[10]
		}
		if m[11] != "-" && m[11] != "" {
			entry.UserAgent = m[11]
			entry.ParsedUA = p.parseUserAgent(m[11])
			entry.IsBot = p.isBot(m[11])
		}
	}

	return entry, nil
}

// ParseReader parses all lines from a reader. Malformed lines are recorded in
// the result and never abort the run; blank lines are skipped.
func (p *LogParser) ParseReader(r io.Reader) (*Result, error) {
	result := &Result{}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		result.TotalLines = lineNum

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := p.ParseLine(line, lineNum)
		if err != nil {
			result.Rejects = append(result.Rejects, models.RejectedLine{
				LineNumber: lineNum,
				Raw:        line,
			})
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("error reading input: %w", err)
	}

	return result, nil
}

// parseUserAgent classifies a user agent string
func (p *LogParser) parseUserAgent(uaStr string) *models.UserAgentInfo {
	ua := useragent.New(uaStr)

	browser, version := ua.Browser()
	browserStr := browser
	if version != "" {
		browserStr = fmt.Sprintf("%s %s", browser, version)
	}

	device := "Desktop"
	if ua.Mobile() {
		device = "Mobile"
	} else if ua.Bot() {
		device = "Bot"
	}

	return &models.UserAgentInfo{
		Browser: browserStr,
		OS:      ua.OS(),
		Device:  device,
	}
}

// isBot detects if user agent matches a known bot signature
func (p *LogParser) isBot(uaStr string) bool {
	uaLower := strings.ToLower(uaStr)
	for signature := range p.botSignatures {
		if strings.Contains(uaLower, signature) {
			return true
		}
	}
	return false
}

// GetStatusCategory categorizes an HTTP status code
func GetStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 300 && status < 400:
		return "redirect"
	case status >= 400 && status < 500:
		return "client_error"
	case status >= 500 && status < 600:
		return "server_error"
	default:
		return "other"
	}
}

// IsErrorStatus checks if a status code is an error
func IsErrorStatus(status int) bool {
	return status >= 400
}
