package analysis

import (
	"fmt"
	"strings"
	"sync"

	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/pkg/models"
)

// Rule is an independent anomaly detection predicate. Rules accumulate state
// over a stream of entries and report their findings once the whole window
// has been inspected, so per-entry rules and grouped-by-host rules share one
// interface. Adding a detection category means adding a Rule, not modifying
// the existing ones.
type Rule interface {
	Name() string
	Inspect(entry *models.LogEntry)
	Findings() []models.Finding
	Reset()
}

// RuleSet combines independent rules and runs them over the same entries.
type RuleSet struct {
	mu    sync.Mutex
	rules []Rule
}

// NewRuleSet creates a rule set from the given rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// DefaultRuleSet builds the standard rule set from settings.
func DefaultRuleSet(settings config.Settings) *RuleSet {
	return NewRuleSet(
		NewSQLInjectionRule(settings.SQLInjectionPatterns),
		NewPathTraversalRule(settings.TraversalPatterns),
		NewExcessive404Rule(settings.Excessive404Thresh),
	)
}

// Inspect runs every rule against one entry.
func (rs *RuleSet) Inspect(entry *models.LogEntry) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, rule := range rs.rules {
		rule.Inspect(entry)
	}
}

// Findings returns all findings, grouped by rule in registration order.
func (rs *RuleSet) Findings() []models.Finding {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	findings := make([]models.Finding, 0)
	for _, rule := range rs.rules {
		findings = append(findings, rule.Findings()...)
	}
	return findings
}

// Reset clears accumulated state on every rule.
func (rs *RuleSet) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, rule := range rs.rules {
		rule.Reset()
	}
}

// SQLInjectionRule flags entries whose path or query string contains a known
// injection pattern. Matching is case-insensitive; each matching entry is
// flagged once.
type SQLInjectionRule struct {
	patterns []string
	findings []models.Finding
}

// NewSQLInjectionRule creates the rule with the given substring patterns.
func NewSQLInjectionRule(patterns []string) *SQLInjectionRule {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &SQLInjectionRule{patterns: lowered}
}

func (r *SQLInjectionRule) Name() string { return models.ReasonSQLInjection }

func (r *SQLInjectionRule) Inspect(entry *models.LogEntry) {
	path := strings.ToLower(entry.Path)
	for _, pattern := range r.patterns {
		if strings.Contains(path, pattern) {
			r.findings = append(r.findings, models.Finding{
				ReasonCode: models.ReasonSQLInjection,
				Detail:     fmt.Sprintf("%s %s %s", entry.Host, entry.Method, entry.Path),
				SourceLine: entry.LineNumber,
			})
			return
		}
	}
}

func (r *SQLInjectionRule) Findings() []models.Finding { return r.findings }

func (r *SQLInjectionRule) Reset() { r.findings = nil }

// PathTraversalRule flags entries whose path contains a directory traversal
// sequence, plain or URL-encoded.
type PathTraversalRule struct {
	patterns []string
	findings []models.Finding
}

// NewPathTraversalRule creates the rule with the given traversal patterns.
func NewPathTraversalRule(patterns []string) *PathTraversalRule {
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathTraversalRule{patterns: lowered}
}

func (r *PathTraversalRule) Name() string { return models.ReasonPathTraversal }

func (r *PathTraversalRule) Inspect(entry *models.LogEntry) {
	path := strings.ToLower(entry.Path)
	for _, pattern := range r.patterns {
		if strings.Contains(path, pattern) {
			r.findings = append(r.findings, models.Finding{
				ReasonCode: models.ReasonPathTraversal,
				Detail:     fmt.Sprintf("%s %s %s", entry.Host, entry.Method, entry.Path),
				SourceLine: entry.LineNumber,
			})
			return
		}
	}
}

func (r *PathTraversalRule) Findings() []models.Finding { return r.findings }

func (r *PathTraversalRule) Reset() { r.findings = nil }

// Excessive404Rule flags a client host that accumulates more than threshold
// 404 responses within the analyzed window. Each offending host is flagged
// exactly once, however many 404s it produced.
type Excessive404Rule struct {
	threshold int
	counts    map[string]int
	order     []string
}

// NewExcessive404Rule creates the rule with the given threshold.
func NewExcessive404Rule(threshold int) *Excessive404Rule {
	if threshold <= 0 {
		threshold = 10
	}
	return &Excessive404Rule{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

func (r *Excessive404Rule) Name() string { return models.ReasonExcessive404 }

func (r *Excessive404Rule) Inspect(entry *models.LogEntry) {
	if entry.Status != 404 {
		return
	}
	if _, seen := r.counts[entry.Host]; !seen {
		r.order = append(r.order, entry.Host)
	}
	r.counts[entry.Host]++
}

func (r *Excessive404Rule) Findings() []models.Finding {
	findings := make([]models.Finding, 0)
	for _, host := range r.order {
		count := r.counts[host]
		if count > r.threshold {
			findings = append(findings, models.Finding{
				ReasonCode: models.ReasonExcessive404,
				Detail:     fmt.Sprintf("%s produced %d 404 responses (threshold %d)", host, count, r.threshold),
			})
		}
	}
	return findings
}

func (r *Excessive404Rule) Reset() {
	r.counts = make(map[string]int)
	r.order = nil
}
