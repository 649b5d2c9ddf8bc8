package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// BotSignatures contains user agent signatures for bot detection
var BotSignatures = map[string]bool{
	"googlebot": true, "bingbot": true, "slurp": true, "duckduckbot": true,
	"baiduspider": true, "yandexbot": true, "facebookexternalhit": true,
	"twitterbot": true, "linkedinbot": true, "applebot": true, "amazonbot": true,
	"crawl": true, "spider": true, "bot": true, "scraper": true,
	"curl": true, "wget": true, "python-requests": true, "postman": true,
	"httpie": true, "chatgpt": true, "openai": true, "claude": true,
	"anthropic": true, "perplexitybot": true, "ccbot": true,
}

// SQLInjectionPatterns are case-insensitive substrings matched against the
// requested path and query string.
var SQLInjectionPatterns = []string{
	"union select",
	"' or '1'='1",
	"--",
	"drop table",
	"insert into",
	"; select",
	"1=1",
	"' or 1=1",
	"exec(",
	"benchmark(",
}

// PathTraversalPatterns are substrings matched case-insensitively against the
// requested path, covering plain and URL-encoded traversal sequences.
var PathTraversalPatterns = []string{
	"../",
	`..\`,
	"..%2f",
	"..%5c",
	"%2e%2e/",
	"%2e%2e%2f",
}

// Severity levels for anomaly findings.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Settings carries the tunable analysis parameters. Zero values are replaced
// by defaults so a partial YAML file only overrides what it names.
type Settings struct {
	TopN                 int      `yaml:"top_n"`
	Excessive404Thresh   int      `yaml:"excessive_404_threshold"`
	ZScoreThreshold      float64  `yaml:"zscore_threshold"`
	SQLInjectionPatterns []string `yaml:"sql_injection_patterns"`
	TraversalPatterns    []string `yaml:"traversal_patterns"`
}

// Defaults returns the compiled-in settings.
func Defaults() Settings {
	return Settings{
		TopN:                 10,
		Excessive404Thresh:   10,
		ZScoreThreshold:      3.0,
		SQLInjectionPatterns: SQLInjectionPatterns,
		TraversalPatterns:    PathTraversalPatterns,
	}
}

// Load reads settings overrides from a YAML file and merges them over the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config: %w", err)
	}

	var override Settings
	if err := yaml.Unmarshal(data, &override); err != nil {
		return s, fmt.Errorf("failed to parse config: %w", err)
	}

	if override.TopN > 0 {
		s.TopN = override.TopN
	}
	if override.Excessive404Thresh > 0 {
		s.Excessive404Thresh = override.Excessive404Thresh
	}
	if override.ZScoreThreshold > 0 {
		s.ZScoreThreshold = override.ZScoreThreshold
	}
	if len(override.SQLInjectionPatterns) > 0 {
		s.SQLInjectionPatterns = override.SQLInjectionPatterns
	}
	if len(override.TraversalPatterns) > 0 {
		s.TraversalPatterns = override.TraversalPatterns
	}

	return s, nil
}
