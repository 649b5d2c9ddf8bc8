package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.TopN != 10 {
		t.Errorf("TopN = %d, want 10", s.TopN)
	}
	if s.Excessive404Thresh != 10 {
		t.Errorf("Excessive404Thresh = %d, want 10", s.Excessive404Thresh)
	}
	if s.ZScoreThreshold != 3.0 {
		t.Errorf("ZScoreThreshold = %v, want 3.0", s.ZScoreThreshold)
	}
	if len(s.SQLInjectionPatterns) == 0 || len(s.TraversalPatterns) == 0 {
		t.Error("default pattern lists must not be empty")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.TopN != 10 {
		t.Errorf("TopN = %d, want defaults", s.TopN)
	}
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logsift.yaml")
	content := "top_n: 5\nexcessive_404_threshold: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.TopN != 5 {
		t.Errorf("TopN = %d, want 5", s.TopN)
	}
	if s.Excessive404Thresh != 3 {
		t.Errorf("Excessive404Thresh = %d, want 3", s.Excessive404Thresh)
	}
	// Untouched settings keep their defaults.
	if s.ZScoreThreshold != 3.0 {
		t.Errorf("ZScoreThreshold = %v, want default", s.ZScoreThreshold)
	}
	if len(s.SQLInjectionPatterns) == 0 {
		t.Error("pattern defaults should survive partial override")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("top_n: [not an int"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}
