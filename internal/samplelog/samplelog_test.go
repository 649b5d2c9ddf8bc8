package samplelog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/logsift/logsift/internal/analysis"
	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/internal/parser"
	"github.com/logsift/logsift/pkg/models"
)

func TestGeneratedLinesParse(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(1).Write(&buf, 50); err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := parser.NewLogParser(parser.FormatAuto).ParseReader(&buf)
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if result.RejectedCount() != 0 {
		t.Errorf("%d generated lines failed to parse: %+v", result.RejectedCount(), result.Rejects)
	}
	// 50 normal plus 20 injection, 15 traversal, 30 not-found entries.
	if len(result.Entries) != 115 {
		t.Errorf("len(Entries) = %d, want 115", len(result.Entries))
	}
}

func TestGeneratedAttacksAreDetected(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(1).Write(&buf, 50); err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := parser.NewLogParser(parser.FormatAuto).ParseReader(&buf)
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	rs := analysis.DefaultRuleSet(config.Defaults())
	for i := range result.Entries {
		rs.Inspect(&result.Entries[i])
	}

	reasons := map[string]bool{}
	for _, f := range rs.Findings() {
		reasons[f.ReasonCode] = true
	}
	for _, want := range []string{
		models.ReasonSQLInjection,
		models.ReasonPathTraversal,
		models.ReasonExcessive404,
	} {
		if !reasons[want] {
			t.Errorf("expected generated log to trigger %s", want)
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := NewGenerator(7).Write(&a, 10); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := NewGenerator(7).Write(&b, 10); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if a.String() != b.String() {
		t.Error("same seed should produce identical output")
	}
}

func TestWriteFile(t *testing.T) {
	path := t.TempDir() + "/sample.log"
	if err := NewGenerator(1).WriteFile(path, 5); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestAttackPathsContainMarkers(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(1).Write(&buf, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "192.168.1.100") || !strings.Contains(out, "10.0.0.100") {
		t.Error("expected seeded attacker hosts in output")
	}
}
