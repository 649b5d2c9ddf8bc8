package analysis

import (
	"testing"
	"time"

	"github.com/logsift/logsift/pkg/models"
)

func trafficAt(base time.Time, minute, count, errors int) []models.LogEntry {
	entries := make([]models.LogEntry, 0, count)
	for i := 0; i < count; i++ {
		status := 200
		if i < errors {
			status = 500
		}
		entries = append(entries, models.LogEntry{
			Host:      "10.0.0.1",
			Timestamp: base.Add(time.Duration(minute) * time.Minute),
			Method:    "GET",
			Path:      "/",
			Protocol:  "HTTP/1.1",
			Status:    status,
		})
	}
	return entries
}

func TestDetectTrafficSpike(t *testing.T) {
	base := time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC)

	// Steady traffic around 10 req/min with slight jitter, then one minute
	// with an order of magnitude more.
	var entries []models.LogEntry
	counts := []int{10, 11, 9, 10, 12, 8, 10, 11, 9, 10}
	for minute, count := range counts {
		entries = append(entries, trafficAt(base, minute, count, 0)...)
	}
	entries = append(entries, trafficAt(base, len(counts), 200, 0)...)

	d := NewAnomalyDetector(3.0)
	d.CalculateBaseline(entries)
	got := d.DetectAnomalies(entries)

	spikes := 0
	for _, a := range got {
		if a.ReasonCode == models.ReasonTrafficSpike {
			spikes++
			if a.Value != 200 {
				t.Errorf("spike value = %v, want 200", a.Value)
			}
		}
	}
	if spikes != 1 {
		t.Fatalf("expected exactly 1 traffic spike, got %d in %+v", spikes, got)
	}
}

func TestDetectErrorRateAnomaly(t *testing.T) {
	base := time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC)

	var entries []models.LogEntry
	errs := []int{0, 1, 0, 1, 0, 0, 1, 0, 1, 0}
	for minute, e := range errs {
		entries = append(entries, trafficAt(base, minute, 20, e)...)
	}
	// One minute where nearly everything fails.
	entries = append(entries, trafficAt(base, len(errs), 20, 18)...)

	d := NewAnomalyDetector(3.0)
	d.CalculateBaseline(entries)
	got := d.DetectAnomalies(entries)

	found := false
	for _, a := range got {
		if a.ReasonCode == models.ReasonErrorRate {
			found = true
			if a.Severity == "" {
				t.Error("error rate anomaly missing severity")
			}
		}
	}
	if !found {
		t.Fatalf("expected an error rate anomaly in %+v", got)
	}
}

func TestDetectAnomaliesWithoutBaseline(t *testing.T) {
	d := NewAnomalyDetector(3.0)
	base := time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC)
	if got := d.DetectAnomalies(trafficAt(base, 0, 50, 0)); len(got) != 0 {
		t.Fatalf("expected no anomalies without a baseline, got %+v", got)
	}
}

func TestCalculateBaselineEmpty(t *testing.T) {
	d := NewAnomalyDetector(3.0)
	b := d.CalculateBaseline(nil)
	if b.AvgRequestsPerMinute != 0 || b.StdDevRequests != 0 {
		t.Fatalf("empty input should yield a zero baseline, got %+v", b)
	}
}

func TestUniformTrafficHasNoAnomalies(t *testing.T) {
	base := time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC)
	var entries []models.LogEntry
	for minute := 0; minute < 10; minute++ {
		entries = append(entries, trafficAt(base, minute, 10, 1)...)
	}

	d := NewAnomalyDetector(3.0)
	d.CalculateBaseline(entries)
	if got := d.DetectAnomalies(entries); len(got) != 0 {
		t.Fatalf("uniform traffic should not be anomalous, got %+v", got)
	}
}
