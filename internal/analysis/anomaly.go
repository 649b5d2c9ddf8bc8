package analysis

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/logsift/logsift/internal/config"
	"github.com/logsift/logsift/pkg/models"
)

// AnomalyDetector finds statistical deviations in traffic volume and error
// rate against a per-minute baseline.
type AnomalyDetector struct {
	mu              sync.RWMutex
	baseline        *models.Baseline
	zScoreThreshold float64
}

// NewAnomalyDetector creates a detector with the given z-score threshold.
func NewAnomalyDetector(zScoreThreshold float64) *AnomalyDetector {
	if zScoreThreshold == 0 {
		zScoreThreshold = 3.0
	}
	return &AnomalyDetector{zScoreThreshold: zScoreThreshold}
}

type bucketData struct {
	count  int
	errors int
}

func bucketByMinute(entries []models.LogEntry) map[time.Time]*bucketData {
	buckets := make(map[time.Time]*bucketData)
	for i := range entries {
		minute := entries[i].Timestamp.Truncate(time.Minute)
		if _, exists := buckets[minute]; !exists {
			buckets[minute] = &bucketData{}
		}
		buckets[minute].count++
		if entries[i].Status >= 400 {
			buckets[minute].errors++
		}
	}
	return buckets
}

// CalculateBaseline derives per-minute baseline statistics from entries.
func (a *AnomalyDetector) CalculateBaseline(entries []models.LogEntry) *models.Baseline {
	a.mu.Lock()
	defer a.mu.Unlock()

	baseline := &models.Baseline{}
	if len(entries) == 0 {
		a.baseline = baseline
		return baseline
	}

	buckets := bucketByMinute(entries)

	requestsPerMinute := make([]float64, 0, len(buckets))
	errorRates := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		requestsPerMinute = append(requestsPerMinute, float64(bucket.count))
		errorRates = append(errorRates, float64(bucket.errors)/float64(bucket.count))
	}

	baseline.AvgRequestsPerMinute, _ = stats.Mean(requestsPerMinute)
	baseline.StdDevRequests, _ = stats.StandardDeviation(requestsPerMinute)
	baseline.AvgErrorRate, _ = stats.Mean(errorRates)
	baseline.StdDevErrorRate, _ = stats.StandardDeviation(errorRates)

	a.baseline = baseline
	return baseline
}

// DetectAnomalies compares entries against the baseline and returns the
// deviations found, sorted by timestamp. Without a baseline it returns an
// empty slice.
func (a *AnomalyDetector) DetectAnomalies(entries []models.LogEntry) []models.Anomaly {
	a.mu.RLock()
	defer a.mu.RUnlock()

	anomalies := make([]models.Anomaly, 0)
	if a.baseline == nil {
		return anomalies
	}

	buckets := bucketByMinute(entries)
	for timestamp, bucket := range buckets {
		if spike := a.detectTrafficSpike(timestamp, float64(bucket.count)); spike != nil {
			anomalies = append(anomalies, *spike)
		}

		errorRate := float64(bucket.errors) / float64(bucket.count)
		if errAnomaly := a.detectErrorRateAnomaly(timestamp, errorRate); errAnomaly != nil {
			anomalies = append(anomalies, *errAnomaly)
		}
	}

	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].Timestamp.Before(anomalies[j].Timestamp)
	})
	return anomalies
}

func (a *AnomalyDetector) detectTrafficSpike(timestamp time.Time, requests float64) *models.Anomaly {
	if a.baseline.StdDevRequests == 0 {
		return nil
	}

	zScore := (requests - a.baseline.AvgRequestsPerMinute) / a.baseline.StdDevRequests
	if math.Abs(zScore) <= a.zScoreThreshold {
		return nil
	}

	return &models.Anomaly{
		Timestamp:   timestamp,
		ReasonCode:  models.ReasonTrafficSpike,
		Severity:    severityFor(zScore),
		Description: "unusual traffic volume",
		Value:       requests,
		Expected:    a.baseline.AvgRequestsPerMinute,
		ZScore:      zScore,
	}
}

func (a *AnomalyDetector) detectErrorRateAnomaly(timestamp time.Time, errorRate float64) *models.Anomaly {
	if a.baseline.StdDevErrorRate == 0 {
		return nil
	}

	zScore := (errorRate - a.baseline.AvgErrorRate) / a.baseline.StdDevErrorRate
	// Only increases matter for error rate.
	if zScore <= a.zScoreThreshold {
		return nil
	}

	return &models.Anomaly{
		Timestamp:   timestamp,
		ReasonCode:  models.ReasonErrorRate,
		Severity:    severityFor(zScore),
		Description: "unusual error rate",
		Value:       errorRate,
		Expected:    a.baseline.AvgErrorRate,
		ZScore:      zScore,
	}
}

func severityFor(zScore float64) string {
	absZ := math.Abs(zScore)
	switch {
	case absZ >= 5:
		return config.SeverityCritical
	case absZ >= 4:
		return config.SeverityHigh
	case absZ >= 3:
		return config.SeverityMedium
	default:
		return config.SeverityLow
	}
}

// Baseline returns the current baseline, or nil if none was calculated.
func (a *AnomalyDetector) Baseline() *models.Baseline {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.baseline
}
