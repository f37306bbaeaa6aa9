package extractors

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// DefaultThresholds returns the built-in per-metric alerting thresholds.
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		"cpu_usage":    80.0,
		"memory_usage": 85.0,
		"latency_ms":   1000.0,
		"error_rate":   0.05,
	}
}

// MetricExtractor compares metric readings against fixed thresholds.
type MetricExtractor struct {
	thresholds map[string]float64
}

// NewMetricExtractor creates a metrics analyzer using the default thresholds.
func NewMetricExtractor() *MetricExtractor {
	return &MetricExtractor{thresholds: DefaultThresholds()}
}

// NewMetricExtractorWithThresholds layers overrides on top of the default thresholds.
func NewMetricExtractorWithThresholds(overrides map[string]float64) *MetricExtractor {
	thresholds := DefaultThresholds()
	for name, value := range overrides {
		thresholds[name] = value
	}
	return &MetricExtractor{thresholds: thresholds}
}

// Threshold returns the configured threshold for a metric.
func (e *MetricExtractor) Threshold(name string) (float64, bool) {
	v, ok := e.thresholds[name]
	return v, ok
}

// Analyze emits one anomaly per metric whose reduced value strictly exceeds its
// threshold. Unknown or non-numeric metrics are skipped.
func (e *MetricExtractor) Analyze(metrics models.Metrics) models.MetricsAnalysisResult {
	anomalies := make([]models.MetricAnomaly, 0)
	for _, reading := range metrics {
		value, ok := ReduceMetricValue(reading.Value)
		if !ok {
			continue
		}
		threshold, ok := e.thresholds[reading.Name]
		if !ok {
			continue
		}
		if value > threshold {
			anomalies = append(anomalies, models.MetricAnomaly{
				MetricName:  reading.Name,
				Value:       value,
				Threshold:   threshold,
				Description: fmt.Sprintf("Metric %s (%s) exceeded threshold (%s)", reading.Name, formatReading(value), formatReading(threshold)),
			})
		}
	}
	return models.MetricsAnalysisResult{Anomalies: anomalies}
}

// ReduceMetricValue collapses a reading to one float: sequences reduce to their
// maximum (zero when empty), scalars are coerced. It reports false when any part
// of the reading is not numeric.
func ReduceMetricValue(value any) (float64, bool) {
	switch v := value.(type) {
	case []any:
		return maxOf(len(v), func(i int) (float64, bool) { return toFloat(v[i]) })
	case []float64:
		return maxOf(len(v), func(i int) (float64, bool) { return finite(v[i]) })
	case []int:
		return maxOf(len(v), func(i int) (float64, bool) { return float64(v[i]), true })
	case []json.Number:
		return maxOf(len(v), func(i int) (float64, bool) { return toFloat(v[i]) })
	case []string:
		return maxOf(len(v), func(i int) (float64, bool) { return toFloat(v[i]) })
	default:
		return toFloat(value)
	}
}

func maxOf(n int, at func(int) (float64, bool)) (float64, bool) {
	if n == 0 {
		return 0, true
	}
	max := 0.0
	for i := 0; i < n; i++ {
		f, ok := at(i)
		if !ok {
			return 0, false
		}
		if i == 0 || f > max {
			max = f
		}
	}
	return max, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

// finite rejects NaN and infinities, which have no JSON encoding.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatReading renders the shortest round-trip form: exponent notation below
// 1e-4 or from 1e16 up, otherwise decimal with a trailing ".0" for integral values.
func formatReading(v float64) string {
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
