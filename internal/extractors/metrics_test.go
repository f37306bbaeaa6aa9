package extractors

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

func TestMetricExtractorAnalyze(t *testing.T) {
	extractor := NewMetricExtractor()

	tests := []struct {
		name    string
		metrics models.Metrics
		want    []string
	}{
		{
			name:    "series reduces to max",
			metrics: models.Metrics{{Name: "latency_ms", Value: []any{json.Number("200"), json.Number("1500")}}},
			want:    []string{"latency_ms"},
		},
		{
			name:    "value at threshold is not anomalous",
			metrics: models.Metrics{{Name: "cpu_usage", Value: 80.0}, {Name: "error_rate", Value: 0.05}},
			want:    nil,
		},
		{
			name:    "numeric string coerces",
			metrics: models.Metrics{{Name: "memory_usage", Value: "91.2"}},
			want:    []string{"memory_usage"},
		},
		{
			name:    "non numeric values are skipped",
			metrics: models.Metrics{{Name: "cpu_usage", Value: "85%"}, {Name: "memory_usage", Value: nil}, {Name: "latency_ms", Value: []any{"fast", 2000.0}}},
			want:    nil,
		},
		{
			name:    "booleans coerce to one and zero",
			metrics: models.Metrics{{Name: "error_rate", Value: true}, {Name: "cpu_usage", Value: false}},
			want:    []string{"error_rate"},
		},
		{
			name: "non finite values are skipped",
			metrics: models.Metrics{
				{Name: "cpu_usage", Value: "inf"},
				{Name: "memory_usage", Value: "NaN"},
				{Name: "latency_ms", Value: json.Number("1e400")},
				{Name: "error_rate", Value: []any{"+Inf", 0.9}},
			},
			want: nil,
		},
		{
			name:    "unknown metric is skipped",
			metrics: models.Metrics{{Name: "disk_usage", Value: 99.0}},
			want:    nil,
		},
		{
			name:    "empty series reduces to zero",
			metrics: models.Metrics{{Name: "latency_ms", Value: []any{}}},
			want:    nil,
		},
		{
			name: "output follows input order",
			metrics: models.Metrics{
				{Name: "error_rate", Value: 0.5},
				{Name: "cpu_usage", Value: []float64{70, 95}},
				{Name: "latency_ms", Value: 1200},
			},
			want: []string{"error_rate", "cpu_usage", "latency_ms"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extractor.Analyze(tt.metrics)
			var got []string
			for _, a := range res.Anomalies {
				got = append(got, a.MetricName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricExtractorAnomalyFields(t *testing.T) {
	res := NewMetricExtractor().Analyze(models.Metrics{{Name: "latency_ms", Value: []int{200, 1500}}})
	require.Len(t, res.Anomalies, 1)

	anomaly := res.Anomalies[0]
	assert.Equal(t, 1500.0, anomaly.Value)
	assert.Equal(t, 1000.0, anomaly.Threshold)
	assert.Equal(t, "Metric latency_ms (1500.0) exceeded threshold (1000.0)", anomaly.Description)
}

func TestFormatReading(t *testing.T) {
	tests := map[float64]string{
		1500:   "1500.0",
		0.05:   "0.05",
		97.5:   "97.5",
		0:      "0.0",
		1e15:   "1000000000000000.0",
		1e16:   "1e+16",
		1.5e20: "1.5e+20",
		0.0001: "0.0001",
		1e-05:  "1e-05",
		-2e17:  "-2e+17",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatReading(in), "formatReading(%v)", in)
	}
}

func TestMetricExtractorThresholdOverrides(t *testing.T) {
	extractor := NewMetricExtractorWithThresholds(map[string]float64{"disk_usage": 90, "cpu_usage": 95})

	threshold, ok := extractor.Threshold("latency_ms")
	require.True(t, ok)
	assert.Equal(t, 1000.0, threshold)

	res := extractor.Analyze(models.Metrics{{Name: "disk_usage", Value: 91.0}, {Name: "cpu_usage", Value: 90.0}})
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, "disk_usage", res.Anomalies[0].MetricName)
}

func TestReduceMetricValue(t *testing.T) {
	v, ok := ReduceMetricValue([]any{json.Number("-5"), json.Number("-2")})
	require.True(t, ok)
	assert.Equal(t, -2.0, v)

	_, ok = ReduceMetricValue(nil)
	assert.False(t, ok)

	_, ok = ReduceMetricValue(map[string]any{"p99": 1.0})
	assert.False(t, ok)

	_, ok = ReduceMetricValue([]float64{1, math.Inf(1)})
	assert.False(t, ok)

	_, ok = ReduceMetricValue(math.NaN())
	assert.False(t, ok)

	v, ok = ReduceMetricValue(true)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}
