package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

func TestLogsExtractorAnalyze(t *testing.T) {
	extractor := NewLogsExtractor()

	lines := []string{
		"[ERROR] Connection timed out after 30s",
		"[INFO] retrying request",
		"CONNECTION TIMED OUT talking to payments",
		"Deadlock detected on table orders",
		"java.lang.OutOfMemoryError: Java heap space",
		"error: disk quota exceeded",
		"GET /checkout 500 Internal Server Error",
	}

	res := extractor.Analyze(lines)
	assert.Equal(t, len(lines), res.TotalLogs)

	want := []models.LogPattern{
		{Pattern: "Network Timeout", Frequency: 2, Severity: models.SeverityHigh},
		{Pattern: "Database Deadlock", Frequency: 1, Severity: models.SeverityHigh},
		{Pattern: "OOM Crash", Frequency: 1, Severity: models.SeverityHigh},
		{Pattern: GenericErrorLabel, Frequency: 1, Severity: models.SeverityMedium},
		{Pattern: "Server Error", Frequency: 1, Severity: models.SeverityHigh},
	}
	assert.Equal(t, want, res.Patterns)
}

func TestLogsExtractorFirstMatchWins(t *testing.T) {
	// Both the timeout and deadlock signatures match; only the earlier rule counts.
	res := NewLogsExtractor().Analyze([]string{"Deadlock detected after Connection timed out"})
	require.Len(t, res.Patterns, 1)
	assert.Equal(t, "Network Timeout", res.Patterns[0].Pattern)
}

func TestLogsExtractorNeverDoubleCounts(t *testing.T) {
	lines := []string{
		"error Connection timed out",
		"Error: OutOfMemoryError",
		"plain error",
		"nothing interesting",
		"",
	}
	res := NewLogsExtractor().Analyze(lines)

	total := 0
	for _, p := range res.Patterns {
		total += p.Frequency
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 5, res.TotalLogs)
}

func TestLogsExtractorEmptyInput(t *testing.T) {
	res := NewLogsExtractor().Analyze(nil)
	assert.Empty(t, res.Patterns)
	assert.Zero(t, res.TotalLogs)
}
