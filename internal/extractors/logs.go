package extractors

import (
	"regexp"
	"strings"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// GenericErrorLabel groups error lines that match no known signature.
const GenericErrorLabel = "Generic Error"

// LogSignature maps a fault-indicating expression to a pattern label.
type LogSignature struct {
	Expr  *regexp.Regexp
	Label string
}

// DefaultLogSignatures returns the built-in signatures in priority order.
func DefaultLogSignatures() []LogSignature {
	return []LogSignature{
		{Expr: regexp.MustCompile(`(?i)Connection timed out`), Label: "Network Timeout"},
		{Expr: regexp.MustCompile(`(?i)500 Internal Server Error`), Label: "Server Error"},
		{Expr: regexp.MustCompile(`(?i)Deadlock detected`), Label: "Database Deadlock"},
		{Expr: regexp.MustCompile(`(?i)OutOfMemoryError`), Label: "OOM Crash"},
	}
}

// LogsExtractor tallies known fault signatures in raw log lines.
type LogsExtractor struct {
	signatures []LogSignature
}

// NewLogsExtractor constructs a log analyzer using the default signatures.
func NewLogsExtractor() *LogsExtractor {
	return &LogsExtractor{signatures: DefaultLogSignatures()}
}

// Analyze counts each line under at most one label: the first matching
// signature (severity High) or, failing that, the generic error bucket
// (severity Medium) when the line mentions "error".
func (e *LogsExtractor) Analyze(lines []string) models.LogAnalysisResult {
	patterns := make([]models.LogPattern, 0)
	index := make(map[string]int)

	record := func(label string, severity models.Severity) {
		if i, ok := index[label]; ok {
			patterns[i].Frequency++
			return
		}
		index[label] = len(patterns)
		patterns = append(patterns, models.LogPattern{Pattern: label, Frequency: 1, Severity: severity})
	}

	for _, line := range lines {
		if label, ok := e.match(line); ok {
			record(label, models.SeverityHigh)
			continue
		}
		if strings.Contains(strings.ToLower(line), "error") {
			record(GenericErrorLabel, models.SeverityMedium)
		}
	}

	return models.LogAnalysisResult{Patterns: patterns, TotalLogs: len(lines)}
}

func (e *LogsExtractor) match(line string) (string, bool) {
	for _, sig := range e.signatures {
		if sig.Expr.MatchString(line) {
			return sig.Label, true
		}
	}
	return "", false
}
