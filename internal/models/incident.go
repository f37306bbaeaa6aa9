package models

import "time"

// IncidentInput is a submitted incident report.
type IncidentInput struct {
	Description string   `json:"description"`
	Logs        []string `json:"logs"`
	Metrics     Metrics  `json:"metrics"`
}

// Clone returns a copy that shares no slices with the receiver.
func (in IncidentInput) Clone() IncidentInput {
	out := IncidentInput{Description: in.Description}
	if in.Logs != nil {
		out.Logs = append([]string(nil), in.Logs...)
	}
	if in.Metrics != nil {
		out.Metrics = append(Metrics(nil), in.Metrics...)
	}
	return out
}

// Severity captures impact levels of a detected log pattern.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// LogPattern is a fault signature seen in the submitted logs.
type LogPattern struct {
	Pattern   string   `json:"pattern"`
	Frequency int      `json:"frequency"`
	Severity  Severity `json:"severity"`
}

// LogAnalysisResult summarises the log stage.
type LogAnalysisResult struct {
	Patterns  []LogPattern `json:"patterns"`
	TotalLogs int          `json:"total_logs"`
}

// MetricAnomaly records a metric that breached its threshold.
type MetricAnomaly struct {
	MetricName  string  `json:"metric_name"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description"`
}

// MetricsAnalysisResult summarises the metrics stage.
type MetricsAnalysisResult struct {
	Anomalies []MetricAnomaly `json:"anomalies"`
}

// RootCause is the single explanatory category selected for an incident.
type RootCause struct {
	Cause           string  `json:"cause"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
}

// Recommendation is a remediation action suggested for a root cause.
type Recommendation struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	IsSafe      bool   `json:"is_safe"`
}

// Report is the terminal artifact of a completed job. It is never mutated after
// it has been attached to a job.
type Report struct {
	Summary         string                `json:"summary"`
	RootCause       RootCause             `json:"root_cause"`
	Recommendations []Recommendation      `json:"recommendations"`
	LogAnalysis     LogAnalysisResult     `json:"log_analysis"`
	MetricsAnalysis MetricsAnalysisResult `json:"metrics_analysis"`
	GeneratedAt     time.Time             `json:"generated_at"`
}
