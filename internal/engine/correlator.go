package engine

import (
	"strings"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// Root cause labels produced by the correlator.
const (
	CauseDatabaseSaturation = "Database Saturation"
	CauseNetworkIssue       = "Network Connectivity Issue"
	CauseMemoryExhaustion   = "Memory Exhaustion"
	CauseUnknown            = "Unknown Anomaly"
)

// CausalityEngine applies ordered heuristic rules over the log and metric
// analyses to pick a single most likely root cause.
type CausalityEngine struct {
	rules []correlationRule
}

type correlationRule struct {
	match func(signals) bool
	cause models.RootCause
}

// signals are the facts the rules test, computed once per evaluation.
type signals struct {
	databaseLogs  bool
	networkLogs   bool
	oomLogs       bool
	latencyMetric bool
	memoryMetric  bool
}

// NewCausalityEngine constructs the correlator with its fixed rule order.
func NewCausalityEngine() *CausalityEngine {
	return &CausalityEngine{rules: []correlationRule{
		{
			match: func(s signals) bool { return s.databaseLogs && s.latencyMetric },
			cause: models.RootCause{
				Cause:           CauseDatabaseSaturation,
				ConfidenceScore: 0.85,
				Reasoning:       "Detected 'Database' related error logs coinciding with high latency metrics.",
			},
		},
		{
			match: func(s signals) bool { return s.networkLogs },
			cause: models.RootCause{
				Cause:           CauseNetworkIssue,
				ConfidenceScore: 0.75,
				Reasoning:       "Frequent network timeouts detected in logs.",
			},
		},
		{
			match: func(s signals) bool { return s.oomLogs || s.memoryMetric },
			cause: models.RootCause{
				Cause:           CauseMemoryExhaustion,
				ConfidenceScore: 0.90,
				Reasoning:       "Out of Memory errors or high memory usage metrics detected.",
			},
		},
	}}
}

// Evaluate returns the root cause of the first matching rule, or the unknown
// anomaly fallback. It has no side effects.
func (e *CausalityEngine) Evaluate(logs models.LogAnalysisResult, metrics models.MetricsAnalysisResult) models.RootCause {
	s := collectSignals(logs, metrics)
	for _, rule := range e.rules {
		if rule.match(s) {
			return rule.cause
		}
	}
	return models.RootCause{
		Cause:           CauseUnknown,
		ConfidenceScore: 0.30,
		Reasoning:       "No strong correlation found between logs and metrics.",
	}
}

func collectSignals(logs models.LogAnalysisResult, metrics models.MetricsAnalysisResult) signals {
	var s signals
	for _, p := range logs.Patterns {
		if strings.Contains(p.Pattern, "Database") {
			s.databaseLogs = true
		}
		if strings.Contains(p.Pattern, "Network") || strings.Contains(p.Pattern, "Timeout") {
			s.networkLogs = true
		}
		if strings.Contains(p.Pattern, "OOM") {
			s.oomLogs = true
		}
	}
	for _, a := range metrics.Anomalies {
		if strings.Contains(a.MetricName, "latency") {
			s.latencyMetric = true
		}
		if strings.Contains(a.MetricName, "memory") {
			s.memoryMetric = true
		}
	}
	return s
}
