package models

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Pipeline step markers recorded on a processing job.
const (
	StepInitializing              = "initializing"
	StepAnalyzingLogs             = "analyzing_logs"
	StepAnalyzingMetrics          = "analyzing_metrics"
	StepInferringRootCause        = "inferring_root_cause"
	StepGeneratingRecommendations = "generating_recommendations"
	StepFinalizingReport          = "finalizing_report"
	StepDone                      = "done"
)

// Job tracks one execution of the analysis pipeline.
type Job struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Step      string    `json:"step"`
	Result    *Report   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
