package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-copilot/internal/engine"
	"github.com/miradorstack/mirador-copilot/internal/models"
)

type echoGenerator struct {
	err error
}

func (g echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "[summary] " + prompt, nil
}

// gateRunner blocks until released, then finishes with the configured outcome.
type gateRunner struct {
	release chan struct{}
	err     error
	panic   bool

	running atomic.Int32
	peak    atomic.Int32
}

func newGateRunner() *gateRunner {
	return &gateRunner{release: make(chan struct{})}
}

func (g *gateRunner) Run(_ context.Context, _ models.IncidentInput, onStep engine.StepFunc) (models.Report, error) {
	n := g.running.Add(1)
	defer g.running.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	<-g.release
	onStep(models.StepAnalyzingLogs)
	if g.panic {
		panic("runner exploded")
	}
	if g.err != nil {
		return models.Report{}, g.err
	}
	return models.Report{Summary: "ok", RootCause: models.RootCause{Cause: engine.CauseUnknown}}, nil
}

// recordingStore captures every step a job passes through.
type recordingStore struct {
	*MemoryStore
	mu    sync.Mutex
	steps map[string][]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore(), steps: make(map[string][]string)}
}

func (r *recordingStore) Insert(job models.Job) error {
	r.mu.Lock()
	r.steps[job.JobID] = append(r.steps[job.JobID], job.Step)
	r.mu.Unlock()
	return r.MemoryStore.Insert(job)
}

func (r *recordingStore) Update(id string, fn func(*models.Job) error) error {
	return r.MemoryStore.Update(id, func(job *models.Job) error {
		if err := fn(job); err != nil {
			return err
		}
		r.mu.Lock()
		r.steps[id] = append(r.steps[id], job.Step)
		r.mu.Unlock()
		return nil
	})
}

func (r *recordingStore) stepsFor(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps[id]...)
}

func newPipeline(gen engine.SummaryGenerator) *engine.Pipeline {
	return engine.NewPipeline(nil, nil, nil, nil, nil, engine.NewReportComposer(gen))
}

func TestControllerLifecycle(t *testing.T) {
	runner := newGateRunner()
	controller := NewController(nil, runner)

	jobID, err := controller.StartAnalysis(context.Background(), models.IncidentInput{Description: "api down"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := controller.GetStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobProcessing, job.Status)
	assert.Equal(t, models.StepInitializing, job.Step)
	assert.Nil(t, job.Result)

	close(runner.release)
	controller.Wait()

	job, err = controller.GetStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, models.StepDone, job.Step)
	require.NotNil(t, job.Result)
	assert.Equal(t, "ok", job.Result.Summary)
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))
}

func TestControllerEndToEndNetworkTimeout(t *testing.T) {
	store := newRecordingStore()
	controller := NewController(nil, newPipeline(echoGenerator{}), WithStore(store))

	var input models.IncidentInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"description": "checkout requests hanging",
		"logs": ["Connection timed out after 30s"],
		"metrics": {"latency_ms": [200, 1500]}
	}`), &input))

	jobID, err := controller.StartAnalysis(context.Background(), input)
	require.NoError(t, err)
	controller.Wait()

	job, err := controller.GetStatus(jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status)
	require.NotNil(t, job.Result)

	report := job.Result
	require.Len(t, report.LogAnalysis.Patterns, 1)
	assert.Equal(t, models.LogPattern{Pattern: "Network Timeout", Frequency: 1, Severity: models.SeverityHigh}, report.LogAnalysis.Patterns[0])
	assert.Equal(t, 1, report.LogAnalysis.TotalLogs)
	require.Len(t, report.MetricsAnalysis.Anomalies, 1)
	assert.Equal(t, "latency_ms", report.MetricsAnalysis.Anomalies[0].MetricName)
	assert.Equal(t, 1500.0, report.MetricsAnalysis.Anomalies[0].Value)
	assert.Equal(t, engine.CauseNetworkIssue, report.RootCause.Cause)
	assert.InDelta(t, 0.75, report.RootCause.ConfidenceScore, 1e-9)
	require.Len(t, report.Recommendations, 2)
	assert.Equal(t, "Verify Firewall Rules", report.Recommendations[0].Action)
	assert.Equal(t, "Check Dependency Health", report.Recommendations[1].Action)

	assert.Equal(t, []string{
		models.StepInitializing,
		models.StepAnalyzingLogs,
		models.StepAnalyzingMetrics,
		models.StepInferringRootCause,
		models.StepGeneratingRecommendations,
		models.StepFinalizingReport,
		models.StepDone,
	}, store.stepsFor(jobID))
}

func TestControllerGeneratorFailureMarksJobFailed(t *testing.T) {
	store := newRecordingStore()
	controller := NewController(nil, newPipeline(echoGenerator{err: errors.New("llm unavailable")}), WithStore(store))

	jobID, err := controller.StartAnalysis(context.Background(), models.IncidentInput{Description: "x"})
	require.NoError(t, err)
	controller.Wait()

	job, err := controller.GetStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Step, "llm unavailable")
	assert.Contains(t, job.Step, models.StepFinalizingReport)
	assert.Nil(t, job.Result)

	steps := store.stepsFor(jobID)
	assert.Equal(t, models.StepFinalizingReport, steps[len(steps)-2])
}

func TestControllerRecoversRunnerPanic(t *testing.T) {
	runner := newGateRunner()
	runner.panic = true
	close(runner.release)
	controller := NewController(nil, runner)

	jobID, err := controller.StartAnalysis(context.Background(), models.IncidentInput{})
	require.NoError(t, err)
	controller.Wait()

	job, err := controller.GetStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "panic: runner exploded", job.Step)
	assert.Nil(t, job.Result)
}

func TestControllerUnknownJob(t *testing.T) {
	controller := NewController(nil, newGateRunner())
	_, err := controller.GetStatus("does-not-exist")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestControllerWithoutRunner(t *testing.T) {
	controller := NewController(nil, nil)
	_, err := controller.StartAnalysis(context.Background(), models.IncidentInput{})
	assert.Error(t, err)
	assert.Empty(t, controller.ListJobs())
}

func TestControllerDuplicateID(t *testing.T) {
	runner := newGateRunner()
	close(runner.release)
	controller := NewController(nil, runner, WithIDGenerator(func() string { return "fixed" }))

	_, err := controller.StartAnalysis(context.Background(), models.IncidentInput{})
	require.NoError(t, err)
	_, err = controller.StartAnalysis(context.Background(), models.IncidentInput{})
	assert.ErrorIs(t, err, ErrJobExists)
	controller.Wait()
}

func TestControllerListJobsIsReadOnly(t *testing.T) {
	runner := newGateRunner()
	close(runner.release)
	var seq atomic.Int32
	controller := NewController(nil, runner, WithIDGenerator(func() string {
		return fmt.Sprintf("job-%d", seq.Add(1))
	}))

	for i := 0; i < 3; i++ {
		_, err := controller.StartAnalysis(context.Background(), models.IncidentInput{})
		require.NoError(t, err)
	}
	controller.Wait()

	first := controller.ListJobs()
	require.Len(t, first, 3)
	assert.Equal(t, []string{"job-1", "job-2", "job-3"}, []string{first[0].JobID, first[1].JobID, first[2].JobID})

	first[0].Status = models.JobFailed
	second := controller.ListJobs()
	assert.Equal(t, models.JobCompleted, second[0].Status)

	status, err := controller.GetStatus("job-2")
	require.NoError(t, err)
	again, err := controller.GetStatus("job-2")
	require.NoError(t, err)
	assert.Equal(t, status, again)
}

func TestControllerBoundedConcurrency(t *testing.T) {
	runner := newGateRunner()
	controller := NewController(nil, runner, WithMaxConcurrentJobs(1))

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		id, err := controller.StartAnalysis(context.Background(), models.IncidentInput{})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	close(runner.release)
	controller.Wait()

	assert.Equal(t, int32(1), runner.peak.Load())
	for _, id := range ids {
		job, err := controller.GetStatus(id)
		require.NoError(t, err)
		assert.Equal(t, models.JobCompleted, job.Status)
	}
}

func TestControllerConcurrentSubmissions(t *testing.T) {
	controller := NewController(nil, newPipeline(echoGenerator{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := controller.StartAnalysis(context.Background(), models.IncidentInput{
				Description: fmt.Sprintf("incident %d", i),
				Logs:        []string{"OutOfMemoryError in worker"},
			})
			assert.NoError(t, err)
			_ = controller.ListJobs()
		}(i)
	}
	wg.Wait()
	controller.Wait()

	jobs := controller.ListJobs()
	require.Len(t, jobs, 20)
	for _, job := range jobs {
		assert.Equal(t, models.JobCompleted, job.Status)
		assert.Equal(t, engine.CauseMemoryExhaustion, job.Result.RootCause.Cause)
	}
}

func TestControllerSurvivesCancelledSubmitContext(t *testing.T) {
	controller := NewController(nil, newPipeline(echoGenerator{}))

	ctx, cancel := context.WithCancel(context.Background())
	jobID, err := controller.StartAnalysis(ctx, models.IncidentInput{Description: "x"})
	require.NoError(t, err)
	cancel()
	controller.Wait()

	job, err := controller.GetStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
}
