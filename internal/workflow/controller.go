package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/mirador-copilot/internal/engine"
	"github.com/miradorstack/mirador-copilot/internal/metrics"
	"github.com/miradorstack/mirador-copilot/internal/models"
	"github.com/miradorstack/mirador-copilot/internal/utils"
)

// ErrInvalidTransition is returned when a terminal job would be modified.
var ErrInvalidTransition = errors.New("invalid job transition")

// Runner executes the staged analysis for one incident.
type Runner interface {
	Run(ctx context.Context, input models.IncidentInput, onStep engine.StepFunc) (models.Report, error)
}

// Controller owns job lifecycle state and runs each job in the background.
type Controller struct {
	logger    *slog.Logger
	store     Store
	runner    Runner
	tracer    trace.Tracer
	slots     chan struct{}
	wg        sync.WaitGroup
	newID     func() string
	now       func() time.Time
	latencies *utils.LatencyTracker
}

// Option customises a Controller.
type Option func(*Controller)

// WithStore replaces the default in-memory job store.
func WithStore(store Store) Option {
	return func(c *Controller) {
		if store != nil {
			c.store = store
		}
	}
}

// WithMaxConcurrentJobs bounds how many jobs run at once. Zero means unbounded.
func WithMaxConcurrentJobs(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.slots = make(chan struct{}, n)
		}
	}
}

// WithIDGenerator overrides job id allocation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock overrides the clock used for job timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewController constructs a workflow controller around the supplied runner.
func NewController(logger *slog.Logger, runner Runner, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		logger:    logger,
		store:     NewMemoryStore(),
		runner:    runner,
		tracer:    otel.Tracer("github.com/miradorstack/mirador-copilot/internal/workflow"),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
		latencies: utils.NewLatencyTracker(1024),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartAnalysis records a new processing job, schedules its pipeline and returns
// the job id without waiting. The job outlives ctx; only values are inherited.
func (c *Controller) StartAnalysis(ctx context.Context, input models.IncidentInput) (string, error) {
	if c.runner == nil {
		return "", fmt.Errorf("pipeline not configured")
	}

	now := c.now()
	job := models.Job{
		JobID:     c.newID(),
		Status:    models.JobProcessing,
		Step:      models.StepInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Insert(job); err != nil {
		return "", fmt.Errorf("record job: %w", err)
	}

	c.logger.Info("analysis job submitted", slog.String("job_id", job.JobID), slog.Int("logs", len(input.Logs)), slog.Int("metrics", len(input.Metrics)))

	metrics.JobStarted()
	c.wg.Add(1)
	go c.execute(context.WithoutCancel(ctx), job.JobID, input.Clone())

	return job.JobID, nil
}

// GetStatus returns the current snapshot of a job.
func (c *Controller) GetStatus(jobID string) (models.Job, error) {
	job, ok := c.store.Get(jobID)
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns snapshots of every job in submission order.
func (c *Controller) ListJobs() []models.Job {
	return c.store.List()
}

// Wait blocks until every submitted job has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) execute(ctx context.Context, jobID string, input models.IncidentInput) {
	defer c.wg.Done()

	if c.slots != nil {
		c.slots <- struct{}{}
		defer func() { <-c.slots }()
	}

	ctx, span := c.tracer.Start(ctx, "analysis_job", trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	logger := c.logger.With(slog.String("job_id", jobID))
	start := time.Now()
	report, err := c.run(ctx, jobID, input)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveJob(duration, metrics.OutcomeFailed)
		logger.Error("analysis job failed", slog.String("stage", utils.Operation(err)), slog.Any("error", err))
		c.finish(logger, jobID, func(job *models.Job) {
			job.Status = models.JobFailed
			job.Step = failureStep(err)
			job.Result = nil
		})
		return
	}

	metrics.ObserveJob(duration, metrics.OutcomeCompleted)
	c.finish(logger, jobID, func(job *models.Job) {
		job.Status = models.JobCompleted
		job.Step = models.StepDone
		job.Result = &report
	})
	logger.Info("analysis job completed", slog.String("root_cause", report.RootCause.Cause), slog.Duration("duration", duration))

	c.latencies.Observe(duration)
	if count := c.latencies.Count(); count >= 20 && count%20 == 0 {
		logger.Info("analysis job latency", slog.Duration("p95", c.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

func (c *Controller) run(ctx context.Context, jobID string, input models.IncidentInput) (report models.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return c.runner.Run(ctx, input, func(step string) {
		c.transition(jobID, func(job *models.Job) {
			job.Step = step
		})
	})
}

func (c *Controller) finish(logger *slog.Logger, jobID string, apply func(*models.Job)) {
	if err := c.transition(jobID, apply); err != nil {
		logger.Warn("job state update rejected", slog.Any("error", err))
	}
}

// transition mutates a processing job; terminal jobs are never changed.
func (c *Controller) transition(jobID string, apply func(*models.Job)) error {
	return c.store.Update(jobID, func(job *models.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, jobID, job.Status)
		}
		apply(job)
		job.UpdatedAt = c.now()
		return nil
	})
}

func failureStep(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown failure"
}
