package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/mirador-copilot/internal/extractors"
	"github.com/miradorstack/mirador-copilot/internal/metrics"
	"github.com/miradorstack/mirador-copilot/internal/models"
	"github.com/miradorstack/mirador-copilot/internal/utils"
)

const tracerName = "github.com/miradorstack/mirador-copilot/internal/engine"

// LogAnalyzer scans raw log lines for fault signatures.
type LogAnalyzer interface {
	Analyze(lines []string) models.LogAnalysisResult
}

// MetricsAnalyzer flags metric readings that breach thresholds.
type MetricsAnalyzer interface {
	Analyze(metrics models.Metrics) models.MetricsAnalysisResult
}

// Correlator selects a root cause from the two analyses.
type Correlator interface {
	Evaluate(logs models.LogAnalysisResult, metrics models.MetricsAnalysisResult) models.RootCause
}

// Recommender maps a root cause to remediation actions.
type Recommender interface {
	Recommend(rc models.RootCause) []models.Recommendation
}

// Composer assembles the final report.
type Composer interface {
	Compose(ctx context.Context, description string, rc models.RootCause, recs []models.Recommendation) (models.Report, error)
}

// StepFunc is invoked with the step marker before each stage starts.
type StepFunc func(step string)

// Pipeline runs the five analysis stages of an incident in order.
type Pipeline struct {
	logger      *slog.Logger
	logs        LogAnalyzer
	metrics     MetricsAnalyzer
	correlator  Correlator
	recommender Recommender
	composer    Composer
	tracer      trace.Tracer
	stageDelay  time.Duration
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithStageDelay pauses between stages. The delay only paces progress updates.
func WithStageDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.stageDelay = d
		}
	}
}

// WithTracer overrides the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// NewPipeline constructs the analysis pipeline. Nil analyzers fall back to the
// built-in implementations; the composer is required at run time.
func NewPipeline(
	logger *slog.Logger,
	logs LogAnalyzer,
	metricsAnalyzer MetricsAnalyzer,
	correlator Correlator,
	recommender Recommender,
	composer Composer,
	opts ...PipelineOption,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if logs == nil {
		logs = extractors.NewLogsExtractor()
	}
	if metricsAnalyzer == nil {
		metricsAnalyzer = extractors.NewMetricExtractor()
	}
	if correlator == nil {
		correlator = NewCausalityEngine()
	}
	if recommender == nil {
		recommender = &RuleEngine{catalog: DefaultCatalog(), logger: logger}
	}

	p := &Pipeline{
		logger:      logger,
		logs:        logs,
		metrics:     metricsAnalyzer,
		correlator:  correlator,
		recommender: recommender,
		composer:    composer,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage sequentially. onStep may be nil. A failing stage stops
// the run and its error names the stage.
func (p *Pipeline) Run(ctx context.Context, input models.IncidentInput, onStep StepFunc) (models.Report, error) {
	if p.composer == nil {
		return models.Report{}, fmt.Errorf("report composer not configured")
	}
	if onStep == nil {
		onStep = func(string) {}
	}

	var (
		logResult     models.LogAnalysisResult
		metricsResult models.MetricsAnalysisResult
		rootCause     models.RootCause
		recs          []models.Recommendation
		report        models.Report
	)

	stages := []struct {
		step string
		run  func(ctx context.Context, span trace.Span) error
	}{
		{models.StepAnalyzingLogs, func(_ context.Context, span trace.Span) error {
			logResult = p.logs.Analyze(input.Logs)
			span.SetAttributes(
				attribute.Int("logs.total", logResult.TotalLogs),
				attribute.Int("logs.patterns", len(logResult.Patterns)),
			)
			return nil
		}},
		{models.StepAnalyzingMetrics, func(_ context.Context, span trace.Span) error {
			metricsResult = p.metrics.Analyze(input.Metrics)
			span.SetAttributes(attribute.Int("metrics.anomalies", len(metricsResult.Anomalies)))
			return nil
		}},
		{models.StepInferringRootCause, func(_ context.Context, span trace.Span) error {
			rootCause = p.correlator.Evaluate(logResult, metricsResult)
			span.SetAttributes(
				attribute.String("root_cause.cause", rootCause.Cause),
				attribute.Float64("root_cause.confidence", rootCause.ConfidenceScore),
			)
			return nil
		}},
		{models.StepGeneratingRecommendations, func(_ context.Context, span trace.Span) error {
			recs = p.recommender.Recommend(rootCause)
			span.SetAttributes(attribute.Int("recommendations.count", len(recs)))
			return nil
		}},
		{models.StepFinalizingReport, func(ctx context.Context, _ trace.Span) error {
			var err error
			report, err = p.composer.Compose(ctx, input.Description, rootCause, recs)
			return err
		}},
	}

	for i, stage := range stages {
		onStep(stage.step)
		if err := p.runStage(ctx, stage.step, stage.run); err != nil {
			return models.Report{}, err
		}
		if i < len(stages)-1 {
			if err := p.pace(ctx); err != nil {
				return models.Report{}, err
			}
		}
	}

	report.LogAnalysis = logResult
	report.MetricsAnalysis = metricsResult
	metrics.ObserveRootCause(rootCause.Cause)
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, step string, run func(context.Context, trace.Span) error) (err error) {
	ctx, span := p.tracer.Start(ctx, "stage."+step, trace.WithAttributes(attribute.String("stage", step)))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		metrics.ObserveStage(step, time.Since(start))
		if err != nil {
			err = utils.NewAppError(step, "stage failed", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p.logger.Debug("pipeline stage started", slog.String("step", step))
	return run(ctx, span)
}

func (p *Pipeline) pace(ctx context.Context) error {
	if p.stageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.stageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
