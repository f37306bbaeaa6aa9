package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// SummaryGenerator turns a prompt into free text. Implementations may call a
// language model; the composer treats it as an opaque string transform.
type SummaryGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReportComposer assembles the final report of a job.
type ReportComposer struct {
	generator SummaryGenerator
	now       func() time.Time
}

// NewReportComposer constructs a composer around the supplied generator.
func NewReportComposer(generator SummaryGenerator) *ReportComposer {
	return &ReportComposer{
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Compose synthesises the summary and passes root cause and recommendations
// through unchanged. Generator failures are returned to the caller as is.
func (c *ReportComposer) Compose(ctx context.Context, description string, rc models.RootCause, recs []models.Recommendation) (models.Report, error) {
	if c.generator == nil {
		return models.Report{}, fmt.Errorf("summary generator not configured")
	}

	summary, err := c.generator.Generate(ctx, BuildSummaryPrompt(description, rc, recs))
	if err != nil {
		return models.Report{}, fmt.Errorf("generate summary: %w", err)
	}

	return models.Report{
		Summary:         summary,
		RootCause:       rc,
		Recommendations: recs,
		GeneratedAt:     c.now(),
	}, nil
}

// BuildSummaryPrompt renders the prompt handed to the summary generator.
func BuildSummaryPrompt(description string, rc models.RootCause, recs []models.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident: %s\n", strings.TrimSpace(description))
	fmt.Fprintf(&b, "Root cause: %s (confidence %.2f)\n", rc.Cause, rc.ConfidenceScore)
	fmt.Fprintf(&b, "Reasoning: %s\n", rc.Reasoning)
	if len(recs) > 0 {
		b.WriteString("Recommended actions:\n")
		for i, rec := range recs {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, rec.Action, rec.Description)
		}
	}
	b.WriteString("Write a short incident summary for an on-call engineer.")
	return b.String()
}
