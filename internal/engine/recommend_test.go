package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

func actions(recs []models.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Action)
	}
	return out
}

func TestRuleEngineRecommendDefaults(t *testing.T) {
	engine, err := NewRuleEngine("", nil)
	require.NoError(t, err)

	tests := []struct {
		cause string
		want  []string
	}{
		{CauseDatabaseSaturation, []string{"Check Active Queries", "Check Connection Pool"}},
		{CauseNetworkIssue, []string{"Verify Firewall Rules", "Check Dependency Health"}},
		{CauseMemoryExhaustion, []string{"Analyze Heap Dump", "Scale Up"}},
		{CauseUnknown, []string{"Investigate Application Logs"}},
		{"NETWORK database mix", []string{"Check Active Queries", "Check Connection Pool"}},
	}
	for _, tt := range tests {
		t.Run(tt.cause, func(t *testing.T) {
			recs := engine.Recommend(models.RootCause{Cause: tt.cause})
			assert.Equal(t, tt.want, actions(recs))
			for _, r := range recs {
				assert.True(t, r.IsSafe)
			}
		})
	}
}

func TestRuleEngineRecommendReturnsCopy(t *testing.T) {
	engine, err := NewRuleEngine("", nil)
	require.NoError(t, err)

	recs := engine.Recommend(models.RootCause{Cause: CauseMemoryExhaustion})
	recs[0].Action = "changed"
	assert.Equal(t, "Analyze Heap Dump", engine.Recommend(models.RootCause{Cause: CauseMemoryExhaustion})[0].Action)
}

func TestRuleEngineCatalogOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`categories:
  network:
    - action: "Trace Route"
      description: "Run traceroute to the failing dependency."
    - action: "Restart Gateway"
      description: "Restart the egress gateway."
      safe: false
  unknown-category:
    - action: "Ignored"
`), 0o644))

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	require.NoError(t, err)

	recs := engine.Recommend(models.RootCause{Cause: CauseNetworkIssue})
	assert.Equal(t, []string{"Trace Route", "Restart Gateway"}, actions(recs))
	assert.True(t, recs[0].IsSafe)
	assert.False(t, recs[1].IsSafe)

	assert.Equal(t, []string{"Analyze Heap Dump", "Scale Up"}, actions(engine.Recommend(models.RootCause{Cause: CauseMemoryExhaustion})))
}

func TestRuleEngineMissingCatalog(t *testing.T) {
	engine, err := NewRuleEngine("non-existent.yaml", nil)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Len(t, engine.Recommend(models.RootCause{Cause: CauseUnknown}), 1)
}

func TestRuleEngineInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  memory:\n    - description: no action\n"), 0o644))

	_, err := NewRuleEngine(path, nil)
	assert.Error(t, err)
}
