package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-copilot/internal/models"
)

// Recommendation categories, checked in this order against the root cause.
const (
	CategoryDatabase = "database"
	CategoryNetwork  = "network"
	CategoryMemory   = "memory"
	CategoryDefault  = "default"
)

var categoryOrder = []string{CategoryDatabase, CategoryNetwork, CategoryMemory}

// RuleEngine maps a root cause category to a fixed menu of safe remediation actions.
type RuleEngine struct {
	catalog map[string][]models.Recommendation
	logger  *slog.Logger
}

// CatalogEntry is one recommendation in a YAML catalog.
type CatalogEntry struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
	Safe        *bool  `yaml:"safe"`
}

// CatalogFile is the YAML root structure.
type CatalogFile struct {
	Categories map[string][]CatalogEntry `yaml:"categories"`
}

// DefaultCatalog returns the built-in recommendation sets.
func DefaultCatalog() map[string][]models.Recommendation {
	return map[string][]models.Recommendation{
		CategoryDatabase: {
			{Action: "Check Active Queries", Description: "Run 'SELECT * FROM pg_stat_activity' to find long-running queries.", IsSafe: true},
			{Action: "Check Connection Pool", Description: "Verify if the application connection pool has reached max_size.", IsSafe: true},
		},
		CategoryNetwork: {
			{Action: "Verify Firewall Rules", Description: "Check if any recent firewall changes blocked traffic.", IsSafe: true},
			{Action: "Check Dependency Health", Description: "Ping downstream services to verify availability.", IsSafe: true},
		},
		CategoryMemory: {
			{Action: "Analyze Heap Dump", Description: "Capture and analyze a heap dump to identify memory leaks.", IsSafe: true},
			{Action: "Scale Up", Description: "Consider increasing memory allocation for the container (requires restart).", IsSafe: true},
		},
		CategoryDefault: {
			{Action: "Investigate Application Logs", Description: "Manually review logs for unhandled exceptions.", IsSafe: true},
		},
	}
}

// NewRuleEngine builds the recommender from the default catalog. When path names a
// YAML catalog, its categories replace the matching defaults; a missing file
// leaves the defaults untouched.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &RuleEngine{catalog: DefaultCatalog(), logger: logger}
	if path == "" {
		return engine, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("recommendation catalog not found, using defaults", slog.String("path", path))
			return engine, nil
		}
		return nil, fmt.Errorf("read recommendation catalog: %w", err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse recommendation catalog: %w", err)
	}

	for category, entries := range file.Categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if _, known := engine.catalog[category]; !known {
			logger.Warn("ignoring unknown recommendation category", slog.String("category", category))
			continue
		}
		if len(entries) == 0 {
			continue
		}
		recs := make([]models.Recommendation, 0, len(entries))
		for _, entry := range entries {
			if entry.Action == "" {
				return nil, fmt.Errorf("recommendation catalog: category %s has an entry without action", category)
			}
			safe := true
			if entry.Safe != nil {
				safe = *entry.Safe
			}
			recs = append(recs, models.Recommendation{Action: entry.Action, Description: entry.Description, IsSafe: safe})
		}
		engine.catalog[category] = recs
	}
	return engine, nil
}

// Recommend returns the ordered recommendation set for the root cause. Exactly one
// category applies: the first of database, network, memory found in the cause,
// otherwise the default set.
func (e *RuleEngine) Recommend(rc models.RootCause) []models.Recommendation {
	recs := e.catalog[Category(rc.Cause)]
	return append([]models.Recommendation(nil), recs...)
}

// Category returns the recommendation category selected for a root cause label.
func Category(cause string) string {
	lower := strings.ToLower(cause)
	for _, category := range categoryOrder {
		if strings.Contains(lower, category) {
			return category
		}
	}
	return CategoryDefault
}
