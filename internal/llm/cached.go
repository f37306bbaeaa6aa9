package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-copilot/internal/cache"
	"github.com/miradorstack/mirador-copilot/internal/metrics"
)

const cacheKeyPrefix = "mirador-copilot:summary:"

// CachedGenerator memoises another Generator by prompt hash. Cache faults are
// logged and never fail a generation.
type CachedGenerator struct {
	next   Generator
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGenerator wraps next with the supplied cache.
func NewCachedGenerator(next Generator, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CachedGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &CachedGenerator{next: next, cache: provider, ttl: ttl, logger: logger}
}

// Generate implements Generator.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)

	cached, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.ObserveSummaryCache(metrics.CacheHit)
		return string(cached), nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.ObserveSummaryCache(metrics.CacheMiss)
	default:
		metrics.ObserveSummaryCache(metrics.CacheError)
		g.logger.Warn("summary cache lookup failed", slog.Any("error", err))
	}

	summary, err := g.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := g.cache.Set(ctx, key, []byte(summary), g.ttl); err != nil {
		g.logger.Warn("summary cache store failed", slog.Any("error", err))
	}
	return summary, nil
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
