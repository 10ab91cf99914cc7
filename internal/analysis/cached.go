// ABOUTME: Caching decorator for the Analyzer interface.
// ABOUTME: Serves repeated analyses of the same set from a TTL cache.

package analysis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/2389/chase-gateway/internal/cache"
)

// Cached wraps an Analyzer with a TTL cache keyed by normalized set name.
// The useAI flag does not affect what the inner analyzer gathers, so it is
// not part of the key.
type Cached struct {
	inner  Analyzer
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCached builds the caching decorator. The cache is owned by the caller
// and must be closed by it.
func NewCached(inner Analyzer, c *cache.Cache, logger *slog.Logger) *Cached {
	return &Cached{
		inner:  inner,
		cache:  c,
		logger: logger.With("component", "analysis-cache"),
	}
}

// Analyze returns the cached document when fresh, otherwise delegates and
// stores the result. Failures are never cached.
func (c *Cached) Analyze(ctx context.Context, setName string, useAI bool) (json.RawMessage, error) {
	key := slugify(setName)

	if doc, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", "set_name", setName)
		return json.RawMessage(doc), nil
	}

	doc, err := c.inner.Analyze(ctx, setName, useAI)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, doc)
	return doc, nil
}
