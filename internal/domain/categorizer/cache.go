package categorizer

import (
	"context"
	"strings"
	"sync"
)

// Cached decorates a Suggester with an in-memory cache keyed by the item
// list. The same order re-extracted on a later run costs no extra API call.
type Cached struct {
	inner Suggester

	mu    sync.RWMutex
	items map[string]string
}

// NewCached wraps a suggester with caching.
func NewCached(inner Suggester) *Cached {
	return &Cached{
		inner: inner,
		items: make(map[string]string),
	}
}

// Suggest returns a cached suggestion when available, delegating otherwise.
func (c *Cached) Suggest(ctx context.Context, items []string) (string, error) {
	key := strings.Join(items, "\x1f")

	c.mu.RLock()
	cached, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	suggestion, err := c.inner.Suggest(ctx, items)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items[key] = suggestion
	c.mu.Unlock()

	return suggestion, nil
}
