// Package cache holds the in-memory ledger transaction cache.
//
// The cache is refreshed from YNAB's delta sync endpoint between
// reconciliation runs and read-only during them; the reconciler never
// mutates entries.
package cache

import (
	"sort"
	"sync"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
)

// TransactionCache is a thread-safe cache of ledger transactions keyed by
// transaction ID, plus the server-knowledge cursor of the last applied
// delta.
type TransactionCache struct {
	mu              sync.RWMutex
	items           map[string]*ynab.Transaction
	serverKnowledge int64
}

// NewTransactionCache creates an empty cache.
func NewTransactionCache() *TransactionCache {
	return &TransactionCache{
		items: make(map[string]*ynab.Transaction),
	}
}

// Apply folds a sync delta into the cache. Deletion tombstones remove the
// transaction; everything else upserts.
func (c *TransactionCache) Apply(delta []*ynab.Transaction, serverKnowledge int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tx := range delta {
		if tx.Deleted {
			delete(c.items, tx.ID)
			continue
		}
		c.items[tx.ID] = tx
	}

	if serverKnowledge > c.serverKnowledge {
		c.serverKnowledge = serverKnowledge
	}
}

// ServerKnowledge returns the cursor to pass to the next delta sync.
func (c *TransactionCache) ServerKnowledge() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverKnowledge
}

// Len returns the number of cached transactions.
func (c *TransactionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Snapshot returns the cached transactions ordered by date, then ID. The
// ordering is part of the matching contract: candidate tie-break depends on
// transaction iteration order, so it must be reproducible across runs.
func (c *TransactionCache) Snapshot() []*ynab.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*ynab.Transaction, 0, len(c.items))
	for _, tx := range c.items {
		out = append(out, tx)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})

	return out
}
