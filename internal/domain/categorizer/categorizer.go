// Package categorizer is the optional AI-assisted category-suggestion
// add-on. The reconcile pipeline works without it; suggestions only enrich
// the audit trail and are never written to the ledger.
package categorizer

import (
	"context"
)

// Suggester proposes a spending category for a set of purchased items.
type Suggester interface {
	Suggest(ctx context.Context, items []string) (string, error)
}
