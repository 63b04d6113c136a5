// Package matcher reconciles purchase records against ledger transactions.
//
// Matching is a greedy approximation, not an optimal assignment: all
// candidate pairings within tolerance are ranked globally by date distance
// then amount distance, and accepted best-first with each record and each
// transaction consumed at most once. Downstream behavior depends on this
// exact strategy, including its tie resolution, so it must not be replaced
// with a minimum-cost bipartite solver.
package matcher

import (
	"sort"
	"time"

	"github.com/receiptsync/amazon-ynab-sync/internal/adapters/ynab"
	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
)

// Matcher pairs purchase records with ledger transactions under fuzzy
// date/amount tolerance. It is pure: callers own all mutation.
type Matcher struct {
	cfg Config
}

// New creates a matcher with the given config.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match computes a one-to-one assignment between records and transactions.
// Output is deterministic given identical inputs in identical order; no
// transaction ID or record index appears twice.
func (m *Matcher) Match(records []*extractor.PurchaseRecord, transactions []*ynab.Transaction) []AcceptedMatch {
	candidates := m.collectCandidates(records, transactions)

	// Rank globally: closest date first, then closest amount. The stable
	// sort keeps insertion order (record order, then transaction order)
	// as the final tie-break, which is load-bearing for determinism.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DateDelta != candidates[j].DateDelta {
			return candidates[i].DateDelta < candidates[j].DateDelta
		}
		return candidates[i].AmountDelta < candidates[j].AmountDelta
	})

	usedRecords := make(map[int]bool)
	usedTransactions := make(map[string]bool)

	var accepted []AcceptedMatch
	for _, c := range candidates {
		if usedRecords[c.RecordIndex] || usedTransactions[c.TransactionID] {
			continue
		}
		usedRecords[c.RecordIndex] = true
		usedTransactions[c.TransactionID] = true

		accepted = append(accepted, AcceptedMatch{
			TransactionID: c.TransactionID,
			Record:        records[c.RecordIndex],
		})
	}

	return accepted
}

// collectCandidates emits every record/transaction pairing within tolerance.
// A perfect match ends the scan for that record, but the transaction stays
// available to other records; cross-record conflicts are resolved globally
// during acceptance.
func (m *Matcher) collectCandidates(records []*extractor.PurchaseRecord, transactions []*ynab.Transaction) []Candidate {
	var candidates []Candidate

	for ri, rec := range records {
		for _, tx := range transactions {
			if tx.Memo != "" || tx.Deleted {
				continue
			}

			// Compare civil days, not instants: a date carrying a
			// mail server's offset must not skew the delta past the
			// tolerance boundary.
			dateDelta := absDuration(civilDay(rec.Date).Sub(civilDay(tx.Date.Time)))
			if dateDelta > m.cfg.DateTolerance {
				continue
			}

			// Magnitudes, to cancel out the sign convention on
			// either side.
			amountDelta := absInt64(absInt64(rec.Amount) - absInt64(tx.Amount))
			if amountDelta > m.cfg.AmountTolerance {
				continue
			}

			candidates = append(candidates, Candidate{
				DateDelta:     dateDelta,
				AmountDelta:   amountDelta,
				RecordIndex:   ri,
				TransactionID: tx.ID,
			})

			if dateDelta == 0 && amountDelta == 0 {
				break
			}
		}
	}

	return candidates
}

// civilDay pins a timestamp to UTC midnight of its calendar day.
func civilDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
