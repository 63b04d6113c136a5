package matcher

import (
	"time"

	"github.com/receiptsync/amazon-ynab-sync/internal/domain/extractor"
)

// Config holds matcher tolerances. All amount arithmetic is integer
// milliunits; dates are compared at day granularity.
type Config struct {
	DateTolerance   time.Duration // maximum date distance (whole days)
	AmountTolerance int64         // maximum amount distance in milliunits
}

// DefaultConfig returns sensible defaults: four days and half a currency
// unit. The slack absorbs card settlement delay and rounding on the bank
// side.
func DefaultConfig() Config {
	return Config{
		DateTolerance:   4 * 24 * time.Hour,
		AmountTolerance: 500,
	}
}

// Candidate is one record/transaction pairing within tolerance. Candidates
// are generated in bulk, ranked globally, and consumed once.
type Candidate struct {
	DateDelta     time.Duration
	AmountDelta   int64
	RecordIndex   int
	TransactionID string
}

// AcceptedMatch pairs a transaction with the purchase record it will be
// annotated from.
type AcceptedMatch struct {
	TransactionID string
	Record        *extractor.PurchaseRecord
}
