package extractor

import (
	"time"
)

// Message is a raw order-confirmation email as delivered by the mail adapter.
type Message struct {
	From       string    // sender address, e.g. "auto-confirm@amazon.com"
	Subject    string    // subject line, kept for diagnostics
	HTMLBody   string    // HTML body of the message
	ReceivedAt time.Time // server receive timestamp
}

// PurchaseRecord is the normalized result of extracting one order
// confirmation. Amounts are signed YNAB milliunits; a purchase is negative,
// mirroring the outflow sign of the ledger transaction it will be matched
// against. Date carries day granularity only.
type PurchaseRecord struct {
	Date   time.Time
	Amount int64
	Items  []string
}

// Config holds extractor configuration.
type Config struct {
	// SenderAddress is the only address order confirmations are accepted
	// from. Anything else is skipped before the body is parsed.
	SenderAddress string

	// SkipPhrases filters out navigation links that would otherwise be
	// picked up as item titles.
	SkipPhrases []string

	// MaxTitleLen drops anchor texts at or above this length. Product
	// titles in confirmation emails are always shorter; longer texts are
	// marketing blocks.
	MaxTitleLen int
}

// DefaultConfig returns sensible defaults for Amazon order confirmations.
func DefaultConfig() Config {
	return Config{
		SenderAddress: "auto-confirm@amazon.com",
		SkipPhrases: []string{
			"View or edit order",
			"Your Orders",
			"Your Account",
			"Buy Again",
			"Track package",
		},
		MaxTitleLen: 200,
	}
}
