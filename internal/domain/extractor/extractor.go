// Package extractor turns raw order-confirmation emails into purchase
// records.
//
// Amazon has shipped at least two generations of confirmation markup, and
// forwarded copies rewrite element identifiers on top of that. Extraction is
// therefore layered: each field is tried against an ordered list of
// strategies and the first one that succeeds wins. A message that fails every
// strategy is skipped, never an error; the caller just moves on to the next
// message.
package extractor

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Extractor extracts purchase records from order-confirmation emails.
// It is stateless and safe for concurrent use.
type Extractor struct {
	cfg    Config
	logger *slog.Logger

	amountStrategies []amountStrategy
	itemStrategies   []itemStrategy
}

// New creates an extractor with the given config.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Extractor{
		cfg:    cfg,
		logger: logger,
	}

	// Order matters: the current layout first, the legacy layout as
	// fallback. Amazon has regressed to old templates before, so the
	// legacy strategies stay even while the primary ones cover
	// everything seen recently.
	e.amountStrategies = []amountStrategy{
		{name: "total-table", fn: totalTableAmount},
		{name: "legacy-cost-breakdown", fn: legacyCostBreakdownAmount},
	}
	e.itemStrategies = []itemStrategy{
		{name: "product-links", fn: e.productLinkItems},
		{name: "legacy-item-table", fn: e.legacyItemTableItems},
	}

	return e
}

// Extract parses one message into a purchase record.
// Returns nil when the message should be skipped: wrong sender, no
// resolvable total, or no resolvable items. Parse failures are logged with
// the subject line and folded into the same skip outcome.
func (e *Extractor) Extract(msg Message) *PurchaseRecord {
	if msg.From != e.cfg.SenderAddress {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(normalizeForwarded(msg.HTMLBody)))
	if err != nil {
		e.logger.Error("failed to parse order email",
			"subject", msg.Subject,
			"error", err,
		)
		return nil
	}

	amount, strategy := e.extractAmount(doc)
	if amount == 0 {
		e.logger.Debug("no order total found", "subject", msg.Subject)
		return nil
	}

	items, itemStrategy := e.extractItems(doc)
	if len(items) == 0 {
		e.logger.Debug("no order items found", "subject", msg.Subject)
		return nil
	}

	e.logger.Debug("extracted purchase record",
		"subject", msg.Subject,
		"amount_milliunits", amount,
		"item_count", len(items),
		"amount_strategy", strategy,
		"item_strategy", itemStrategy,
	)

	return &PurchaseRecord{
		Date:   midnight(msg.ReceivedAt),
		Amount: -amount,
		Items:  items,
	}
}

// extractAmount tries the amount strategies in order and returns the first
// nonzero total in milliunits, together with the strategy name.
func (e *Extractor) extractAmount(doc *goquery.Document) (int64, string) {
	for _, s := range e.amountStrategies {
		if amount, ok := s.fn(doc); ok && amount != 0 {
			return amount, s.name
		}
	}
	return 0, ""
}

// extractItems tries the item strategies in order and returns the first
// non-empty list of item titles, together with the strategy name.
func (e *Extractor) extractItems(doc *goquery.Document) ([]string, string) {
	for _, s := range e.itemStrategies {
		if items := s.fn(doc); len(items) > 0 {
			return items, s.name
		}
	}
	return nil, ""
}

// normalizeForwarded strips the "x_" prefix that Outlook-style forwarding
// prepends to id and class values, so the original selectors still match.
func normalizeForwarded(body string) string {
	body = strings.ReplaceAll(body, `"x_`, `"`)
	body = strings.ReplaceAll(body, `'x_`, `'`)
	return body
}

// midnight truncates a timestamp to UTC midnight of its calendar day.
// Matching tolerance operates on day granularity, and ledger dates are civil
// dates pinned to UTC; keeping the mail server's offset here would skew every
// date delta by that offset.
func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
