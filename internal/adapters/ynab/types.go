package ynab

import (
	"fmt"
	"strings"
	"time"
)

// Date wraps time.Time with YNAB's "2006-01-02" wire format. Transactions
// carry day granularity only.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// UnmarshalJSON parses a YNAB civil date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON formats a YNAB civil date.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// Budget is a YNAB budget reference.
type Budget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction is a YNAB ledger transaction. Amount is in signed milliunits;
// outflows are negative. Memo doubles as the reconciliation marker: a
// transaction with a non-empty memo is never matched again.
type Transaction struct {
	ID        string `json:"id"`
	Date      Date   `json:"date"`
	Amount    int64  `json:"amount"`
	PayeeName string `json:"payee_name"`
	Memo      string `json:"memo"`
	Approved  bool   `json:"approved"`
	Deleted   bool   `json:"deleted"`
}

// TransactionUpdate is the payload for a single transaction in a batch
// update. Approved stays false so annotated transactions still show up in
// the YNAB review queue.
type TransactionUpdate struct {
	ID       string `json:"id"`
	Memo     string `json:"memo"`
	Approved bool   `json:"approved"`
}
