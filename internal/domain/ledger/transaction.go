// Package ledger models the bank/card side of reconciliation: cached
// transactions and the payee filter that selects Amazon charges.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one bank/card charge loaded from the ledger cache.
// Amounts are signed: expenses are negative. The matching core never
// mutates a transaction.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Payee       string
	AccountName string
}

// ExpenseAmount returns the charge magnitude as a positive value.
func (t Transaction) ExpenseAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// IsExpense reports whether the transaction is a charge rather than a
// refund/credit.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// DateRange bounds one batch run. Both ends are inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether d falls inside the range, comparing dates only.
func (r DateRange) Contains(d time.Time) bool {
	day := d.Format("2006-01-02")
	return day >= r.Start.Format("2006-01-02") && day <= r.End.Format("2006-01-02")
}
