// Package validator provides consistency checks for batch run output.
//
// A report must never leave the runner unless it is internally consistent:
// every transaction's matched and unmatched parts sum to its amount, and
// the summary counts agree with the per-transaction records. A failure here
// is an arithmetic bug upstream, so callers treat it as fatal.
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation contains the result of a consistency check.
type Validation struct {
	// Valid is true if the check passed
	Valid bool

	// Reason explains why validation failed (empty if valid)
	Reason string
}

func valid() *Validation {
	return &Validation{Valid: true}
}

func invalid(format string, args ...any) *Validation {
	return &Validation{Valid: false, Reason: fmt.Sprintf(format, args...)}
}

// ValidateRecordSums checks that a record's matched and unmatched amounts
// sum exactly to the transaction magnitude. Decimal arithmetic, no tolerance:
// a mismatch of even one cent means the grouping or scoring math is wrong.
func ValidateRecordSums(transactionID string, amount, matched, unmatched decimal.Decimal) *Validation {
	if unmatched.IsNegative() {
		return invalid("transaction %s: unmatched amount %s is negative (over-match)",
			transactionID, unmatched)
	}
	if !matched.Add(unmatched).Equal(amount) {
		return invalid("transaction %s: matched %s + unmatched %s != amount %s",
			transactionID, matched, unmatched, amount)
	}
	return valid()
}

// ValidateSummaryCounts checks that the aggregate counters partition the
// transaction list.
func ValidateSummaryCounts(total, matched, partial, unmatched int) *Validation {
	if matched+partial+unmatched != total {
		return invalid("summary counts do not partition the batch: %d + %d + %d != %d",
			matched, partial, unmatched, total)
	}
	return valid()
}
