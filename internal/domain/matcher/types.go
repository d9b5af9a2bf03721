package matcher

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// Method tags which strategy produced a candidate.
type Method string

const (
	MethodExactSingleOrder      Method = "exact_single_order"
	MethodExactShipmentGroup    Method = "exact_shipment_group"
	MethodMultipleOrdersSameDay Method = "multiple_orders_same_day"
	MethodDateWindowMatch       Method = "date_window_match"
	MethodSplitPayment          Method = "split_payment"
)

// Config holds engine configuration.
type Config struct {
	// DateWindowDays is the ± tolerance between a group's billable date and
	// the transaction date (default 2, covering processing lag).
	DateWindowDays int

	// MinConfidence is the threshold below which the best candidate is
	// reported as diagnostic only, not a match.
	MinConfidence float64

	// MaxComboSize caps same-day combination size to keep the search bounded.
	MaxComboSize int

	// MaxSplitGroups caps the split search depth.
	MaxSplitGroups int

	// SplitConfidenceCap bounds split-match confidence below any full match.
	SplitConfidenceCap float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DateWindowDays:     2,
		MinConfidence:      0.80,
		MaxComboSize:       4,
		MaxSplitGroups:     4,
		SplitConfidenceCap: 0.70,
	}
}

// Candidate is one proposed explanation for a transaction: a group or
// combination of groups, the strategy that found it, and its score.
// Matched plus Unmatched always equals the transaction magnitude exactly.
type Candidate struct {
	Groups     []*order.Group
	Method     Method
	Confidence float64
	Matched    decimal.Decimal
	Unmatched  decimal.Decimal
	DateDelta  int // days between transaction date and the groups' billable date
}

// Level reports the candidate's grouping level: order level only when every
// contributing group is order level.
func (c *Candidate) Level() order.GroupLevel {
	for _, g := range c.Groups {
		if g.Level != order.LevelOrder {
			return order.LevelShipment
		}
	}
	return order.LevelOrder
}

// Result is the engine's decision for one transaction, with every candidate
// considered retained for audit.
type Result struct {
	Transaction ledger.Transaction
	Matched     bool
	Best        *Candidate // nil when nothing plausible was found
	Candidates  []Candidate
}
