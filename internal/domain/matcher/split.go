package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// splitPaymentStrategy is the last rung: when nothing explains the full
// amount, find the subset of in-window shipment groups that covers as much
// of it as possible without going over, and report the remainder honestly.
type splitPaymentStrategy struct {
	cfg Config
}

func (s *splitPaymentStrategy) Method() Method { return MethodSplitPayment }

func (s *splitPaymentStrategy) Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate {
	amount := txn.ExpenseAmount()

	// Bound the pool to in-window groups before searching. Shipment-level
	// groups are pairwise disjoint, so any subset is non-overlapping.
	var pool []*order.Group
	for _, g := range idx.AllShipmentGroups() {
		if dateDeltaDays(txn.Date, g.BillableDate()) > s.cfg.DateWindowDays {
			continue
		}
		if g.Total.IsZero() || g.Total.GreaterThan(amount) {
			continue
		}
		pool = append(pool, g)
	}
	if len(pool) == 0 {
		return nil
	}

	groups, covered := bestSplit(pool, amount, s.cfg.MaxSplitGroups)
	if len(groups) == 0 || covered.IsZero() {
		return nil
	}

	unmatched := amount.Sub(covered)
	coverage, _ := covered.Div(amount).Float64()
	confidence := clampScore(s.cfg.SplitConfidenceCap * coverage)

	delta := 0
	for _, g := range groups {
		if d := dateDeltaDays(txn.Date, g.BillableDate()); d > delta {
			delta = d
		}
	}

	return []Candidate{{
		Groups:     groups,
		Method:     s.Method(),
		Confidence: confidence,
		Matched:    covered,
		Unmatched:  unmatched,
		DateDelta:  delta,
	}}
}

// bestSplit runs a depth-bounded branch-and-bound subset search: maximize the
// covered amount without exceeding budget; on equal coverage prefer fewer
// groups. Groups are taken in descending amount order so large contributions
// are tried first and the remaining-sum bound prunes aggressively.
func bestSplit(pool []*order.Group, budget decimal.Decimal, maxGroups int) ([]*order.Group, decimal.Decimal) {
	sorted := make([]*order.Group, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total.GreaterThan(sorted[j].Total)
	})

	// remaining[i] = sum of totals from i to end, for the bound.
	remaining := make([]decimal.Decimal, len(sorted)+1)
	remaining[len(sorted)] = decimal.Zero
	for i := len(sorted) - 1; i >= 0; i-- {
		remaining[i] = remaining[i+1].Add(sorted[i].Total)
	}

	var best []*order.Group
	bestSum := decimal.Zero
	var current []*order.Group

	var walk func(start int, sum decimal.Decimal)
	walk = func(start int, sum decimal.Decimal) {
		if sum.GreaterThan(bestSum) || (sum.Equal(bestSum) && len(best) > 0 && len(current) < len(best)) {
			best = make([]*order.Group, len(current))
			copy(best, current)
			bestSum = sum
		}
		if bestSum.Equal(budget) && len(best) <= len(current) {
			return // cannot improve on full coverage with fewer groups below here
		}
		if len(current) >= maxGroups || start >= len(sorted) {
			return
		}
		// Bound: even taking everything left cannot beat the best found.
		if sum.Add(remaining[start]).LessThanOrEqual(bestSum) {
			return
		}
		for i := start; i < len(sorted); i++ {
			next := sum.Add(sorted[i].Total)
			if next.GreaterThan(budget) {
				continue // over-matching is never permitted
			}
			current = append(current, sorted[i])
			walk(i+1, next)
			current = current[:len(current)-1]
		}
	}
	walk(0, decimal.Zero)

	return best, bestSum
}
