package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// Strategy is one rung of the matching ladder. Every rung is evaluated for
// every transaction so the audit trail is complete; selection happens later.
type Strategy interface {
	Method() Method
	Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate
}

// defaultStrategies returns the ladder in priority order.
func defaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		&exactSingleOrderStrategy{},
		&exactShipmentGroupStrategy{},
		&sameDayComboStrategy{cfg: cfg},
		&dateWindowStrategy{cfg: cfg},
		&splitPaymentStrategy{cfg: cfg},
	}
}

// exactSingleOrderStrategy matches one whole order billed as one charge on
// the same day. The strongest signal there is: confidence pinned to 1.0.
type exactSingleOrderStrategy struct{}

func (s *exactSingleOrderStrategy) Method() Method { return MethodExactSingleOrder }

func (s *exactSingleOrderStrategy) Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate {
	amount := txn.ExpenseAmount()
	var out []Candidate

	for _, g := range idx.OrderGroups() {
		if !g.Total.Equal(amount) {
			continue
		}
		if dateDeltaDays(txn.Date, g.OrderDate) != 0 {
			continue
		}
		out = append(out, fullCandidate([]*order.Group{g}, s.Method(), 1.0, amount, 0))
	}
	return out
}

// exactShipmentGroupStrategy matches a single shipment billed on its ship day.
type exactShipmentGroupStrategy struct{}

func (s *exactShipmentGroupStrategy) Method() Method { return MethodExactShipmentGroup }

func (s *exactShipmentGroupStrategy) Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate {
	amount := txn.ExpenseAmount()
	var out []Candidate

	for _, g := range idx.AllShipmentGroups() {
		shipDate, ok := g.ShipDate()
		if !ok {
			// Unknown ship date: excluded from date comparisons entirely.
			continue
		}
		if !g.Total.Equal(amount) {
			continue
		}
		if dateDeltaDays(txn.Date, shipDate) != 0 {
			continue
		}
		out = append(out, fullCandidate([]*order.Group{g}, s.Method(), Score(amount, g.Total, 0), amount, 0))
	}
	return out
}

// sameDayComboStrategy matches a charge that consolidates several shipment
// groups sharing a ship day. The combination size is capped so a pathological
// account cannot blow up the search.
type sameDayComboStrategy struct {
	cfg Config
}

func (s *sameDayComboStrategy) Method() Method { return MethodMultipleOrdersSameDay }

const comboSizePenalty = 0.02

func (s *sameDayComboStrategy) Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate {
	amount := txn.ExpenseAmount()

	// Bucket in-window shipment groups by ship day.
	byDay := make(map[string][]*order.Group)
	var days []string
	for _, g := range idx.AllShipmentGroups() {
		shipDate, ok := g.ShipDate()
		if !ok {
			continue
		}
		delta := dateDeltaDays(txn.Date, shipDate)
		if delta > s.cfg.DateWindowDays {
			continue
		}
		key := shipDate.Format("2006-01-02")
		if _, seen := byDay[key]; !seen {
			days = append(days, key)
		}
		byDay[key] = append(byDay[key], g)
	}

	var out []Candidate
	for _, day := range days {
		groups := byDay[day]
		if len(groups) < 2 {
			continue
		}
		shipDate, _ := groups[0].ShipDate()
		delta := dateDeltaDays(txn.Date, shipDate)

		for _, combo := range exactSumCombos(groups, amount, s.cfg.MaxComboSize) {
			conf := Score(amount, amount, delta) - comboSizePenalty*float64(len(combo)-1)
			out = append(out, fullCandidate(combo, s.Method(), clampScore(conf), amount, delta))
		}
	}
	return out
}

// exactSumCombos enumerates subsets of size 2..maxSize whose totals equal
// target exactly. Same-day group counts are small, so a direct depth-first
// walk with a running-sum cutoff stays tractable.
func exactSumCombos(groups []*order.Group, target decimal.Decimal, maxSize int) [][]*order.Group {
	var out [][]*order.Group
	var current []*order.Group

	var walk func(start int, sum decimal.Decimal)
	walk = func(start int, sum decimal.Decimal) {
		if len(current) >= 2 && sum.Equal(target) {
			combo := make([]*order.Group, len(current))
			copy(combo, current)
			out = append(out, combo)
			return
		}
		if len(current) >= maxSize || sum.GreaterThan(target) {
			return
		}
		for i := start; i < len(groups); i++ {
			current = append(current, groups[i])
			walk(i+1, sum.Add(groups[i].Total))
			current = current[:len(current)-1]
		}
	}
	walk(0, decimal.Zero)
	return out
}

// dateWindowStrategy relaxes the date constraint to ±N days while keeping
// the amount exact, covering the usual 1-2 day settlement lag.
type dateWindowStrategy struct {
	cfg Config
}

func (s *dateWindowStrategy) Method() Method { return MethodDateWindowMatch }

func (s *dateWindowStrategy) Try(txn ledger.Transaction, idx *order.GroupIndex) []Candidate {
	amount := txn.ExpenseAmount()
	var out []Candidate

	consider := func(g *order.Group, date time.Time) {
		if !g.Total.Equal(amount) {
			return
		}
		delta := dateDeltaDays(txn.Date, date)
		// Same-day matches belong to the exact rungs above.
		if delta < 1 || delta > s.cfg.DateWindowDays {
			return
		}
		out = append(out, fullCandidate([]*order.Group{g}, s.Method(), Score(amount, g.Total, delta), amount, delta))
	}

	for _, g := range idx.OrderGroups() {
		consider(g, g.OrderDate)
	}
	for _, g := range idx.AllShipmentGroups() {
		shipDate, ok := g.ShipDate()
		if !ok {
			continue // unknown ship date never enters a date comparison
		}
		consider(g, shipDate)
	}
	return out
}

// fullCandidate builds a candidate that explains the whole amount.
func fullCandidate(groups []*order.Group, method Method, confidence float64, amount decimal.Decimal, dateDelta int) Candidate {
	return Candidate{
		Groups:     groups,
		Method:     method,
		Confidence: confidence,
		Matched:    amount,
		Unmatched:  decimal.Zero,
		DateDelta:  dateDelta,
	}
}

// dateDeltaDays returns the absolute difference in calendar days, ignoring
// time-of-day and timezone.
func dateDeltaDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	delta := int(da.Sub(db).Hours() / 24)
	if delta < 0 {
		delta = -delta
	}
	return delta
}
