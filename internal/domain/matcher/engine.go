// Package matcher decides which Amazon order groups explain a card charge.
//
// The engine runs a ladder of strategies in priority order, from strict
// same-day exact matches down to partial split matches. Every rung is
// evaluated and every candidate is kept, so the final report can show what
// was considered even for transactions that matched on the first rung.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultConfig(), logger)
//	result, err := engine.Match(txn, groupIndex)
//	if result.Matched {
//		best := result.Best
//	}
package matcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// ErrAmountInvariant indicates a candidate whose matched and unmatched parts
// do not sum to the transaction amount. That is an arithmetic bug, not a data
// problem, and the batch must fail loudly rather than report it.
var ErrAmountInvariant = errors.New("matched + unmatched does not equal transaction amount")

// Engine runs the strategy ladder for one transaction at a time. It holds no
// per-transaction state, so a single Engine is safe to reuse across a batch.
type Engine struct {
	config     Config
	strategies []Strategy
	logger     *slog.Logger
}

// NewEngine creates an engine with the default strategy ladder.
func NewEngine(config Config, logger *slog.Logger) *Engine {
	return &Engine{
		config:     config,
		strategies: defaultStrategies(config),
		logger:     logger,
	}
}

// Match runs every strategy against the transaction and selects the best
// candidate. An account with no orders in range yields an unmatched result,
// not an error. The only error path is an arithmetic invariant violation.
func (e *Engine) Match(txn ledger.Transaction, idx *order.GroupIndex) (*Result, error) {
	result := &Result{Transaction: txn}

	if idx == nil || idx.OrderCount() == 0 {
		return result, nil
	}

	amount := txn.ExpenseAmount()
	for _, strategy := range e.strategies {
		candidates := strategy.Try(txn, idx)
		for _, c := range candidates {
			if !c.Matched.Add(c.Unmatched).Equal(amount) {
				return nil, fmt.Errorf("%w: method=%s matched=%s unmatched=%s amount=%s",
					ErrAmountInvariant, c.Method, c.Matched, c.Unmatched, amount)
			}
		}
		if len(candidates) > 0 {
			e.logDebug("Strategy produced candidates",
				"transaction_id", txn.ID,
				"method", string(strategy.Method()),
				"count", len(candidates))
		}
		result.Candidates = append(result.Candidates, candidates...)
	}

	if len(result.Candidates) == 0 {
		return result, nil
	}

	sortCandidates(result.Candidates)
	result.Best = &result.Candidates[0]
	result.Matched = result.Best.Confidence >= e.config.MinConfidence

	return result, nil
}

// sortCandidates orders candidates best-first: highest confidence, then
// order level over shipment level, then smallest date delta, then fewest
// groups, then lexical order id for determinism.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Level() != b.Level() {
			return a.Level() == order.LevelOrder
		}
		if a.DateDelta != b.DateDelta {
			return a.DateDelta < b.DateDelta
		}
		if len(a.Groups) != len(b.Groups) {
			return len(a.Groups) < len(b.Groups)
		}
		return a.Groups[0].OrderID < b.Groups[0].OrderID
	})
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
