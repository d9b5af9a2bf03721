// Package batch runs the matching engine over a transaction list and
// aggregates the outcome into a single run report.
package batch

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/matcher"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/validator"
)

// Runner iterates transactions sequentially and builds the run report.
// Each transaction's match is independent; the sequential loop exists only
// to keep output ordering deterministic.
type Runner struct {
	engine *matcher.Engine
	writer *ReportWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a batch runner. The writer may be nil when the caller
// only wants the in-memory report.
func NewRunner(engine *matcher.Engine, writer *ReportWriter, logger *slog.Logger) *Runner {
	return &Runner{
		engine: engine,
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

// Run matches every transaction and aggregates the results. Empty inputs
// yield an empty, zero-valued report. An invariant violation from the
// engine aborts the run; no report is produced in that case.
func (r *Runner) Run(txns []ledger.Transaction, idx *order.GroupIndex, rng ledger.DateRange) (*Report, error) {
	started := r.now()

	report := &Report{
		DateRange: rng,
		Summary: Summary{
			StrategyBreakdown:    make(map[string]int),
			TotalAmountMatched:   decimal.Zero,
			TotalAmountUnmatched: decimal.Zero,
		},
		Results: make([]TransactionRecord, 0, len(txns)),
	}
	if idx != nil {
		report.Summary.DroppedLineItems = idx.Dropped
	}

	var confidenceSum float64
	for _, txn := range txns {
		result, err := r.engine.Match(txn, idx)
		if err != nil {
			return nil, fmt.Errorf("match transaction %s: %w", txn.ID, err)
		}

		record := r.buildRecord(result)

		if best := result.Best; best != nil {
			if v := validator.ValidateRecordSums(txn.ID, txn.ExpenseAmount(), best.Matched, best.Unmatched); !v.Valid {
				return nil, fmt.Errorf("report consistency: %s", v.Reason)
			}
		}

		report.Results = append(report.Results, record)

		report.Summary.TotalTransactions++
		confidenceSum += record.MatchConfidence

		magnitude := txn.ExpenseAmount()
		explained := magnitude.Sub(record.UnmatchedAmount)
		report.Summary.TotalAmountMatched = report.Summary.TotalAmountMatched.Add(explained)
		report.Summary.TotalAmountUnmatched = report.Summary.TotalAmountUnmatched.Add(record.UnmatchedAmount)

		switch {
		case result.Matched:
			report.Summary.Matched++
			report.Summary.StrategyBreakdown[record.MatchMethod]++
		case result.Best != nil && result.Best.Method == matcher.MethodSplitPayment && result.Best.Matched.IsPositive():
			report.Summary.Partial++
			report.Summary.StrategyBreakdown[record.MatchMethod]++
		default:
			report.Summary.Unmatched++
		}

		r.logDebug("Processed transaction",
			"transaction_id", txn.ID,
			"matched", result.Matched,
			"method", record.MatchMethod,
			"confidence", record.MatchConfidence)
	}

	if v := validator.ValidateSummaryCounts(report.Summary.TotalTransactions,
		report.Summary.Matched, report.Summary.Partial, report.Summary.Unmatched); !v.Valid {
		return nil, fmt.Errorf("report consistency: %s", v.Reason)
	}

	if report.Summary.TotalTransactions > 0 {
		report.Summary.MatchRate = round2(float64(report.Summary.Matched) / float64(report.Summary.TotalTransactions))
		report.Summary.AverageConfidence = round2(confidenceSum / float64(report.Summary.TotalTransactions))
	}

	report.ProcessingMetadata = Metadata{
		RunID:                 uuid.NewString(),
		Timestamp:             started.UTC().Format(time.RFC3339),
		ProcessingTimeSeconds: r.now().Sub(started).Seconds(),
	}

	r.logInfo("Batch run complete",
		"run_id", report.ProcessingMetadata.RunID,
		"transactions", report.Summary.TotalTransactions,
		"matched", report.Summary.Matched,
		"partial", report.Summary.Partial,
		"unmatched", report.Summary.Unmatched)

	return report, nil
}

// RunAndPersist runs the batch and writes the report artifact, returning
// the report and the artifact path.
func (r *Runner) RunAndPersist(txns []ledger.Transaction, idx *order.GroupIndex, rng ledger.DateRange) (*Report, string, error) {
	report, err := r.Run(txns, idx, rng)
	if err != nil {
		return nil, "", err
	}
	if r.writer == nil {
		return report, "", nil
	}

	path, err := r.writer.Write(report, r.now())
	if err != nil {
		return nil, "", fmt.Errorf("persist report: %w", err)
	}

	r.logInfo("Report written", "path", path)
	return report, path, nil
}

// buildRecord converts an engine result into its report form. The best
// candidate's orders are echoed only when it is the answer (full match or
// partial split); a below-threshold best still surfaces its method and
// confidence for diagnostics.
func (r *Runner) buildRecord(result *matcher.Result) TransactionRecord {
	txn := result.Transaction
	record := TransactionRecord{
		Transaction: TransactionDetail{
			ID:          txn.ID,
			Date:        txn.Date.Format("2006-01-02"),
			Amount:      txn.Amount,
			Payee:       txn.Payee,
			AccountName: txn.AccountName,
		},
		Matched:         result.Matched,
		Orders:          []MatchedOrder{},
		UnmatchedAmount: txn.ExpenseAmount(),
	}

	best := result.Best
	if best == nil {
		return record
	}

	record.MatchMethod = string(best.Method)
	record.MatchConfidence = best.Confidence

	isPartial := best.Method == matcher.MethodSplitPayment && best.Matched.IsPositive()
	if !result.Matched && !isPartial {
		return record
	}

	record.UnmatchedAmount = best.Unmatched
	for _, g := range best.Groups {
		mo := MatchedOrder{
			OrderID:   g.OrderID,
			Total:     g.Total,
			OrderDate: g.OrderDate.Format("2006-01-02"),
		}
		for _, li := range g.Items {
			item := MatchedItem{
				Title:  li.Title,
				Amount: li.LineTotal,
			}
			if li.ShipDate != nil {
				item.ShipDate = li.ShipDate.Format("2006-01-02")
			}
			mo.Items = append(mo.Items, item)
		}
		record.Orders = append(record.Orders, mo)
	}

	return record
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (r *Runner) logDebug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Runner) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
