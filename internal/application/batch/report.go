package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
)

// Report is the persisted artifact of one batch run: the aggregate summary
// plus the full per-transaction detail.
type Report struct {
	DateRange          ledger.DateRange    `json:"date_range"`
	Summary            Summary             `json:"summary"`
	Results            []TransactionRecord `json:"results"`
	ProcessingMetadata Metadata            `json:"processing_metadata"`
}

// Summary aggregates the run.
type Summary struct {
	TotalTransactions    int             `json:"total_transactions"`
	Matched              int             `json:"matched"`
	Partial              int             `json:"partial"`
	Unmatched            int             `json:"unmatched"`
	MatchRate            float64         `json:"match_rate"`
	AverageConfidence    float64         `json:"average_confidence"`
	TotalAmountMatched   decimal.Decimal `json:"total_amount_matched"`
	TotalAmountUnmatched decimal.Decimal `json:"total_amount_unmatched"`
	StrategyBreakdown    map[string]int  `json:"strategy_breakdown"`
	DroppedLineItems     int             `json:"dropped_line_items"`
}

// TransactionRecord is the per-transaction detail.
type TransactionRecord struct {
	Transaction     TransactionDetail `json:"transaction"`
	Matched         bool              `json:"matched"`
	Orders          []MatchedOrder    `json:"orders"`
	UnmatchedAmount decimal.Decimal   `json:"unmatched_amount"`
	MatchMethod     string            `json:"match_method,omitempty"`
	MatchConfidence float64           `json:"match_confidence"`
}

// TransactionDetail echoes the input transaction fields.
type TransactionDetail struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Payee       string          `json:"payee"`
	AccountName string          `json:"account_name"`
}

// MatchedOrder is one contributing order group in a match.
type MatchedOrder struct {
	OrderID   string          `json:"order_id"`
	Items     []MatchedItem   `json:"items"`
	Total     decimal.Decimal `json:"total"`
	OrderDate string          `json:"order_date"`
}

// MatchedItem is one line item within a matched group.
type MatchedItem struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	ShipDate string          `json:"ship_date,omitempty"`
}

// Metadata records when and how long the run took. Timestamps live only
// here and in the artifact filename; the matching itself is clock-free.
type Metadata struct {
	RunID                 string  `json:"run_id"`
	Timestamp             string  `json:"timestamp"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// ReportWriter persists reports as timestamped JSON files, one per run.
// Existing reports are never overwritten.
type ReportWriter struct {
	dir string
}

// NewReportWriter creates a writer that persists into dir.
func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{dir: dir}
}

// Write persists the report and returns the artifact path. The file is
// written to a temp path and renamed so a crash mid-write never leaves a
// partial report behind.
func (w *ReportWriter) Write(report *Report, at time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	name := fmt.Sprintf("match_report_%s.json", at.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("report %s already exists", path)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, name+".tmp")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize report: %w", err)
	}

	return path, nil
}
