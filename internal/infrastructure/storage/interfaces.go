package storage

import (
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	TransactionRepository
	LineItemRepository
	MatchRunRepository
	Close() error
}

// TransactionRepository is the ledger cache: reads for the matching core,
// writes only during cache refresh.
type TransactionRepository interface {
	// SaveTransactions upserts cached ledger transactions
	SaveTransactions(txns []ledger.Transaction) error

	// ListTransactions returns cached transactions in the date range,
	// ordered by date then id for deterministic batch iteration
	ListTransactions(rng ledger.DateRange) ([]ledger.Transaction, error)
}

// LineItemRepository stores imported order-history line items
type LineItemRepository interface {
	// SaveLineItems replaces the stored line items for an account.
	// Re-ingestion recreates rows; items are never mutated in place.
	SaveLineItems(accountID string, items []order.LineItem) error

	// ListLineItems returns line items whose order date falls in the range.
	// An empty accountID returns every account. Rows with unparseable
	// dates come back with a zero order date (or nil ship date) so the
	// grouping layer can count and drop them.
	ListLineItems(rng ledger.DateRange, accountID string) ([]order.LineItem, error)
}

// MatchRunRepository tracks batch run bookkeeping
type MatchRunRepository interface {
	// StartMatchRun records the start of a batch run and returns the run ID
	StartMatchRun(rng ledger.DateRange) (int64, error)

	// CompleteMatchRun records a successful run with its summary counts
	CompleteMatchRun(runID int64, summary RunSummary, reportPath string) error

	// FailMatchRun marks a run as aborted
	FailMatchRun(runID int64, reason string) error

	// ListMatchRuns returns recent runs, newest first
	ListMatchRuns(limit int) ([]MatchRun, error)

	// GetMatchRun retrieves a run by ID
	GetMatchRun(runID int64) (*MatchRun, error)

	// GetStats returns aggregate statistics across completed runs
	GetStats() (*Stats, error)
}
