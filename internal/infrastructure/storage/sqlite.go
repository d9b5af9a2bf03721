// Package storage provides SQLite-backed persistence for the ledger cache,
// imported order line items, and batch run bookkeeping.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

const dateLayout = "2006-01-02"

// Storage provides SQLite database access.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id           TEXT PRIMARY KEY,
		date         TEXT NOT NULL,
		amount       TEXT NOT NULL,
		payee        TEXT NOT NULL DEFAULT '',
		account_name TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

	CREATE TABLE IF NOT EXISTS order_line_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id   TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		unit_price TEXT NOT NULL DEFAULT '0',
		quantity   INTEGER NOT NULL DEFAULT 1,
		line_total TEXT NOT NULL DEFAULT '0',
		order_date TEXT NOT NULL,
		ship_date  TEXT,
		account_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_line_items_order_date ON order_line_items(order_date);
	CREATE INDEX IF NOT EXISTS idx_line_items_account ON order_line_items(account_id);

	CREATE TABLE IF NOT EXISTS match_runs (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at         TEXT NOT NULL,
		completed_at       TEXT,
		range_start        TEXT NOT NULL,
		range_end          TEXT NOT NULL,
		total_transactions INTEGER NOT NULL DEFAULT 0,
		matched            INTEGER NOT NULL DEFAULT 0,
		partial            INTEGER NOT NULL DEFAULT 0,
		unmatched          INTEGER NOT NULL DEFAULT 0,
		average_confidence REAL NOT NULL DEFAULT 0,
		report_path        TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'running',
		error_message      TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// SaveTransactions upserts cached ledger transactions
func (s *Storage) SaveTransactions(txns []ledger.Transaction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO transactions (id, date, amount, payee, account_name)
	VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range txns {
		if _, err := stmt.Exec(t.ID, t.Date.Format(dateLayout), t.Amount.String(), t.Payee, t.AccountName); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// ListTransactions returns cached transactions in the date range
func (s *Storage) ListTransactions(rng ledger.DateRange) ([]ledger.Transaction, error) {
	rows, err := s.db.Query(`
	SELECT id, date, amount, payee, account_name
	FROM transactions
	WHERE date >= ? AND date <= ?
	ORDER BY date, id`,
		rng.Start.Format(dateLayout), rng.End.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		var dateStr, amountStr string
		if err := rows.Scan(&t.ID, &dateStr, &amountStr, &t.Payee, &t.AccountName); err != nil {
			return nil, err
		}
		t.Date, _ = time.Parse(dateLayout, dateStr)
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for transaction %s: %w", t.ID, err)
		}
		t.Amount = amount
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// SaveLineItems replaces the stored line items for an account
func (s *Storage) SaveLineItems(accountID string, items []order.LineItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM order_line_items WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("clear line items for %s: %w", accountID, err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO order_line_items
	(order_id, title, unit_price, quantity, line_total, order_date, ship_date, account_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, li := range items {
		var shipDate any
		if li.ShipDate != nil {
			shipDate = li.ShipDate.Format(dateLayout)
		}
		if _, err := stmt.Exec(
			li.OrderID, li.Title, li.UnitPrice.String(), li.Quantity,
			li.LineTotal.String(), li.OrderDate.Format(dateLayout), shipDate, accountID,
		); err != nil {
			return fmt.Errorf("save line item for order %s: %w", li.OrderID, err)
		}
	}

	return tx.Commit()
}

// ListLineItems returns line items whose order date falls in the range
func (s *Storage) ListLineItems(rng ledger.DateRange, accountID string) ([]order.LineItem, error) {
	query := `
	SELECT order_id, title, unit_price, quantity, line_total, order_date, ship_date, account_id
	FROM order_line_items
	WHERE order_date >= ? AND order_date <= ?`
	args := []any{rng.Start.Format(dateLayout), rng.End.Format(dateLayout)}
	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY order_id, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.LineItem
	for rows.Next() {
		var li order.LineItem
		var unitPrice, lineTotal, orderDate string
		var shipDate sql.NullString
		if err := rows.Scan(&li.OrderID, &li.Title, &unitPrice, &li.Quantity,
			&lineTotal, &orderDate, &shipDate, &li.AccountID); err != nil {
			return nil, err
		}

		// Unparseable dates surface as zero/nil; the grouper drops and
		// counts them instead of coercing to today.
		li.OrderDate, _ = time.Parse(dateLayout, orderDate)
		if shipDate.Valid {
			if d, err := time.Parse(dateLayout, shipDate.String); err == nil {
				li.ShipDate = &d
			}
		}

		if li.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("corrupt unit price for order %s: %w", li.OrderID, err)
		}
		if li.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, fmt.Errorf("corrupt line total for order %s: %w", li.OrderID, err)
		}

		items = append(items, li)
	}
	return items, rows.Err()
}

// StartMatchRun records the start of a batch run
func (s *Storage) StartMatchRun(rng ledger.DateRange) (int64, error) {
	result, err := s.db.Exec(`
	INSERT INTO match_runs (started_at, range_start, range_end, status)
	VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		rng.Start.Format(dateLayout), rng.End.Format(dateLayout),
		RunStatusRunning)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteMatchRun records a successful run
func (s *Storage) CompleteMatchRun(runID int64, summary RunSummary, reportPath string) error {
	_, err := s.db.Exec(`
	UPDATE match_runs
	SET completed_at = ?, total_transactions = ?, matched = ?, partial = ?,
	    unmatched = ?, average_confidence = ?, report_path = ?, status = ?
	WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		summary.TotalTransactions, summary.Matched, summary.Partial,
		summary.Unmatched, summary.AverageConfidence, reportPath,
		RunStatusCompleted, runID)
	return err
}

// FailMatchRun marks a run as aborted
func (s *Storage) FailMatchRun(runID int64, reason string) error {
	_, err := s.db.Exec(`
	UPDATE match_runs
	SET completed_at = ?, status = ?, error_message = ?
	WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), RunStatusFailed, reason, runID)
	return err
}

// ListMatchRuns returns recent runs, newest first
func (s *Storage) ListMatchRuns(limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
	SELECT id, started_at, COALESCE(completed_at, ''), range_start, range_end,
	       total_transactions, matched, partial, unmatched, average_confidence,
	       report_path, status, error_message
	FROM match_runs
	ORDER BY id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []MatchRun
	for rows.Next() {
		var r MatchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.CompletedAt, &r.RangeStart, &r.RangeEnd,
			&r.TotalTransactions, &r.Matched, &r.Partial, &r.Unmatched,
			&r.AverageConfidence, &r.ReportPath, &r.Status, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetMatchRun retrieves a run by ID
func (s *Storage) GetMatchRun(runID int64) (*MatchRun, error) {
	var r MatchRun
	err := s.db.QueryRow(`
	SELECT id, started_at, COALESCE(completed_at, ''), range_start, range_end,
	       total_transactions, matched, partial, unmatched, average_confidence,
	       report_path, status, error_message
	FROM match_runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.StartedAt, &r.CompletedAt, &r.RangeStart, &r.RangeEnd,
			&r.TotalTransactions, &r.Matched, &r.Partial, &r.Unmatched,
			&r.AverageConfidence, &r.ReportPath, &r.Status, &r.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetStats returns aggregate statistics across runs
func (s *Storage) GetStats() (*Stats, error) {
	var stats Stats
	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(total_transactions), 0),
	       COALESCE(SUM(matched), 0),
	       COALESCE(SUM(partial), 0),
	       COALESCE(SUM(unmatched), 0)
	FROM match_runs`).
		Scan(&stats.TotalRuns, &stats.CompletedRuns, &stats.FailedRuns,
			&stats.TotalTransactions, &stats.TotalMatched, &stats.TotalPartial,
			&stats.TotalUnmatched)
	if err != nil {
		return nil, err
	}

	if stats.TotalTransactions > 0 {
		stats.MatchRate = float64(stats.TotalMatched) / float64(stats.TotalTransactions)
	}
	return &stats, nil
}
