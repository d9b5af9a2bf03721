package storage

import (
	"sort"
	"sync"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

// MockRepository is an in-memory Repository for tests.
type MockRepository struct {
	mu        sync.Mutex
	txns      map[string]ledger.Transaction
	lineItems map[string][]order.LineItem // by account id
	runs      []MatchRun
	nextRunID int64
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		txns:      make(map[string]ledger.Transaction),
		lineItems: make(map[string][]order.LineItem),
		nextRunID: 1,
	}
}

func (m *MockRepository) Close() error { return nil }

func (m *MockRepository) SaveTransactions(txns []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range txns {
		m.txns[t.ID] = t
	}
	return nil
}

func (m *MockRepository) ListTransactions(rng ledger.DateRange) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.Transaction
	for _, t := range m.txns {
		if rng.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockRepository) SaveLineItems(accountID string, items []order.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineItems[accountID] = append([]order.LineItem(nil), items...)
	return nil
}

func (m *MockRepository) ListLineItems(rng ledger.DateRange, accountID string) ([]order.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []order.LineItem
	for account, items := range m.lineItems {
		if accountID != "" && account != accountID {
			continue
		}
		for _, li := range items {
			if rng.Contains(li.OrderDate) {
				out = append(out, li)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (m *MockRepository) StartMatchRun(rng ledger.DateRange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := MatchRun{
		ID:         m.nextRunID,
		RangeStart: rng.Start.Format(dateLayout),
		RangeEnd:   rng.End.Format(dateLayout),
		Status:     RunStatusRunning,
	}
	m.nextRunID++
	m.runs = append(m.runs, run)
	return run.ID, nil
}

func (m *MockRepository) CompleteMatchRun(runID int64, summary RunSummary, reportPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == runID {
			m.runs[i].TotalTransactions = summary.TotalTransactions
			m.runs[i].Matched = summary.Matched
			m.runs[i].Partial = summary.Partial
			m.runs[i].Unmatched = summary.Unmatched
			m.runs[i].AverageConfidence = summary.AverageConfidence
			m.runs[i].ReportPath = reportPath
			m.runs[i].Status = RunStatusCompleted
		}
	}
	return nil
}

func (m *MockRepository) FailMatchRun(runID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == runID {
			m.runs[i].Status = RunStatusFailed
			m.runs[i].ErrorMessage = reason
		}
	}
	return nil
}

func (m *MockRepository) ListMatchRuns(limit int) ([]MatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	out := make([]MatchRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockRepository) GetMatchRun(runID int64) (*MatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == runID {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats Stats
	for _, r := range m.runs {
		stats.TotalRuns++
		switch r.Status {
		case RunStatusCompleted:
			stats.CompletedRuns++
		case RunStatusFailed:
			stats.FailedRuns++
		}
		stats.TotalTransactions += r.TotalTransactions
		stats.TotalMatched += r.Matched
		stats.TotalPartial += r.Partial
		stats.TotalUnmatched += r.Unmatched
	}
	if stats.TotalTransactions > 0 {
		stats.MatchRate = float64(stats.TotalMatched) / float64(stats.TotalTransactions)
	}
	return &stats, nil
}
