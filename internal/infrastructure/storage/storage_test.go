package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "recon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactions_SaveAndListByRange(t *testing.T) {
	s := openTestStorage(t)

	txns := []ledger.Transaction{
		{ID: "t1", Date: day(2024, 7, 7), Amount: decimal.RequireFromString("-64.60"), Payee: "AMAZON.COM*A", AccountName: "Prime Visa"},
		{ID: "t2", Date: day(2024, 7, 20), Amount: decimal.RequireFromString("-100.00"), Payee: "AMZN Mktp US", AccountName: "Prime Visa"},
		{ID: "t3", Date: day(2024, 8, 2), Amount: decimal.RequireFromString("-12.34"), Payee: "AMAZON.COM*B", AccountName: "Prime Visa"},
	}
	require.NoError(t, s.SaveTransactions(txns))

	got, err := s.ListTransactions(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("-64.60")))
	assert.Equal(t, day(2024, 7, 7), got[0].Date)
	assert.Equal(t, "AMAZON.COM*A", got[0].Payee)
	assert.Equal(t, "t2", got[1].ID)
}

func TestTransactions_SaveIsUpsert(t *testing.T) {
	s := openTestStorage(t)

	first := []ledger.Transaction{{ID: "t1", Date: day(2024, 7, 7), Amount: decimal.RequireFromString("-10.00"), Payee: "AMAZON.COM"}}
	require.NoError(t, s.SaveTransactions(first))

	updated := []ledger.Transaction{{ID: "t1", Date: day(2024, 7, 7), Amount: decimal.RequireFromString("-12.50"), Payee: "AMAZON.COM"}}
	require.NoError(t, s.SaveTransactions(updated))

	got, err := s.ListTransactions(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("-12.50")))
}

func TestLineItems_RoundTripPreservesAmountsAndDates(t *testing.T) {
	s := openTestStorage(t)
	ship := day(2024, 7, 27)

	items := []order.LineItem{
		{
			OrderID:   "111-100",
			Title:     "desk",
			UnitPrice: decimal.RequireFromString("452.19"),
			Quantity:  1,
			LineTotal: decimal.RequireFromString("452.19"),
			OrderDate: day(2024, 7, 25),
			ShipDate:  &ship,
		},
		{
			OrderID:   "111-100",
			Title:     "backordered lamp",
			UnitPrice: decimal.RequireFromString("26.24"),
			Quantity:  1,
			LineTotal: decimal.RequireFromString("26.24"),
			OrderDate: day(2024, 7, 25),
			ShipDate:  nil,
		},
	}
	require.NoError(t, s.SaveLineItems("erick", items))

	got, err := s.ListLineItems(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)}, "erick")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "desk", got[0].Title)
	assert.True(t, got[0].LineTotal.Equal(decimal.RequireFromString("452.19")))
	assert.Equal(t, day(2024, 7, 25), got[0].OrderDate)
	require.NotNil(t, got[0].ShipDate)
	assert.Equal(t, ship, *got[0].ShipDate)
	assert.Equal(t, "erick", got[0].AccountID)

	// Unshipped items keep a nil ship date through the round trip.
	assert.Nil(t, got[1].ShipDate)
}

func TestLineItems_SaveReplacesAccountScope(t *testing.T) {
	s := openTestStorage(t)

	stale := []order.LineItem{{
		OrderID: "111-old", Title: "old", UnitPrice: decimal.RequireFromString("5.00"),
		Quantity: 1, LineTotal: decimal.RequireFromString("5.00"), OrderDate: day(2024, 7, 1),
	}}
	require.NoError(t, s.SaveLineItems("erick", stale))

	otherAccount := []order.LineItem{{
		OrderID: "111-keep", Title: "keep", UnitPrice: decimal.RequireFromString("7.00"),
		Quantity: 1, LineTotal: decimal.RequireFromString("7.00"), OrderDate: day(2024, 7, 1),
	}}
	require.NoError(t, s.SaveLineItems("spouse", otherAccount))

	fresh := []order.LineItem{{
		OrderID: "111-new", Title: "new", UnitPrice: decimal.RequireFromString("9.00"),
		Quantity: 1, LineTotal: decimal.RequireFromString("9.00"), OrderDate: day(2024, 7, 2),
	}}
	require.NoError(t, s.SaveLineItems("erick", fresh))

	rng := ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)}

	mine, err := s.ListLineItems(rng, "erick")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "111-new", mine[0].OrderID)

	theirs, err := s.ListLineItems(rng, "spouse")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "111-keep", theirs[0].OrderID)

	all, err := s.ListLineItems(rng, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMatchRun_Lifecycle(t *testing.T) {
	s := openTestStorage(t)
	rng := ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)}

	runID, err := s.StartMatchRun(rng)
	require.NoError(t, err)

	run, err := s.GetMatchRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Equal(t, "2024-07-01", run.RangeStart)
	assert.Equal(t, "2024-07-31", run.RangeEnd)
	assert.Empty(t, run.CompletedAt)

	summary := RunSummary{TotalTransactions: 3, Matched: 1, Partial: 1, Unmatched: 1, AverageConfidence: 0.54}
	require.NoError(t, s.CompleteMatchRun(runID, summary, "/tmp/reports/match_report_x.json"))

	run, err = s.GetMatchRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.TotalTransactions)
	assert.Equal(t, 1, run.Matched)
	assert.Equal(t, 1, run.Partial)
	assert.Equal(t, 1, run.Unmatched)
	assert.Equal(t, 0.54, run.AverageConfidence)
	assert.Equal(t, "/tmp/reports/match_report_x.json", run.ReportPath)
	assert.NotEmpty(t, run.CompletedAt)
}

func TestMatchRun_FailureRecordsReason(t *testing.T) {
	s := openTestStorage(t)

	runID, err := s.StartMatchRun(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})
	require.NoError(t, err)

	require.NoError(t, s.FailMatchRun(runID, "report consistency: counts do not partition"))

	run, err := s.GetMatchRun(runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "report consistency")
}

func TestMatchRun_GetMissingReturnsNil(t *testing.T) {
	s := openTestStorage(t)

	run, err := s.GetMatchRun(9999)

	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestListMatchRuns_NewestFirstWithLimit(t *testing.T) {
	s := openTestStorage(t)
	rng := ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)}

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.StartMatchRun(rng)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.ListMatchRuns(2)
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestGetStats_AggregatesAcrossRuns(t *testing.T) {
	s := openTestStorage(t)
	rng := ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)}

	completed, err := s.StartMatchRun(rng)
	require.NoError(t, err)
	require.NoError(t, s.CompleteMatchRun(completed,
		RunSummary{TotalTransactions: 4, Matched: 3, Partial: 0, Unmatched: 1, AverageConfidence: 0.9}, ""))

	failed, err := s.StartMatchRun(rng)
	require.NoError(t, err)
	require.NoError(t, s.FailMatchRun(failed, "boom"))

	stats, err := s.GetStats()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.CompletedRuns)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.Equal(t, 4, stats.TotalTransactions)
	assert.Equal(t, 3, stats.TotalMatched)
	assert.Equal(t, 1, stats.TotalUnmatched)
	assert.Equal(t, 0.75, stats.MatchRate)
}
