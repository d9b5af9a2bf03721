package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Matching: config.MatchingConfig{
			DateWindowDays: 2,
			MinConfidence:  0.80,
			MaxComboSize:   4,
			MaxSplitGroups: 4,
		},
		Amazon: config.AmazonConfig{AccountName: "erick"},
		Storage: config.StorageConfig{
			ReportsDir: t.TempDir(),
		},
	}
}

func seedRepo(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	ship := day(2024, 7, 7)

	require.NoError(t, repo.SaveTransactions([]ledger.Transaction{
		{ID: "t1", Date: day(2024, 7, 7), Amount: decimal.RequireFromString("-64.60"), Payee: "AMAZON.COM*A"},
		{ID: "t2", Date: day(2024, 7, 8), Amount: decimal.RequireFromString("-55.00"), Payee: "SHELL OIL"},
	}))

	require.NoError(t, repo.SaveLineItems("erick", []order.LineItem{{
		OrderID:   "111-300",
		Title:     "air filter",
		UnitPrice: decimal.RequireFromString("64.60"),
		Quantity:  1,
		LineTotal: decimal.RequireFromString("64.60"),
		OrderDate: ship,
		ShipDate:  &ship,
		AccountID: "erick",
	}}))
}

func TestRunBatch_EndToEnd(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRepo(t, repo)
	svc, err := NewReconService(repo, testConfig(t), nil)
	require.NoError(t, err)

	report, path, err := svc.RunBatch(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.FileExists(t, path)

	// Only the Amazon charge is reconciled; the gas station one is filtered out.
	assert.Equal(t, 1, report.Summary.TotalTransactions)
	assert.Equal(t, 1, report.Summary.Matched)
	assert.Equal(t, 1.0, report.Summary.MatchRate)
}

func TestRunBatch_RecordsCompletedRun(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRepo(t, repo)
	svc, err := NewReconService(repo, testConfig(t), nil)
	require.NoError(t, err)

	_, path, err := svc.RunBatch(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})
	require.NoError(t, err)

	runs, err := repo.ListMatchRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].TotalTransactions)
	assert.Equal(t, 1, runs[0].Matched)
	assert.Equal(t, path, runs[0].ReportPath)
}

func TestRunBatch_EmptyLedgerStillCompletes(t *testing.T) {
	repo := storage.NewMockRepository()
	svc, err := NewReconService(repo, testConfig(t), nil)
	require.NoError(t, err)

	report, _, err := svc.RunBatch(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.TotalTransactions)

	runs, err := repo.ListMatchRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunStatusCompleted, runs[0].Status)
}

func TestRunBatch_WidensOrderQueryByDateWindow(t *testing.T) {
	repo := storage.NewMockRepository()
	// Charge lands on the 1st; the order was placed in the previous month,
	// inside the processing lag window.
	ship := day(2024, 6, 30)
	require.NoError(t, repo.SaveTransactions([]ledger.Transaction{
		{ID: "t1", Date: day(2024, 7, 1), Amount: decimal.RequireFromString("-29.99"), Payee: "AMZN Mktp US"},
	}))
	require.NoError(t, repo.SaveLineItems("erick", []order.LineItem{{
		OrderID:   "111-301",
		Title:     "charger",
		UnitPrice: decimal.RequireFromString("29.99"),
		Quantity:  1,
		LineTotal: decimal.RequireFromString("29.99"),
		OrderDate: ship,
		ShipDate:  &ship,
		AccountID: "erick",
	}}))
	svc, err := NewReconService(repo, testConfig(t), nil)
	require.NoError(t, err)

	report, _, err := svc.RunBatch(ledger.DateRange{Start: day(2024, 7, 1), End: day(2024, 7, 31)})

	require.NoError(t, err)
	require.Equal(t, 1, report.Summary.TotalTransactions)
	assert.Equal(t, 1, report.Summary.Matched)
}

func TestNewReconService_InvalidPatternFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Amazon.PayeePatterns = []string{`ama[zon`}

	_, err := NewReconService(storage.NewMockRepository(), cfg, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "payee filter")
}
