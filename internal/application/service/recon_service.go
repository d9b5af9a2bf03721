// Package service wires storage, filtering, grouping, and the matching
// engine into the batch reconciliation workflow used by the binaries and
// the API.
package service

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/amazon-recon-backend/internal/application/batch"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/matcher"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/order"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/storage"
)

// ReconService runs batch reconciliations end to end: load the cached
// ledger, keep the Amazon charges, build the order group indexes, match,
// persist the report, and record the run.
type ReconService struct {
	repo   storage.Repository
	cfg    *config.Config
	filter *ledger.PayeeFilter
	logger *slog.Logger
}

// NewReconService creates a recon service. It fails only on an invalid
// payee pattern set, which is a configuration defect.
func NewReconService(repo storage.Repository, cfg *config.Config, logger *slog.Logger) (*ReconService, error) {
	filter, err := ledger.NewPayeeFilter(cfg.Amazon.PayeePatterns)
	if err != nil {
		return nil, fmt.Errorf("build payee filter: %w", err)
	}

	return &ReconService{
		repo:   repo,
		cfg:    cfg,
		filter: filter,
		logger: logger,
	}, nil
}

// RunBatch performs one full reconciliation over the date range and returns
// the report plus the persisted artifact path. A failed run is recorded as
// failed in storage and no report artifact is written.
func (s *ReconService) RunBatch(rng ledger.DateRange) (*batch.Report, string, error) {
	runID, err := s.repo.StartMatchRun(rng)
	if err != nil {
		return nil, "", fmt.Errorf("start match run: %w", err)
	}

	report, path, err := s.runBatch(rng)
	if err != nil {
		if failErr := s.repo.FailMatchRun(runID, err.Error()); failErr != nil {
			s.logWarn("Failed to record run failure", "run_id", runID, "error", failErr)
		}
		return nil, "", err
	}

	summary := storage.RunSummary{
		TotalTransactions: report.Summary.TotalTransactions,
		Matched:           report.Summary.Matched,
		Partial:           report.Summary.Partial,
		Unmatched:         report.Summary.Unmatched,
		AverageConfidence: report.Summary.AverageConfidence,
	}
	if err := s.repo.CompleteMatchRun(runID, summary, path); err != nil {
		return nil, "", fmt.Errorf("record match run: %w", err)
	}

	return report, path, nil
}

func (s *ReconService) runBatch(rng ledger.DateRange) (*batch.Report, string, error) {
	txns, err := s.repo.ListTransactions(rng)
	if err != nil {
		return nil, "", fmt.Errorf("load transactions: %w", err)
	}
	amazonTxns := s.filter.Filter(txns)

	s.logInfo("Loaded ledger cache",
		"transactions", len(txns),
		"amazon_transactions", len(amazonTxns))

	// Orders can predate their charge by the processing lag, so widen the
	// order query by the date window on both ends.
	orderRange := ledger.DateRange{
		Start: rng.Start.AddDate(0, 0, -s.cfg.Matching.DateWindowDays),
		End:   rng.End.AddDate(0, 0, s.cfg.Matching.DateWindowDays),
	}
	items, err := s.repo.ListLineItems(orderRange, s.cfg.Amazon.AccountName)
	if err != nil {
		return nil, "", fmt.Errorf("load order line items: %w", err)
	}

	idx := order.BuildIndex(items)
	if idx.Dropped > 0 {
		s.logWarn("Dropped malformed line items", "count", idx.Dropped)
	}

	engine := matcher.NewEngine(s.matcherConfig(), s.logger)
	writer := batch.NewReportWriter(s.cfg.Storage.ReportsDir)
	runner := batch.NewRunner(engine, writer, s.logger)

	return runner.RunAndPersist(amazonTxns, idx, rng)
}

func (s *ReconService) matcherConfig() matcher.Config {
	cfg := matcher.DefaultConfig()
	if s.cfg.Matching.DateWindowDays > 0 {
		cfg.DateWindowDays = s.cfg.Matching.DateWindowDays
	}
	if s.cfg.Matching.MinConfidence > 0 {
		cfg.MinConfidence = s.cfg.Matching.MinConfidence
	}
	if s.cfg.Matching.MaxComboSize > 0 {
		cfg.MaxComboSize = s.cfg.Matching.MaxComboSize
	}
	if s.cfg.Matching.MaxSplitGroups > 0 {
		cfg.MaxSplitGroups = s.cfg.Matching.MaxSplitGroups
	}
	if s.cfg.Matching.SplitConfidenceCap > 0 {
		cfg.SplitConfidenceCap = s.cfg.Matching.SplitConfidenceCap
	}
	return cfg
}

func (s *ReconService) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *ReconService) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
