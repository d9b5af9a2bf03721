// Command match-run executes one batch reconciliation of cached Amazon
// charges against imported order history and writes the run report.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/amazon-recon-backend/internal/application/service"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/logging"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/storage"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		configFile string
		startStr   string
		endStr     string
		verbose    bool
	)
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&startStr, "start", "", "Range start date (YYYY-MM-DD, default 30 days ago)")
	flag.StringVar(&endStr, "end", "", "Range end date (YYYY-MM-DD, default today)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	_ = godotenv.Load()

	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", configFile, err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrEnv()
	}
	if verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "match")

	rng, err := parseRange(startStr, endStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to open storage", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc, err := service.NewReconService(repo, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize recon service", "error", err)
		os.Exit(1)
	}

	report, path, err := svc.RunBatch(rng)
	if err != nil {
		logger.Error("Batch run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Run %s complete\n", report.ProcessingMetadata.RunID)
	fmt.Printf("  transactions: %d\n", report.Summary.TotalTransactions)
	fmt.Printf("  matched:      %d\n", report.Summary.Matched)
	fmt.Printf("  partial:      %d\n", report.Summary.Partial)
	fmt.Printf("  unmatched:    %d\n", report.Summary.Unmatched)
	fmt.Printf("  match rate:   %.0f%%\n", report.Summary.MatchRate*100)
	fmt.Printf("  report:       %s\n", path)
}

func parseRange(startStr, endStr string) (ledger.DateRange, error) {
	now := time.Now().UTC()
	rng := ledger.DateRange{
		Start: now.AddDate(0, 0, -30),
		End:   now,
	}

	if startStr != "" {
		start, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return rng, fmt.Errorf("invalid -start date %q: %v", startStr, err)
		}
		rng.Start = start
	}
	if endStr != "" {
		end, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return rng, fmt.Errorf("invalid -end date %q: %v", endStr, err)
		}
		rng.End = end
	}
	if rng.End.Before(rng.Start) {
		return rng, fmt.Errorf("range end %s is before start %s",
			rng.End.Format(dateLayout), rng.Start.Format(dateLayout))
	}
	return rng, nil
}
