package storage

// RunSummary carries the counts recorded when a run completes.
type RunSummary struct {
	TotalTransactions int     `json:"total_transactions"`
	Matched           int     `json:"matched"`
	Partial           int     `json:"partial"`
	Unmatched         int     `json:"unmatched"`
	AverageConfidence float64 `json:"average_confidence"`
}

// MatchRun represents one batch run record.
type MatchRun struct {
	ID                int64   `json:"id"`
	StartedAt         string  `json:"started_at"`
	CompletedAt       string  `json:"completed_at,omitempty"`
	RangeStart        string  `json:"range_start"`
	RangeEnd          string  `json:"range_end"`
	TotalTransactions int     `json:"total_transactions"`
	Matched           int     `json:"matched"`
	Partial           int     `json:"partial"`
	Unmatched         int     `json:"unmatched"`
	AverageConfidence float64 `json:"average_confidence"`
	ReportPath        string  `json:"report_path,omitempty"`
	Status            string  `json:"status"`
	ErrorMessage      string  `json:"error_message,omitempty"`
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Stats contains aggregate statistics across completed runs.
type Stats struct {
	TotalRuns         int     `json:"total_runs"`
	CompletedRuns     int     `json:"completed_runs"`
	FailedRuns        int     `json:"failed_runs"`
	TotalTransactions int     `json:"total_transactions"`
	TotalMatched      int     `json:"total_matched"`
	TotalPartial      int     `json:"total_partial"`
	TotalUnmatched    int     `json:"total_unmatched"`
	MatchRate         float64 `json:"match_rate"`
}
