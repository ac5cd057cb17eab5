package models

import "time"

// ResultStatus tags the outcome of one pipeline stage
type ResultStatus string

const (
	ResultOK     ResultStatus = "ok"
	ResultEmpty  ResultStatus = "empty"
	ResultFailed ResultStatus = "failed"
)

// StageResult is the tagged outcome of a stage: Ok(count) | Empty | Failed(reason)
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   ResultStatus  `json:"status"`
	Count    int           `json:"count"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK builds a successful result; a zero count is reported as Empty
func OK(stage string, count int) StageResult {
	if count == 0 {
		return StageResult{Stage: stage, Status: ResultEmpty}
	}
	return StageResult{Stage: stage, Status: ResultOK, Count: count}
}

// Failed builds a failed result carrying the reason; its count is always zero
func Failed(stage string, err error) StageResult {
	reason := "unknown failure"
	if err != nil {
		reason = err.Error()
	}
	return StageResult{Stage: stage, Status: ResultFailed, Reason: reason}
}

// Skipped builds an Empty result for a stage that did not need to run
func Skipped(stage, reason string) StageResult {
	return StageResult{Stage: stage, Status: ResultEmpty, Reason: reason}
}

// MarketStats summarises the collect stage
type MarketStats struct {
	APIRecords         int  `json:"api_records"`
	WebRecords         int  `json:"enam_records"`
	TotalMarketRecords int  `json:"total_market_records"`
	BackupInvoked      bool `json:"backup_invoked"`
}

// ValidationStats summarises the advisory quality pass
type ValidationStats struct {
	Total    int `json:"total_records"`
	Invalid  int `json:"invalid_records"`
	Outliers int `json:"outliers"`
}

// Valid returns the number of records that passed every check
func (v ValidationStats) Valid() int {
	return v.Total - v.Invalid
}

// Report is the summary returned by one pipeline invocation
type Report struct {
	RunID      string          `json:"run_id"`
	Commodity  string          `json:"commodity,omitempty"`
	States     []string        `json:"states,omitempty"`
	Market     MarketStats     `json:"market"`
	Weather    int             `json:"weather"`
	News       int             `json:"news"`
	Validation ValidationStats `json:"validation"`
	Stages     []StageResult   `json:"stages"`
	StartedAt  time.Time       `json:"started_at"`
	Duration   time.Duration   `json:"duration"`
}
