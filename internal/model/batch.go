package model

import "time"

// BatchCounts holds the per-tier outcome counters of a categorization run.
type BatchCounts struct {
	SuccessCount       int `json:"success_count"`
	FailureCount       int `json:"failure_count"`
	SkippedCount       int `json:"skipped_count"`
	RuleMatchCount     int `json:"rule_match_count"`
	DescRuleMatchCount int `json:"desc_rule_match_count"`
	AIMatchCount       int `json:"ai_match_count"`
	AutoRulesCreated   int `json:"auto_rules_created"`
}

// Accounted returns the number of transactions that reached a terminal state.
func (c BatchCounts) Accounted() int {
	return c.RuleMatchCount + c.DescRuleMatchCount + c.AIMatchCount + c.SkippedCount + c.FailureCount
}

// CategorizationBatch is the persisted summary of one categorization run.
type CategorizationBatch struct {
	BatchCounts
	StartedAt        time.Time
	CompletedAt      *time.Time
	ID               string
	ErrorMessage     string
	TransactionCount int
	DurationMS       int64
}

// JobStatus is the lifecycle state of a background categorization job.
type JobStatus string

// Job status constants.
const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// BatchJobState is the in-memory progress of a running or finished job.
// It is never persisted; the CategorizationBatch row holds the final result.
type BatchJobState struct {
	BatchCounts
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	BatchID               string     `json:"batch_id"`
	Status                JobStatus  `json:"status"`
	ErrorMessage          string     `json:"error_message,omitempty"`
	TotalTransactions     int        `json:"total_transactions"`
	ProcessedTransactions int        `json:"processed_transactions"`
}
