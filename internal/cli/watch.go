package cli

import (
	"context"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// JobPoller fetches the latest state of a background job.
type JobPoller func(ctx context.Context) (model.BatchJobState, error)

// WatchJob polls a job every interval, feeding r, until the job leaves the
// running state or ctx ends. It returns the last state seen.
func WatchJob(ctx context.Context, r *ProgressRenderer, poll JobPoller, interval time.Duration) (model.BatchJobState, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := poll(ctx)
		if err != nil {
			return state, err
		}

		r.Update(engine.Progress{
			Counts:    state.BatchCounts,
			Processed: state.ProcessedTransactions,
			Total:     state.TotalTransactions,
		})
		if state.Status != model.JobRunning {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SummaryFromState converts a finished job state into the batch shape
// FormatBatchSummary renders.
func SummaryFromState(state model.BatchJobState) *model.CategorizationBatch {
	batch := &model.CategorizationBatch{
		BatchCounts:      state.BatchCounts,
		ID:               state.BatchID,
		StartedAt:        state.StartedAt,
		CompletedAt:      state.CompletedAt,
		ErrorMessage:     state.ErrorMessage,
		TransactionCount: state.TotalTransactions,
	}
	if state.CompletedAt != nil {
		batch.DurationMS = state.CompletedAt.Sub(state.StartedAt).Milliseconds()
	}
	return batch
}
