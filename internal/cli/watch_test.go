package cli

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchJob_UntilCompleted(t *testing.T) {
	states := []model.BatchJobState{
		{BatchID: "b1", Status: model.JobRunning, TotalTransactions: 20},
		{BatchID: "b1", Status: model.JobRunning, TotalTransactions: 20, ProcessedTransactions: 10},
		{BatchID: "b1", Status: model.JobCompleted, TotalTransactions: 20, ProcessedTransactions: 20},
	}
	calls := 0
	poll := func(context.Context) (model.BatchJobState, error) {
		s := states[calls]
		calls++
		return s, nil
	}

	r := NewProgressRenderer(io.Discard, 20)
	final, err := WatchJob(context.Background(), r, poll, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, model.JobCompleted, final.Status)
	assert.Equal(t, 20, r.Last().Processed)
}

func TestWatchJob_PollError(t *testing.T) {
	boom := errors.New("connection refused")
	poll := func(context.Context) (model.BatchJobState, error) {
		return model.BatchJobState{}, boom
	}

	_, err := WatchJob(context.Background(), NewProgressRenderer(io.Discard, 1), poll, time.Millisecond)
	assert.ErrorIs(t, err, boom)
}

func TestWatchJob_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	poll := func(context.Context) (model.BatchJobState, error) {
		cancel()
		return model.BatchJobState{Status: model.JobRunning}, nil
	}

	state, err := WatchJob(ctx, NewProgressRenderer(io.Discard, 1), poll, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.JobRunning, state.Status)
}

func TestSummaryFromState(t *testing.T) {
	started := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(2 * time.Second)
	state := model.BatchJobState{
		BatchID:           "b9",
		Status:            model.JobFailed,
		TotalTransactions: 4,
		StartedAt:         started,
		CompletedAt:       &completed,
		ErrorMessage:      "missing api key",
		BatchCounts:       model.BatchCounts{SkippedCount: 4},
	}

	batch := SummaryFromState(state)
	assert.Equal(t, "b9", batch.ID)
	assert.Equal(t, int64(2000), batch.DurationMS)
	assert.Equal(t, 4, batch.TransactionCount)
	assert.Equal(t, 4, batch.SkippedCount)
	assert.Equal(t, "missing api key", batch.ErrorMessage)
}
