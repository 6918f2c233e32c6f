package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	completed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Put(model.BatchJobState{BatchID: "b1", Status: model.JobRunning, TotalTransactions: 5, CompletedAt: &completed})

	snap, err := r.Get("b1")
	require.NoError(t, err)
	snap.Status = model.JobFailed
	snap.TotalTransactions = 99
	*snap.CompletedAt = completed.Add(time.Hour)

	again, err := r.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, again.Status)
	assert.Equal(t, 5, again.TotalTransactions)
	assert.True(t, again.CompletedAt.Equal(completed))
}

func TestRegistry_UpdateAndReset(t *testing.T) {
	r := NewRegistry()
	r.Put(model.BatchJobState{BatchID: "b1", Status: model.JobRunning})

	require.NoError(t, r.Update("b1", func(s *model.BatchJobState) {
		s.ProcessedTransactions = 3
		s.AIMatchCount = 2
	}))
	got, err := r.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ProcessedTransactions)
	assert.Equal(t, 2, got.AIMatchCount)

	assert.ErrorIs(t, r.Update("nope", func(*model.BatchJobState) {}), common.ErrNotFound)

	r.Reset()
	assert.Zero(t, r.Len())
	_, err = r.Get("b1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	r.Put(model.BatchJobState{BatchID: "b1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Update("b1", func(s *model.BatchJobState) { s.ProcessedTransactions++ })
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Get("b1")
		}()
	}
	wg.Wait()

	got, err := r.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.ProcessedTransactions)
}
