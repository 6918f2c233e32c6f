// Package jobs runs categorization in the background, one job at a time, and
// keeps pollable progress for every job started by this process.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/google/uuid"
)

// ErrJobRunning is returned by Trigger while another job holds the lock.
var ErrJobRunning = common.ErrJobRunning

// Categorizer runs one categorization pass.
type Categorizer interface {
	Run(ctx context.Context, txns []model.Transaction, opts engine.RunOptions, progress engine.ProgressFunc) (*model.CategorizationBatch, error)
}

// TriggerRequest selects what a job categorizes. With no ids every
// uncategorized transaction is used.
type TriggerRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	BatchSize      int      `json:"batchSize"`
}

// TriggerResponse describes a job that was just started.
type TriggerResponse struct {
	BatchID           string          `json:"batchId"`
	Status            model.JobStatus `json:"status"`
	TotalTransactions int             `json:"totalTransactions"`
}

// Runner starts categorization jobs. The lock is held from Trigger until the
// job's goroutine finishes; there is no way to cancel a running job.
type Runner struct {
	store       service.TransactionStore
	categorizer Categorizer
	registry    *Registry
	logger      *slog.Logger
	now         func() time.Time
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// NewRunner creates a Runner. A nil registry gets a fresh one.
func NewRunner(store service.TransactionStore, categorizer Categorizer, registry *Registry, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:       store,
		categorizer: categorizer,
		registry:    registry,
		logger:      logger,
		now:         time.Now,
	}
}

// Trigger starts a job and returns without waiting for it. While a job is
// running it returns ErrJobRunning and records nothing.
func (r *Runner) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResponse, error) {
	if !r.mu.TryLock() {
		return nil, ErrJobRunning
	}
	started := false
	defer func() {
		if !started {
			r.mu.Unlock()
		}
	}()

	txns, err := r.load(ctx, req.TransactionIDs)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, common.ErrNoTransactions
	}

	batchID := uuid.NewString()
	r.registry.Put(model.BatchJobState{
		BatchID:           batchID,
		Status:            model.JobRunning,
		TotalTransactions: len(txns),
		StartedAt:         r.now(),
	})

	r.logger.Info("categorization job started",
		"batch_id", batchID,
		"transactions", len(txns),
		"batch_size", req.BatchSize)

	r.wg.Add(1)
	started = true
	go r.execute(context.WithoutCancel(ctx), batchID, txns, req.BatchSize)

	return &TriggerResponse{
		BatchID:           batchID,
		Status:            model.JobRunning,
		TotalTransactions: len(txns),
	}, nil
}

func (r *Runner) load(ctx context.Context, ids []string) ([]model.Transaction, error) {
	if len(ids) > 0 {
		txns, err := r.store.GetTransactionsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		return txns, nil
	}

	txns, err := r.store.GetUnclassifiedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unclassified transactions: %w", err)
	}
	return txns, nil
}

func (r *Runner) execute(ctx context.Context, batchID string, txns []model.Transaction, batchSize int) {
	defer r.wg.Done()
	defer r.mu.Unlock()

	batch, err := r.run(ctx, batchID, txns, batchSize)

	completed := r.now()
	updateErr := r.registry.Update(batchID, func(s *model.BatchJobState) {
		s.CompletedAt = &completed
		if batch != nil {
			s.BatchCounts = batch.BatchCounts
			s.ProcessedTransactions = batch.Accounted()
		}
		if err != nil {
			s.Status = model.JobFailed
			s.ErrorMessage = err.Error()
			return
		}
		s.Status = model.JobCompleted
	})
	if updateErr != nil {
		r.logger.Warn("job state vanished before completion", "batch_id", batchID, "error", updateErr)
	}

	if err != nil {
		r.logger.Error("categorization job failed", "batch_id", batchID, "error", err)
		return
	}
	r.logger.Info("categorization job completed", "batch_id", batchID)
}

// run invokes the categorizer, turning a panic into a job failure.
func (r *Runner) run(ctx context.Context, batchID string, txns []model.Transaction, batchSize int) (batch *model.CategorizationBatch, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("categorization panicked: %v", p)
		}
	}()

	return r.categorizer.Run(ctx, txns, engine.RunOptions{BatchID: batchID, BatchSize: batchSize}, func(p engine.Progress) {
		_ = r.registry.Update(batchID, func(s *model.BatchJobState) {
			s.BatchCounts = p.Counts
			s.ProcessedTransactions = p.Processed
		})
	})
}

// Progress returns a snapshot of a job, or common.ErrNotFound.
func (r *Runner) Progress(batchID string) (model.BatchJobState, error) {
	return r.registry.Get(batchID)
}

// UnclassifiedCount returns how many transactions have no category.
func (r *Runner) UnclassifiedCount(ctx context.Context) (int, error) {
	return r.store.CountUnclassifiedTransactions(ctx)
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

var _ Categorizer = (*engine.Categorizer)(nil)
