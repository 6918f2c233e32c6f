package jobs

import (
	"fmt"
	"sync"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// Registry holds the in-memory state of categorization jobs keyed by batch id.
// States are process-local; the persisted batch record keeps the final result.
type Registry struct {
	jobs map[string]*model.BatchJobState
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*model.BatchJobState)}
}

// Put stores a copy of state, replacing any job with the same batch id.
func (r *Registry) Put(state model.BatchJobState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := snapshot(&state)
	r.jobs[state.BatchID] = &s
}

// Get returns a snapshot of the job, or common.ErrNotFound.
func (r *Registry) Get(batchID string) (model.BatchJobState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.jobs[batchID]
	if !ok {
		return model.BatchJobState{}, fmt.Errorf("job %s: %w", batchID, common.ErrNotFound)
	}
	return snapshot(state), nil
}

// Update mutates a job in place under the write lock.
func (r *Registry) Update(batchID string, fn func(*model.BatchJobState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.jobs[batchID]
	if !ok {
		return fmt.Errorf("job %s: %w", batchID, common.ErrNotFound)
	}
	fn(state)
	return nil
}

// Reset forgets every job.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = make(map[string]*model.BatchJobState)
}

// Len returns the number of known jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func snapshot(state *model.BatchJobState) model.BatchJobState {
	s := *state
	if state.CompletedAt != nil {
		completed := *state.CompletedAt
		s.CompletedAt = &completed
	}
	return s
}
