package jobrepo

import (
	"context"
	"sync"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

const defaultCapacity = 500

// MemoryRepository keeps the most recent jobs in a bounded in-memory list.
type MemoryRepository struct {
	mu       sync.RWMutex
	capacity int
	jobs     []bot.Job
}

// NewMemoryRepository constructs a repo holding at most capacity jobs.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRepository{capacity: capacity}
}

// Save implements bot.JobRepository.
func (r *MemoryRepository) Save(_ context.Context, job bot.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	if overflow := len(r.jobs) - r.capacity; overflow > 0 {
		r.jobs = append([]bot.Job(nil), r.jobs[overflow:]...)
	}
	return nil
}

// ListRecent returns up to limit jobs, newest first.
func (r *MemoryRepository) ListRecent(_ context.Context, limit int) ([]bot.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit = normalizeLimit(limit)
	out := make([]bot.Job, 0, min(limit, len(r.jobs)))
	for i := len(r.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.jobs[i])
	}
	return out, nil
}

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

var _ bot.JobRepository = (*MemoryRepository)(nil)
