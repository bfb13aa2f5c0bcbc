package repository

import (
	"context"
	"errors"
	"sync"
)

// ErrCounterConflict marks a counter increment that lost a race and may be retried.
var ErrCounterConflict = errors.New("counter update conflicted")

// CounterRepository performs atomic read-increment-write on named sequences.
type CounterRepository interface {
	// Increment returns the counter's next value. A counter that does not exist
	// yet behaves as if it held startValue-1, so its first value is startValue.
	Increment(ctx context.Context, counterID string, startValue int64) (int64, error)
}

type memoryCounterRepository struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounterRepository returns a process-local counter store.
func NewMemoryCounterRepository() CounterRepository {
	return &memoryCounterRepository{values: make(map[string]int64)}
}

func (r *memoryCounterRepository) Increment(ctx context.Context, counterID string, startValue int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.values[counterID]
	if !ok {
		current = startValue - 1
	}
	current++
	r.values[counterID] = current
	return current, nil
}
