package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue with the same semantics as RedisQueue.
// It backs unit tests and lets the API run without Redis in development.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	pending []string
	active  map[string]bool
	delayed map[string]time.Time
	notify  chan struct{}
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(map[string]*Job),
		active:  make(map[string]bool),
		delayed: make(map[string]time.Time),
		notify:  make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	job.Status = StatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now
	stored := *job
	q.jobs[job.ID] = &stored
	q.pending = append(q.pending, job.ID)
	q.wake()
	return nil
}

func (q *MemoryQueue) Lease(ctx context.Context, timeout time.Duration) (*Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		if job := q.tryLease(); job != nil {
			return job, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		}
	}
}

func (q *MemoryQueue) tryLease() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 {
		id := q.pending[0]
		q.pending = q.pending[1:]
		job, ok := q.jobs[id]
		if !ok || job.Status.Terminal() {
			continue
		}
		job.Status = StatusActive
		job.Attempt++
		job.UpdatedAt = time.Now()
		q.active[id] = true
		copied := *job
		return &copied
	}
	return nil
}

func (q *MemoryQueue) Complete(_ context.Context, id string, result []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrTerminal
	}
	job.Status = StatusCompleted
	job.Result = result
	job.Progress = 100
	job.UpdatedAt = time.Now()
	delete(q.active, id)
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, id string, msg string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status.Terminal() {
		return false, ErrTerminal
	}
	job.Error = msg
	job.UpdatedAt = time.Now()
	delete(q.active, id)
	if job.Attempt < job.MaxAttempts {
		job.Status = StatusQueued
		q.delayed[id] = time.Now().Add(retryBackoff(job.Attempt))
		return true, nil
	}
	job.Status = StatusFailed
	return false, nil
}

func (q *MemoryQueue) MarkCancelled(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrTerminal
	}
	job.Status = StatusCancelled
	job.UpdatedAt = time.Now()
	delete(q.active, id)
	delete(q.delayed, id)
	for i, pid := range q.pending {
		if pid == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (q *MemoryQueue) SetProgress(_ context.Context, id string, progress int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (q *MemoryQueue) PromoteDelayed(_ context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	promoted := 0
	for id, due := range q.delayed {
		if due.After(now) {
			continue
		}
		delete(q.delayed, id)
		q.pending = append(q.pending, id)
		promoted++
	}
	if promoted > 0 {
		q.wake()
	}
	return promoted, nil
}

func (q *MemoryQueue) Stats(_ context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Queued:  int64(len(q.pending)),
		Active:  int64(len(q.active)),
		Delayed: int64(len(q.delayed)),
	}, nil
}
