// Package cancel tracks which generation requests have been flagged for
// abort. Workers poll the registry at safe points; there is no preemptive
// interrupt of an in-flight upstream call.
package cancel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRetention is how long an untouched record survives before the
// background sweep removes it. Bounds memory held for abandoned requests.
const DefaultRetention = 15 * time.Minute

// Registry is the source of truth for "should this job stop".
//
// Semantics shared by all implementations:
//   - IsCancelled of an unknown id is false, never an error (fail-open).
//   - Cancel of an unknown id returns false: nothing to cancel, the job
//     either finished already or never existed.
type Registry interface {
	// Register creates a record with cancelled=false. Re-registering an id
	// refreshes its timestamp.
	Register(ctx context.Context, requestID string) error
	// IsCancelled reports whether the id has been flagged.
	IsCancelled(ctx context.Context, requestID string) bool
	// Cancel flags the id. Returns true if a record existed.
	Cancel(ctx context.Context, requestID string) (bool, error)
	// Cleanup removes the record once its job reaches a terminal state.
	Cleanup(ctx context.Context, requestID string) error
}

type record struct {
	cancelled     bool
	lastTouchedAt time.Time
}

// MemoryRegistry is a process-local Registry with a background sweep.
// Suitable when the API and worker share a process, and for tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	records   map[string]*record
	retention time.Duration
	logger    *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryRegistry creates a registry sweeping at interval, dropping records
// older than retention.
func NewMemoryRegistry(retention, sweepInterval time.Duration, logger *zap.Logger) *MemoryRegistry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	r := &MemoryRegistry{
		records:   make(map[string]*record),
		retention: retention,
		logger:    logger,
		stop:      make(chan struct{}),
	}
	if sweepInterval > 0 {
		go r.sweepLoop(sweepInterval)
	}
	return r
}

func (r *MemoryRegistry) Register(_ context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[requestID]; ok {
		rec.lastTouchedAt = time.Now()
		return nil
	}
	r.records[requestID] = &record{lastTouchedAt: time.Now()}
	return nil
}

func (r *MemoryRegistry) IsCancelled(_ context.Context, requestID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[requestID]
	return ok && rec.cancelled
}

func (r *MemoryRegistry) Cancel(_ context.Context, requestID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[requestID]
	if !ok {
		return false, nil
	}
	rec.cancelled = true
	rec.lastTouchedAt = time.Now()
	return true, nil
}

func (r *MemoryRegistry) Cleanup(_ context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, requestID)
	return nil
}

// Sweep removes records untouched for longer than the retention window.
// Exposed for tests; the background loop calls it on its own schedule.
func (r *MemoryRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, rec := range r.records {
		if now.Sub(rec.lastTouchedAt) > r.retention {
			delete(r.records, id)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep.
func (r *MemoryRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *MemoryRegistry) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if removed := r.Sweep(time.Now()); removed > 0 && r.logger != nil {
				r.logger.Debug("swept stale cancellation records", zap.Int("removed", removed))
			}
		}
	}
}
