package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a job id is unknown to the queue.
var ErrNotFound = errors.New("job not found")

// ErrTerminal is returned when a transition targets a job already in a
// terminal state. Terminal states never transition further.
var ErrTerminal = errors.New("job already in terminal state")

// Queue is the coordination point between the API tier and the workers.
//
// Enqueue must return as soon as the job is persisted; it never blocks on
// downstream generation. Lease guarantees at-most-one active worker per job.
type Queue interface {
	// Enqueue persists the job and makes it available to workers.
	Enqueue(ctx context.Context, job *Job) error
	// Lease blocks up to timeout for the next pending job, atomically moving
	// it to the active set and bumping its attempt counter. Returns nil when
	// no job became available.
	Lease(ctx context.Context, timeout time.Duration) (*Job, error)
	// Complete finalizes a job with its result.
	Complete(ctx context.Context, id string, result []byte) error
	// Fail records a failure. When attempts remain the job is re-queued with
	// backoff and retried=true is returned; otherwise it finalizes as failed.
	Fail(ctx context.Context, id string, msg string) (retried bool, err error)
	// MarkCancelled finalizes a job as cancelled, removing it from the
	// pending list if the worker never picked it up.
	MarkCancelled(ctx context.Context, id string) error
	// SetProgress updates the progress marker of an active job.
	SetProgress(ctx context.Context, id string, progress int) error
	// Get returns the current JobState, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// PromoteDelayed moves retry-delayed jobs whose backoff elapsed back onto
	// the pending list. Returns how many were promoted.
	PromoteDelayed(ctx context.Context, now time.Time) (int, error)
	// Stats returns an aggregate snapshot of queue health.
	Stats(ctx context.Context) (Stats, error)
}

// retryBackoff returns the delay before the given attempt is retried.
// Exponential: 5s, 10s, 20s, ...
func retryBackoff(attempt int) time.Duration {
	d := 5 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
