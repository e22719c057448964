package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/pkg/logger"
)

// stubProcessor lets each test script the outcome of an attempt.
type stubProcessor struct {
	calls int32
	fn    func(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error)
}

func (s *stubProcessor) Process(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.fn(ctx, job, cancelled, progress)
}

func (s *stubProcessor) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func newTestWorker(t *testing.T, proc Processor) (*Worker, *queue.MemoryQueue, *cancel.MemoryRegistry) {
	t.Helper()
	q := queue.NewMemoryQueue()
	reg := cancel.NewMemoryRegistry(15*time.Minute, 0, logger.NewNop())
	w := New(q, reg, proc, nil, logger.NewNop(), Options{
		Concurrency:  1,
		LeaseTimeout: 50 * time.Millisecond,
	})
	return w, q, reg
}

func runWorker(t *testing.T, w *Worker) context.CancelFunc {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not shut down")
		}
	})
	return stop
}

func enqueue(t *testing.T, q queue.Queue, maxAttempts int) string {
	t.Helper()
	payload, err := queue.EncodePayload(queue.RecipePayload{Query: "pasta"})
	require.NoError(t, err)
	job := &queue.Job{
		ID:          uuid.NewString(),
		Kind:        queue.KindRecipe,
		Payload:     payload,
		MaxAttempts: maxAttempts,
	}
	require.NoError(t, q.Enqueue(context.Background(), job))
	return job.ID
}

func waitForStatus(t *testing.T, q queue.Queue, id string, want queue.Status) *queue.Job {
	t.Helper()
	var got *queue.Job
	require.Eventually(t, func() bool {
		job, err := q.Get(context.Background(), id)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 3*time.Second, 10*time.Millisecond, "job never reached status %s", want)
	return got
}

func TestWorkerCompletesJob(t *testing.T) {
	proc := &stubProcessor{fn: func(_ context.Context, _ *queue.Job, _ func() bool, progress func(int)) ([]byte, error) {
		progress(50)
		return json.Marshal(map[string]string{"reply": "done"})
	}}
	w, q, _ := newTestWorker(t, proc)
	runWorker(t, w)

	id := enqueue(t, q, 3)
	job := waitForStatus(t, q, id, queue.StatusCompleted)

	assert.Equal(t, 1, proc.callCount())
	assert.Equal(t, 100, job.Progress)
	assert.JSONEq(t, `{"reply":"done"}`, string(job.Result))
}

func TestWorkerCancelledBeforePickup(t *testing.T) {
	proc := &stubProcessor{fn: func(_ context.Context, _ *queue.Job, _ func() bool, _ func(int)) ([]byte, error) {
		return nil, nil
	}}
	w, q, reg := newTestWorker(t, proc)

	// Cancel while the job sits on the queue, before the worker starts.
	id := enqueue(t, q, 3)
	require.NoError(t, reg.Register(context.Background(), id))
	cancelled, err := reg.Cancel(context.Background(), id)
	require.NoError(t, err)
	require.True(t, cancelled)

	runWorker(t, w)
	job := waitForStatus(t, q, id, queue.StatusCancelled)

	assert.Equal(t, 0, proc.callCount(), "processor must never run for a pre-cancelled job")
	assert.Equal(t, queue.StatusCancelled, job.Status)
	// Terminal cleanup removes the registry record.
	assert.False(t, reg.IsCancelled(context.Background(), id))
}

func TestWorkerMidFlightCancel(t *testing.T) {
	proc := &stubProcessor{fn: func(_ context.Context, _ *queue.Job, cancelled func() bool, _ func(int)) ([]byte, error) {
		// Simulate checking the flag between upstream calls.
		for i := 0; i < 50; i++ {
			if cancelled() {
				return nil, ErrCancelled
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil, errors.New("cancel flag never observed")
	}}
	w, q, reg := newTestWorker(t, proc)
	runWorker(t, w)

	id := enqueue(t, q, 3)
	require.NoError(t, reg.Register(context.Background(), id))
	waitForStatus(t, q, id, queue.StatusActive)

	_, err := reg.Cancel(context.Background(), id)
	require.NoError(t, err)

	job := waitForStatus(t, q, id, queue.StatusCancelled)
	assert.Empty(t, job.Result)
}

func TestWorkerRetriesThenFails(t *testing.T) {
	proc := &stubProcessor{fn: func(_ context.Context, _ *queue.Job, _ func() bool, _ func(int)) ([]byte, error) {
		return nil, errors.New("upstream exploded")
	}}
	w, q, _ := newTestWorker(t, proc)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		stop()
		<-done
	}()

	id := enqueue(t, q, 2)

	// Retries sit on the delayed set until their backoff elapses; force
	// promotion so the test does not wait out real backoff.
	require.Eventually(t, func() bool {
		_, err := q.PromoteDelayed(context.Background(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		job, err := q.Get(context.Background(), id)
		require.NoError(t, err)
		return job.Status == queue.StatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	job, err := q.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, job.Status)
	assert.Equal(t, 2, job.Attempt)
	assert.Contains(t, job.Error, "upstream exploded")
	assert.Equal(t, 2, proc.callCount())
}

func TestWorkerFailureIsTerminalAfterMaxAttempts(t *testing.T) {
	proc := &stubProcessor{fn: func(_ context.Context, _ *queue.Job, _ func() bool, _ func(int)) ([]byte, error) {
		return nil, errors.New("bad gateway")
	}}
	w, q, reg := newTestWorker(t, proc)
	runWorker(t, w)

	id := enqueue(t, q, 1)
	require.NoError(t, reg.Register(context.Background(), id))

	job := waitForStatus(t, q, id, queue.StatusFailed)
	assert.Equal(t, 1, job.Attempt)

	// Cancelling after a terminal state must not change the status.
	_, err := reg.Cancel(context.Background(), id)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	job, err = q.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, job.Status)
}
