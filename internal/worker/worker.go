// Package worker pulls generation jobs from the queue and runs them against
// the external LLM and image APIs. Multiple worker processes may run
// concurrently; the queue lease guarantees disjoint jobs.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/metrics"
	"github.com/souschef-ai/backend/internal/queue"
)

// ErrCancelled is returned by a Processor that observed the cancellation
// flag at a safe point mid-job.
var ErrCancelled = errors.New("job cancelled")

// Processor executes one job attempt. The cancelled callback reads the
// cancellation registry; implementations should consult it between external
// calls. Cancellation is cooperative, so an in-flight upstream call is not
// preempted. The progress callback updates the job's progress marker.
type Processor interface {
	Process(ctx context.Context, job *queue.Job, cancelled func() bool, progress func(int)) ([]byte, error)
}

// Worker runs the pull loop with bounded concurrency.
type Worker struct {
	queue     queue.Queue
	registry  cancel.Registry
	processor Processor
	logger    *zap.Logger
	metrics   *metrics.Metrics

	concurrency   int
	leaseTimeout  time.Duration
	promoteEvery  time.Duration
	statsEvery    time.Duration
}

// Options tune the worker loop. Zero values get sensible defaults.
type Options struct {
	Concurrency  int
	LeaseTimeout time.Duration
}

// New creates a worker.
func New(q queue.Queue, registry cancel.Registry, processor Processor, m *metrics.Metrics, logger *zap.Logger, opts Options) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.LeaseTimeout <= 0 {
		opts.LeaseTimeout = 5 * time.Second
	}
	return &Worker{
		queue:        q,
		registry:     registry,
		processor:    processor,
		logger:       logger,
		metrics:      m,
		concurrency:  opts.Concurrency,
		leaseTimeout: opts.LeaseTimeout,
		promoteEvery: time.Second,
		statsEvery:   5 * time.Second,
	}
}

// Run blocks until ctx is cancelled. In-flight jobs are given a chance to
// finish their current attempt before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.pullLoop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.maintenanceLoop(ctx)
	}()

	wg.Wait()
	return nil
}

func (w *Worker) pullLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := w.queue.Lease(ctx, w.leaseTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("lease failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	log := w.logger.With(
		zap.String("request_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("attempt", job.Attempt),
	)

	cancelled := func() bool { return w.registry.IsCancelled(ctx, job.ID) }

	// Cancelled while sitting on the queue: never start the upstream call.
	if cancelled() {
		w.finishCancelled(ctx, job, log)
		return
	}

	progress := func(p int) {
		if err := w.queue.SetProgress(ctx, job.ID, p); err != nil {
			log.Debug("progress update failed", zap.Error(err))
		}
	}

	start := time.Now()
	result, err := w.processor.Process(ctx, job, cancelled, progress)
	if w.metrics != nil {
		w.metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
	}

	switch {
	case errors.Is(err, ErrCancelled):
		w.finishCancelled(ctx, job, log)
	case err != nil:
		retried, ferr := w.queue.Fail(ctx, job.ID, err.Error())
		if ferr != nil {
			log.Error("failed to record job failure", zap.Error(ferr))
			return
		}
		if retried {
			if w.metrics != nil {
				w.metrics.JobsRetried.WithLabelValues(string(job.Kind)).Inc()
			}
			log.Warn("job attempt failed, re-queued", zap.Error(err))
			return
		}
		if w.metrics != nil {
			w.metrics.JobsFailed.WithLabelValues(string(job.Kind)).Inc()
		}
		if cerr := w.registry.Cleanup(ctx, job.ID); cerr != nil {
			log.Debug("registry cleanup failed", zap.Error(cerr))
		}
		log.Error("job failed permanently", zap.Error(err))
	default:
		if err := w.queue.Complete(ctx, job.ID, result); err != nil {
			log.Error("failed to record job completion", zap.Error(err))
			return
		}
		if w.metrics != nil {
			w.metrics.JobsCompleted.WithLabelValues(string(job.Kind)).Inc()
		}
		if cerr := w.registry.Cleanup(ctx, job.ID); cerr != nil {
			log.Debug("registry cleanup failed", zap.Error(cerr))
		}
		log.Info("job completed", zap.Duration("took", time.Since(start)))
	}
}

func (w *Worker) finishCancelled(ctx context.Context, job *queue.Job, log *zap.Logger) {
	if err := w.queue.MarkCancelled(ctx, job.ID); err != nil && !errors.Is(err, queue.ErrTerminal) {
		log.Error("failed to mark job cancelled", zap.Error(err))
		return
	}
	if w.metrics != nil {
		w.metrics.JobsCancelled.WithLabelValues(string(job.Kind)).Inc()
	}
	if err := w.registry.Cleanup(ctx, job.ID); err != nil {
		log.Debug("registry cleanup failed", zap.Error(err))
	}
	log.Info("job cancelled")
}

// maintenanceLoop promotes retry-delayed jobs whose backoff elapsed and
// refreshes the queue gauges.
func (w *Worker) maintenanceLoop(ctx context.Context) {
	promote := time.NewTicker(w.promoteEvery)
	stats := time.NewTicker(w.statsEvery)
	defer promote.Stop()
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-promote.C:
			if _, err := w.queue.PromoteDelayed(ctx, time.Now()); err != nil && ctx.Err() == nil {
				w.logger.Warn("delayed promotion failed", zap.Error(err))
			}
		case <-stats.C:
			s, err := w.queue.Stats(ctx)
			if err != nil {
				continue
			}
			if w.metrics != nil {
				w.metrics.QueueDepth.Set(float64(s.Queued))
				w.metrics.ActiveJobs.Set(float64(s.Active))
			}
		}
	}
}
