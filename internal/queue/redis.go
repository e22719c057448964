package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pendingKey = "jobs:pending"
	activeKey  = "jobs:active"
	delayedKey = "jobs:delayed"

	// Finished job state is kept around for polling, then expires.
	stateTTL = 24 * time.Hour
)

// RedisQueue is the production Queue implementation. The pending and active
// lists plus the delayed retry set live alongside one state hash per job.
// BLMOVE pops a pending id and pushes it onto the active list in one atomic
// step, which is what makes the one-worker-per-job guarantee hold across
// concurrent worker processes.
type RedisQueue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisQueue creates a queue backed by the given client.
func NewRedisQueue(client *redis.Client, logger *zap.Logger) *RedisQueue {
	return &RedisQueue{client: client, logger: logger}
}

func stateKey(id string) string {
	return fmt.Sprintf("jobs:state:%s", id)
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	now := time.Now()
	job.Status = StatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, stateKey(job.ID), map[string]interface{}{
		"id":           job.ID,
		"kind":         string(job.Kind),
		"status":       string(StatusQueued),
		"payload":      job.Payload,
		"progress":     0,
		"attempt":      0,
		"max_attempts": job.MaxAttempts,
		"owner":        job.OwnerUserID,
		"created_at":   now.Format(time.RFC3339Nano),
		"updated_at":   now.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, stateKey(job.ID), stateTTL)
	pipe.LPush(ctx, pendingKey, job.ID)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Lease(ctx context.Context, timeout time.Duration) (*Job, error) {
	id, err := q.client.BLMove(ctx, pendingKey, activeKey, "RIGHT", "LEFT", timeout).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job, err := q.Get(ctx, id)
	if err == ErrNotFound {
		// State expired while the id sat in the pending list.
		q.client.LRem(ctx, activeKey, 0, id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		// Cancelled before pickup but not yet removed from the list.
		q.client.LRem(ctx, activeKey, 0, id)
		return nil, nil
	}

	job.Status = StatusActive
	job.Attempt++
	now := time.Now()
	job.UpdatedAt = now
	err = q.client.HSet(ctx, stateKey(id), map[string]interface{}{
		"status":     string(StatusActive),
		"attempt":    job.Attempt,
		"updated_at": now.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (q *RedisQueue) Complete(ctx context.Context, id string, result []byte) error {
	if err := q.checkNotTerminal(ctx, id); err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, stateKey(id), map[string]interface{}{
		"status":     string(StatusCompleted),
		"result":     result,
		"progress":   100,
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.LRem(ctx, activeKey, 0, id)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Fail(ctx context.Context, id string, msg string) (bool, error) {
	job, err := q.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if job.Status.Terminal() {
		return false, ErrTerminal
	}

	pipe := q.client.TxPipeline()
	if job.Attempt < job.MaxAttempts {
		due := time.Now().Add(retryBackoff(job.Attempt))
		pipe.HSet(ctx, stateKey(id), map[string]interface{}{
			"status":     string(StatusQueued),
			"error":      msg,
			"updated_at": time.Now().Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due.Unix()), Member: id})
		pipe.LRem(ctx, activeKey, 0, id)
		_, err = pipe.Exec(ctx)
		return true, err
	}

	pipe.HSet(ctx, stateKey(id), map[string]interface{}{
		"status":     string(StatusFailed),
		"error":      msg,
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.LRem(ctx, activeKey, 0, id)
	_, err = pipe.Exec(ctx)
	return false, err
}

func (q *RedisQueue) MarkCancelled(ctx context.Context, id string) error {
	if err := q.checkNotTerminal(ctx, id); err != nil {
		return err
	}
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, stateKey(id), map[string]interface{}{
		"status":     string(StatusCancelled),
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
	pipe.LRem(ctx, pendingKey, 0, id)
	pipe.LRem(ctx, activeKey, 0, id)
	pipe.ZRem(ctx, delayedKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) SetProgress(ctx context.Context, id string, progress int) error {
	return q.client.HSet(ctx, stateKey(id), map[string]interface{}{
		"progress":   progress,
		"updated_at": time.Now().Format(time.RFC3339Nano),
	}).Err()
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := q.client.HGetAll(ctx, stateKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return jobFromFields(fields), nil
}

func (q *RedisQueue) PromoteDelayed(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, id := range due {
		removed, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			// Another scheduler got there first.
			continue
		}
		if err := q.client.LPush(ctx, pendingKey, id).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	queued := pipe.LLen(ctx, pendingKey)
	active := pipe.LLen(ctx, activeKey)
	delayed := pipe.ZCard(ctx, delayedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{
		Queued:  queued.Val(),
		Active:  active.Val(),
		Delayed: delayed.Val(),
	}, nil
}

func (q *RedisQueue) checkNotTerminal(ctx context.Context, id string) error {
	status, err := q.client.HGet(ctx, stateKey(id), "status").Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if Status(status).Terminal() {
		return ErrTerminal
	}
	return nil
}

func jobFromFields(fields map[string]string) *Job {
	job := &Job{
		ID:          fields["id"],
		Kind:        Kind(fields["kind"]),
		Status:      Status(fields["status"]),
		Payload:     []byte(fields["payload"]),
		Error:       fields["error"],
		OwnerUserID: fields["owner"],
	}
	if v := fields["result"]; v != "" {
		job.Result = []byte(v)
	}
	job.Progress, _ = strconv.Atoi(fields["progress"])
	job.Attempt, _ = strconv.Atoi(fields["attempt"])
	job.MaxAttempts, _ = strconv.Atoi(fields["max_attempts"])
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return job
}
