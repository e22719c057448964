package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	flagPending   = "0"
	flagCancelled = "1"
)

// RedisRegistry shares cancellation flags between the API and standalone
// worker processes. The key TTL plays the role of the retention sweep.
type RedisRegistry struct {
	client    *redis.Client
	retention time.Duration
	logger    *zap.Logger
}

// NewRedisRegistry creates a registry backed by the given client.
func NewRedisRegistry(client *redis.Client, retention time.Duration, logger *zap.Logger) *RedisRegistry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisRegistry{client: client, retention: retention, logger: logger}
}

func (r *RedisRegistry) key(requestID string) string {
	return fmt.Sprintf("cancel:%s", requestID)
}

func (r *RedisRegistry) Register(ctx context.Context, requestID string) error {
	// SetNX keeps an existing cancelled flag; re-registering only refreshes
	// the retention clock.
	pipe := r.client.Pipeline()
	pipe.SetNX(ctx, r.key(requestID), flagPending, r.retention)
	pipe.Expire(ctx, r.key(requestID), r.retention)
	_, err := pipe.Exec(ctx)
	return err
}

// IsCancelled is fail-open: a missing key or an unreachable Redis both read
// as "not cancelled" so a registry outage never aborts healthy jobs.
func (r *RedisRegistry) IsCancelled(ctx context.Context, requestID string) bool {
	val, err := r.client.Get(ctx, r.key(requestID)).Result()
	if err != nil {
		if err != redis.Nil && r.logger != nil {
			r.logger.Warn("cancellation check failed", zap.String("request_id", requestID), zap.Error(err))
		}
		return false
	}
	return val == flagCancelled
}

func (r *RedisRegistry) Cancel(ctx context.Context, requestID string) (bool, error) {
	// SET XX only succeeds if the record still exists.
	ok, err := r.client.SetXX(ctx, r.key(requestID), flagCancelled, r.retention).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisRegistry) Cleanup(ctx context.Context, requestID string) error {
	return r.client.Del(ctx, r.key(requestID)).Err()
}
