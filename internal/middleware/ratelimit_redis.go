package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter shares rate-limit windows across gateway replicas.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCounter(client redis.Cmdable, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// Incr bumps key and starts its expiry on the first hit of a window. Both
// commands run in one MULTI/EXEC so a crash cannot leave a key without a TTL.
func (c *RedisCounter) Incr(ctx context.Context, key string, per time.Duration) (int64, error) {
	full := c.prefix + key
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, full)
		pipe.ExpireNX(ctx, full, per)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
