package dedupe

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisFilter implements Filter on a Redis set, so interrupted runs can be
// resumed without re-fetching already visited pages.
type RedisFilter struct {
	client *redis.Client
	setKey string
}

// NewRedisFilter creates a new Redis-backed filter. setKey names the set
// holding visited URLs, typically one per site.
func NewRedisFilter(addr string, db int, setKey string) *RedisFilter {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisFilter{
		client: client,
		setKey: setKey,
	}
}

// Seen adds key to the set and reports whether it was already a member.
func (f *RedisFilter) Seen(ctx context.Context, key string) (bool, error) {
	added, err := f.client.SAdd(ctx, f.setKey, key).Result()
	if err != nil {
		return false, err
	}
	return added == 0, nil
}

// Reset drops the visited set.
func (f *RedisFilter) Reset(ctx context.Context) error {
	return f.client.Del(ctx, f.setKey).Err()
}

// Close closes the Redis connection
func (f *RedisFilter) Close() error {
	return f.client.Close()
}
