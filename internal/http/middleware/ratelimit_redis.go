package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for addr once it answers a ping.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// RedisLimiter is a fixed-window limiter shared by every replica through
// Redis INCR/EXPIRE. Keys look like rl:<window_seconds>:<identifier>.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: maxRequests, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, ident string) (bool, error) {
	key := "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ident

	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if val == 1 {
		// first hit opens the window
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return val <= int64(l.max), nil
}
