package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis opens a Redis client and verifies connectivity with a bounded
// ping. Caller must call Close when done.
func OpenRedis(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
