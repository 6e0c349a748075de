package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/common/config"

	"github.com/go-redis/redis/v8"
)

// OpenRedis builds the client shared by the room cache and the stream sink and
// checks it within pingTimeout. The client is returned even when the check fails:
// go-redis reconnects on use and cache callers fall back to the store meanwhile.
func OpenRedis(ctx context.Context, cfg *config.RedisConfig, pingTimeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("redis %s not reachable: %w", cfg.Addr, err)
	}
	return client, nil
}
