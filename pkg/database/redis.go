package database

import (
	"context"
	"time"

	"ticket-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis for availability snapshot caching. Returns nil
// when no address is configured or the server is unreachable; callers degrade
// to direct ledger reads.
func InitRedis(config utils.RedisConfig) *redis.Client {
	if config.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}

	return client
}
