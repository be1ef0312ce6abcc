package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var RedisClient *redis.Client

// ConnectRedis connects to REDIS_URL. The service keeps running without Redis,
// so failures leave RedisClient nil instead of returning an error.
func ConnectRedis(ctx context.Context, redisURL string, logger *logrus.Logger) *redis.Client {
	if redisURL == "" {
		logger.Info("REDIS_URL not set, webhook locks disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.WithError(err).Warn("Invalid REDIS_URL, continuing without Redis")
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		logger.WithError(err).Warn("Redis connection failed, continuing without Redis")
		_ = client.Close()
		return nil
	}

	RedisClient = client
	logger.Info("Redis connected successfully")
	return client
}

func CloseRedis() {
	if RedisClient != nil {
		_ = RedisClient.Close()
	}
}
