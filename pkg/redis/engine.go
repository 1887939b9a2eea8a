package redis

import (
	"context"

	redisclient "github.com/redis/go-redis/v9"

	"github.com/datx24/storefront/pkg/global"
)

func RedisClient() *redisclient.Client {
	return redisclient.NewClient(&redisclient.Options{
		Addr:     global.GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		Password: global.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       int(global.GetEnvInt("REDIS_DB", 0)),
		Protocol: 2,
	})
}

// Ping verifies the server is reachable within the default timeout
func Ping(client *redisclient.Client) error {
	ctx, cancel := global.GetDefaultTimer()
	defer cancel()
	return client.Ping(ctx).Err()
}

func pingContext(ctx context.Context, client *redisclient.Client) error {
	return client.Ping(ctx).Err()
}
