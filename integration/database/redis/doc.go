// Package redis connects to Redis with go-redis, retrying the initial ping
// with exponential backoff.
//
//	client, err := redis.Connect(ctx, redis.Config{
//		ConnectionURL: "redis://localhost:6379/0",
//		RetryAttempts: 3,
//		RetryInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Config fields map to REDIS_URL, REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL
// and REDIS_CONNECT_TIMEOUT. Both redis:// and rediss:// URLs are accepted.
//
// Healthcheck returns a probe function for readiness checks.
package redis
