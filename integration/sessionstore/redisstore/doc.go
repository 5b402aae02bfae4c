// Package redisstore is a sessionstore.Store on Redis.
//
//	client, err := redis.Connect(ctx, cfg) // integration/database/redis
//	...
//	store := redisstore.New(client, redisstore.WithTTL(24*time.Hour))
package redisstore
