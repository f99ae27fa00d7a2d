package cache

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Connect returns a ready Redis client, or nil when Redis is unreachable.
// The service only uses it as a fast-path cache in front of the database,
// so running without it is fine.
func Connect(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("Redis unavailable at %s — settled-reference cache disabled: %v", addr, err)
		return nil
	}

	log.Println("Redis connected")
	return rdb
}
