package lib

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// GetRedisClient connects to the given redis url and checks it responds.
func GetRedisClient(url string) (*redis.Client, error) {
	if redisClient != nil {
		return redisClient, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[redis] Error connecting to %s: %s\n", opt.Addr, err.Error())
		rdb.Close()
		return nil, err
	}
	redisClient = rdb
	return rdb, nil
}
