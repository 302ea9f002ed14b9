package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients bundles the two connections the app needs. Store carries the
// attempt-finalize queue and refresh tokens; Events is dedicated to session
// event pub/sub so blocking subscriptions never starve queue operations.
type RedisClients struct {
	Store  *redis.Client
	Events *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storeClient := redis.NewClient(opt)
	if err := storeClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis (store): %w", err)
	}

	eventsOpt := *opt
	eventsClient := redis.NewClient(&eventsOpt)
	if err := eventsClient.Ping(ctx).Err(); err != nil {
		storeClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (events): %w", err)
	}

	return &RedisClients{
		Store:  storeClient,
		Events: eventsClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Store.Close()
	r.Events.Close()
}
