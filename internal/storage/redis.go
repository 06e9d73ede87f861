package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis instance, for deployments where session
// state must survive server restarts without a local disk.
type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis URL (redis://host:port/db).
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client}, nil
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("storefront:%s:%s", namespace, key)
}

func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *Redis) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKey(namespace, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, namespace, key string) error {
	if err := r.client.Del(ctx, redisKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	prefix := redisKey(namespace, "")
	out := map[string][]byte{}
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		data, err := r.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("redis list get failed: %w", err)
		}
		out[full[len(prefix):]] = data
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return out, nil
}

func (r *Redis) Close() error { return r.client.Close() }
