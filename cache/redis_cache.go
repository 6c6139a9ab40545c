package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisSessionCache backs SessionCache with a redis instance.
type RedisSessionCache struct {
	Client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{Client: client}
}

func (r *RedisSessionCache) Get(ctx context.Context, token string) (*SessionSnapshot, error) {
	val, err := r.Client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap SessionSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		// A corrupt entry is as good as a miss, the durable row decides.
		return nil, nil
	}
	return &snap, nil
}

func (r *RedisSessionCache) Set(ctx context.Context, snap *SessionSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, sessionKey(snap.Token), data, ttl).Err()
}

func (r *RedisSessionCache) Delete(ctx context.Context, token string) error {
	return r.Client.Del(ctx, sessionKey(token)).Err()
}
