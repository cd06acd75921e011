package challenge

import (
	"context"
	"encoding/json"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisStore implementa Store sobre Redis. Es el backend para deployments con
// más de una instancia: el TTL nativo de Redis reemplaza al sweep local.
type RedisStore struct {
	c      *rdb.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *rdb.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "chal:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{c: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) Put(ctx context.Context, email string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.c.Set(ctx, r.prefix+Key(email), b, ttl).Err()
}

func (r *RedisStore) Take(ctx context.Context, email string) (*Entry, bool) {
	b, err := r.c.Get(ctx, r.prefix+Key(email)).Bytes()
	if err != nil {
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	return &e, true
}

func (r *RedisStore) Clear(ctx context.Context, email string) error {
	return r.c.Del(ctx, r.prefix+Key(email)).Err()
}
