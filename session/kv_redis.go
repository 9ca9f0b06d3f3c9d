package session

import (
	"context"

	"github.com/BaSui01/chatgate/internal/cache"
)

// RedisKV stores values in Redis through the cache manager.
// Keys never expire unless the manager has a DefaultTTL.
type RedisKV struct {
	m *cache.Manager
}

// NewRedisKV wraps an initialized cache manager.
func NewRedisKV(m *cache.Manager) *RedisKV {
	return &RedisKV{m: m}
}

// Load implements KV.
func (r *RedisKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.m.Get(ctx, key)
	if cache.IsCacheMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Save implements KV.
func (r *RedisKV) Save(ctx context.Context, key string, value []byte) error {
	return r.m.Set(ctx, key, value, 0)
}

// Close closes the underlying connection.
func (r *RedisKV) Close() error {
	return r.m.Close()
}
