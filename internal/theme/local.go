package theme

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LocalStore is the fast-path key/value storage for theme data.
type LocalStore interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type RedisConfig struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

// RedisStore keeps theme keys in redis, shared by all service instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb, prefix: config.Prefix, ttl: config.TTL}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

type namespaced struct {
	store LocalStore
	ns    string
}

// Namespace scopes every key of store under ns, one namespace per user.
func Namespace(store LocalStore, ns string) LocalStore {
	return namespaced{store: store, ns: ns + ":"}
}

func (n namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.store.Get(ctx, n.ns+key)
}

func (n namespaced) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.ns+key, value)
}
