package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// typeRegistry maps type names to concrete Go types so values read back
// from Redis deserialize into the type that was stored, not
// map[string]interface{}.
var (
	typeRegistry   = make(map[string]reflect.Type)
	typeRegistryMu sync.RWMutex
)

// RegisterCacheType registers a type for Redis deserialization. Pass a
// typed nil pointer, e.g. RegisterCacheType((*Snapshot)(nil)).
func RegisterCacheType(v interface{}) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	typeRegistryMu.Lock()
	typeRegistry[t.Name()] = t
	typeRegistryMu.Unlock()
}

// envelope wraps serialized values with their type name.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RedisCache implements a Redis-backed cache, used as a shared L2 tier
// behind the in-memory cache when configured.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis cache
func (r *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	return decodeValue([]byte(val))
}

// Set stores a value in Redis cache with TTL
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := encodeValue(value)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

// Delete removes a key from Redis cache
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// encodeValue wraps a value in an envelope carrying its type name.
func encodeValue(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	env := envelope{
		Type: typeNameOf(value),
		Data: data,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return payload, nil
}

// decodeValue unwraps an envelope, producing a pointer to the registered
// concrete type when the type name is known.
func decodeValue(payload []byte) (interface{}, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	typeRegistryMu.RLock()
	t, registered := typeRegistry[env.Type]
	typeRegistryMu.RUnlock()

	if !registered {
		// Unregistered types decode generically.
		var result interface{}
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return result, nil
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Data, ptr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	return ptr, nil
}

func typeNameOf(v interface{}) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
