package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/qrmenu/utils"
)

const keyPrefix = "qrmenu"

// CacheService stores JSON documents with a TTL.
type CacheService interface {
	// GetJSON decodes the value into dst. It reports false on a miss.
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func MenuKey(establishmentID uint) string {
	return fmt.Sprintf("%s:menu:%d", keyPrefix, establishmentID)
}

func DashboardKey(establishmentID uint) string {
	return fmt.Sprintf("%s:dashboard:%d", keyPrefix, establishmentID)
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService wraps an existing client. The client is shared with
// the realtime broker.
func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

// NewRedisClient builds a client and pings it once; a failed ping is only
// logged so the service can start before Redis does.
func NewRedisClient(addr, password string, db int) *redis.Client {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.ErrorLogger.Printf("Redis ping failed on initialization: %v (address: %s)", err, parsedAddr)
	} else {
		utils.InfoLogger.Printf("Redis connection established (%s)", parsedAddr)
	}
	return client
}

func (r *redisCacheService) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryCacheService is used when Redis is not configured and in tests.
type memoryCacheService struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCacheService() CacheService {
	return &memoryCacheService{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *memoryCacheService) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dst)
}

func (m *memoryCacheService) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{data: data, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryCacheService) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
