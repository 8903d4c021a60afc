package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cache is a TTL key/value store for analysis and profile payloads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// PurgeExpired drops expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	Name() string
}

// NewCache builds the cache selected by cfg.Cache.Driver. A redis cache
// that cannot be reached falls back to memory.
func NewCache(cfg *config.Config, db *gorm.DB) Cache {
	switch cfg.Cache.Driver {
	case "database":
		if db != nil {
			logger.Infof("[Cache] Using database cache")
			return NewDBCache(db)
		}
		logger.Warnf("[Cache] Database cache requested without a database, using memory")
	case "redis":
		c, err := NewRedisCache(&cfg.Redis)
		if err == nil {
			logger.Infof("[Cache] Using redis cache at %s", cfg.Redis.Addr)
			return c
		}
		logger.Warnf("[Cache] Redis unavailable, falling back to memory: %v", err)
	}
	logger.Infof("[Cache] Using in-memory cache")
	return NewMemoryCache()
}

func getJSON(ctx context.Context, c Cache, key string, out interface{}) bool {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("[Cache] Get failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("[Cache] Dropping undecodable entry")
		_ = c.Delete(ctx, key)
		return false
	}
	return true
}

func setJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("[Cache] Encode failed")
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("[Cache] Set failed")
	}
}

// --- memory ---

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local TTL map.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Name() string { return "memory" }

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *MemoryCache) PurgeExpired(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var n int64
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// --- database ---

// DBCache stores entries in the cache_entries table, so every instance
// sharing the database sees the same cache.
type DBCache struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBCache(db *gorm.DB) *DBCache {
	return &DBCache{db: db, now: time.Now}
}

func (c *DBCache) Name() string { return "database" }

func (c *DBCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.CacheEntry
	err := c.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, c.now()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (c *DBCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := models.CacheEntry{Key: key, Value: value, ExpiresAt: c.now().Add(ttl)}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (c *DBCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

func (c *DBCache) PurgeExpired(ctx context.Context) (int64, error) {
	result := c.db.WithContext(ctx).Where("expires_at <= ?", c.now()).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (c *DBCache) Clear(ctx context.Context) error {
	return c.db.WithContext(ctx).Where("1 = 1").Delete(&models.CacheEntry{}).Error
}

// --- redis ---

const redisKeyPrefix = "ethosradar:cache:"

// RedisCache relies on redis key expiry, so PurgeExpired has nothing to do.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Name() string { return "redis" }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKeyPrefix + k
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *RedisCache) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
