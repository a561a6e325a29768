package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service defines cache operations
type Service interface {
	Get(ctx context.Context, question, provider string) (string, bool)
	Set(ctx context.Context, question, provider, answer string) error
}

// HitRecorder receives cache hit/miss events
type HitRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Cache implements caching service
type Cache struct {
	enabled  bool
	cache    *cache.Cache
	logger   *logrus.Logger
	maxSize  int
	recorder HitRecorder
}

// NewCache creates a new cache service
func NewCache(cfg config.CacheConfig, logger *logrus.Logger, recorder HitRecorder) Service {
	if !cfg.Enabled {
		return &Cache{enabled: false}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Cache{
		enabled:  true,
		cache:    cache.New(ttl, ttl*2),
		logger:   logger,
		maxSize:  cfg.MaxSize,
		recorder: recorder,
	}
}

// Get retrieves a cached response
func (c *Cache) Get(ctx context.Context, question, provider string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	key := c.generateKey(question, provider)
	if val, found := c.cache.Get(key); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithFields(logrus.Fields{
			"provider": provider,
			"age":      time.Since(entry.CreatedAt),
		}).Debug("Cache hit")
		if c.recorder != nil {
			c.recorder.RecordCacheHit()
		}
		return entry.Answer, true
	}

	if c.recorder != nil {
		c.recorder.RecordCacheMiss()
	}
	return "", false
}

// Set stores a response in cache
func (c *Cache) Set(ctx context.Context, question, provider, answer string) error {
	if !c.enabled {
		return nil
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.logger.Warn("Cache size limit reached, flushing")
			c.cache.Flush()
		}
	}

	key := c.generateKey(question, provider)
	entry := &models.CacheEntry{
		Question:  question,
		Answer:    answer,
		Provider:  provider,
		CreatedAt: time.Now(),
	}

	c.cache.SetDefault(key, entry)
	c.logger.WithField("provider", provider).Debug("Response cached")

	return nil
}

// generateKey creates a unique cache key
func (c *Cache) generateKey(question, provider string) string {
	data := fmt.Sprintf("%s:%s", provider, question)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
