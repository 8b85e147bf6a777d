// Package redis provides a Redis implementation of the SharedTemplateCache port.
//
// Templates are stored as plain strings with a TTL so that every API instance
// shares one copy between its in-process cache and PostgreSQL. Keys have the
// format prefix:risk-warning:language:brokerType.
//
// Back-fills are conditional. Delete bumps a per-pair counter at
// prefix:risk-warning-version:language:brokerType and Clear bumps
// prefix:risk-warning-epoch, so a reader that fetched the row before an
// admin write cannot put the old text back.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradespotter/brokerhub/internal/domain/entity"
	"github.com/tradespotter/brokerhub/internal/ports/outbound"
)

// Compile-time check that TemplateCache implements outbound.SharedTemplateCache
var _ outbound.SharedTemplateCache = (*TemplateCache)(nil)

// Compile-time check that TemplateCache can be used as a readiness dependency
var _ outbound.Pinger = (*TemplateCache)(nil)

const (
	keyNamespace     = "risk-warning"
	versionNamespace = "risk-warning-version"
	epochName        = "risk-warning-epoch"
)

// setIfVersionScript writes KEYS[1] only if "epoch:version" read from
// KEYS[2] and KEYS[3] still equals ARGV[1]. Missing counters read as 0.
var setIfVersionScript = redis.NewScript(`
local current = redis.call('MGET', KEYS[2], KEYS[3])
local token = (current[1] or '0') .. ':' .. (current[2] or '0')
if token ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// scanBatchSize is the COUNT hint used when clearing keys.
const scanBatchSize = 100

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL is how long cached templates live before expiring
	TTL time.Duration
	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for Redis cache configuration.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		TTL:       10 * time.Minute,
		KeyPrefix: "brokerhub",
	}
}

// TemplateCache is a Redis implementation of the outbound.SharedTemplateCache port.
type TemplateCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewTemplateCache creates a new Redis template cache.
func NewTemplateCache(cfg Config, logger *slog.Logger) (*TemplateCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	defaults := ConfigDefaults()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "redis-template-cache")

	return &TemplateCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

// Ping checks the Redis connection.
func (c *TemplateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *TemplateCache) Close() error {
	return c.client.Close()
}

// key generates a cache key in the format prefix:risk-warning:language:brokerType
func (c *TemplateCache) key(languageCode string, brokerType entity.BrokerType) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.keyPrefix, keyNamespace, languageCode, brokerType)
}

func (c *TemplateCache) versionKey(languageCode string, brokerType entity.BrokerType) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.keyPrefix, versionNamespace, languageCode, brokerType)
}

func (c *TemplateCache) epochKey() string {
	return c.keyPrefix + ":" + epochName
}

// Get returns the cached template. A missing key is a miss, not an error.
func (c *TemplateCache) Get(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(languageCode, brokerType)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get template: %w", err)
	}
	return val, true, nil
}

// Version returns the pair's invalidation token, "epoch:version".
func (c *TemplateCache) Version(ctx context.Context, languageCode string, brokerType entity.BrokerType) (string, error) {
	vals, err := c.client.MGet(ctx, c.epochKey(), c.versionKey(languageCode, brokerType)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to get template version: %w", err)
	}
	return counter(vals[0]) + ":" + counter(vals[1]), nil
}

func counter(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// SetIfVersion caches a template with the configured TTL unless the pair was
// deleted or the cache cleared since version was read.
func (c *TemplateCache) SetIfVersion(ctx context.Context, languageCode string, brokerType entity.BrokerType, template, version string) (bool, error) {
	keys := []string{c.key(languageCode, brokerType), c.epochKey(), c.versionKey(languageCode, brokerType)}
	stored, err := setIfVersionScript.Run(ctx, c.client, keys, version, template, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache template: %w", err)
	}
	return stored == 1, nil
}

// Delete removes a cached template and bumps its version in one transaction.
func (c *TemplateCache) Delete(ctx context.Context, languageCode string, brokerType entity.BrokerType) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(languageCode, brokerType))
		pipe.Incr(ctx, c.versionKey(languageCode, brokerType))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// Clear removes every template key under the prefix. It uses SCAN so the
// server is not blocked. Version and epoch counters are kept.
func (c *TemplateCache) Clear(ctx context.Context) error {
	// Bump the epoch first so back-fills racing the scan are refused.
	if err := c.client.Incr(ctx, c.epochKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump cache epoch: %w", err)
	}

	pattern := fmt.Sprintf("%s:%s:*", c.keyPrefix, keyNamespace)
	iter := c.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()

	deleted := 0
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete templates: %w", err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan templates: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete templates: %w", err)
		}
		deleted += len(batch)
	}

	c.logger.Debug("cleared shared template cache", "keys", deleted)
	return nil
}
