// Package redis provides the secondary, cross-process cache tier sitting
// behind each lexical adapter's in-process LRU (internal/canon/lexical).
// The in-process `golang-lru/v2` expirable cache survives for one process
// lifetime; this tier survives restarts and is shared across replicas,
// which matters for the daily-quota-limited sources (WordsAPI, BabelNet,
// Merriam-Webster) where a cold cache after a deploy would burn quota
// re-fetching terms another replica already resolved today.
package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/canonengine/canonengine/internal/logger"
)

// Cache is the narrow get/set-with-TTL surface internal/canon/lexical
// consumes; it is satisfied by *Client below.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}

type Client struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewClient connects to REDIS_ADDR and pings once; returns (nil, err)
// when REDIS_ADDR is unset or unreachable so callers can treat the
// secondary cache tier as an optional enrichment, not a dependency.
func NewClient(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_LEXICAL_CACHE_PREFIX"))
	if prefix == "" {
		prefix = "canon:lexical"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{
		log:    log.With("service", "RedisLexicalCache"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (c *Client) key(k string) string {
	return c.prefix + ":" + k
}

// Get never surfaces a transport error to the caller: a miss and a
// failure look identical (ok=false), same degraded-mode contract as the
// lexical sources this tier sits behind.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("redis cache get failed", "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.log.Debug("redis cache set failed", "error", err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
