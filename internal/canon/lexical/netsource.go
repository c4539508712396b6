package lexical

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"

	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/pkg/httpx"
)

// httpGetter is the narrow surface netClient needs from *http.Client, so
// tests can stub it without spinning up a real listener.
type httpGetter interface {
	Do(req *http.Request) (*http.Response, error)
}

// SecondaryCache is the optional cross-process cache tier behind each
// adapter's in-process LRU (see internal/clients/redis.Client). Nil by
// default — set once at startup via SetSharedSecondaryCache when
// REDIS_ADDR is configured; every network adapter shares the one
// instance rather than opening its own connection.
type SecondaryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

var sharedSecondaryCache SecondaryCache

// SetSharedSecondaryCache wires the process-wide Redis-backed cache tier.
// Called once from app bootstrap; a nil argument (REDIS_ADDR unset)
// leaves every adapter on in-process-LRU-only caching.
func SetSharedSecondaryCache(c SecondaryCache) {
	sharedSecondaryCache = c
}

// netClient bundles the plumbing every network lexical adapter repeats:
// a TTL response cache, a circuit breaker tripped by consecutive
// failures, and an optional daily quota.
type netClient struct {
	name    string
	log     *logger.Logger
	http    httpGetter
	cache   *lru.LRU[string, []byte]
	breaker *gobreaker.CircuitBreaker

	mu           sync.Mutex
	dailyLimit   int
	dailyCount   int
	dailyResetAt time.Time
	ttl          time.Duration
}

func newNetClient(name string, log *logger.Logger, ttl time.Duration, dailyLimit int) *netClient {
	cache := lru.NewLRU[string, []byte](2048, nil, ttl)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &netClient{
		name:         name,
		log:          log.With("adapter", name),
		http:         &http.Client{Timeout: 5 * time.Second},
		cache:        cache,
		breaker:      breaker,
		dailyLimit:   dailyLimit,
		dailyResetAt: time.Now(),
		ttl:          ttl,
	}
}

// withinQuota reports whether another call is allowed under the daily
// request budget (0 means unlimited — no key required, e.g. Datamuse).
func (n *netClient) withinQuota() bool {
	if n.dailyLimit <= 0 {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if time.Since(n.dailyResetAt) > 24*time.Hour {
		n.dailyCount = 0
		n.dailyResetAt = time.Now()
	}
	return n.dailyCount < n.dailyLimit
}

func (n *netClient) recordCall() {
	if n.dailyLimit <= 0 {
		return
	}
	n.mu.Lock()
	n.dailyCount++
	n.mu.Unlock()
}

// getJSON fetches url (GET, optional headers), parses the JSON body into
// out, and caches the raw bytes under cacheKey for the client's TTL.
// Returns false on any failure — network, quota, breaker-open, or
// decode — never an error, per the adapter "never fails outward"
// contract.
func (n *netClient) getJSON(ctx context.Context, cacheKey, url string, headers map[string]string, out any) bool {
	if cached, ok := n.cache.Get(cacheKey); ok {
		return json.Unmarshal(cached, out) == nil
	}
	fullKey := n.name + ":" + cacheKey
	if sharedSecondaryCache != nil {
		if cached, ok := sharedSecondaryCache.Get(ctx, fullKey); ok {
			n.cache.Add(cacheKey, cached)
			return json.Unmarshal(cached, out) == nil
		}
	}
	if !n.withinQuota() {
		return false
	}

	body, ok := n.doRequest(ctx, url, headers)
	if !ok {
		return false
	}

	n.cache.Add(cacheKey, body)
	if sharedSecondaryCache != nil {
		sharedSecondaryCache.Set(ctx, fullKey, body, n.ttl)
	}
	return json.Unmarshal(body, out) == nil
}

func (n *netClient) doRequest(ctx context.Context, url string, headers map[string]string) ([]byte, bool) {
	result, err := n.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		n.recordCall()

		resp, err := n.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				return nil, fmt.Errorf("%s: retryable status %d", n.name, resp.StatusCode)
			}
			return nil, fmt.Errorf("%s: status %d", n.name, resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		n.log.Debug("request failed", "error", err)
		return nil, false
	}
	body, ok := result.([]byte)
	return body, ok
}
