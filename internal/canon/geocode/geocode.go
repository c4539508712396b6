// Package geocode is the listing orchestrator's location collaborator:
// a thin Nominatim (OpenStreetMap) client with a client-enforced
// 1 req/sec rate limit, a JSON file cache keyed by the normalized query
// string, and Haversine distance between resolved points. Out of the
// canonicalization core proper, but specified as a concrete external
// interface the orchestrator depends on, so it gets a real adapter
// rather than a stub.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

// Point is a resolved geographic location.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Result is a single geocode hit, the subset of Nominatim's response the
// orchestrator needs.
type Result struct {
	DisplayName string `json:"display_name"`
	Point       Point  `json:"point"`
}

type httpGetter interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the Nominatim-backed geocoder: a process-wide rate-limited
// HTTP client in front of a JSON file cache, so repeated lookups of the
// same free-form location string across a listing ingest never re-hit
// the network.
type Client struct {
	log       *logger.Logger
	http      httpGetter
	baseURL   string
	cachePath string

	mu        sync.Mutex
	cache     map[string]Result
	lastCall  time.Time
	minPeriod time.Duration
}

func NewClient(log *logger.Logger) *Client {
	log = log.With("component", "geocode.Client")
	c := &Client{
		log:       log,
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   utils.GetEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org", log),
		cachePath: utils.GetEnv("GEOCODING_CACHE_PATH", "geocoding_cache.json", log),
		cache:     make(map[string]Result),
		minPeriod: time.Second, // Nominatim's usage policy: max 1 req/sec.
	}
	c.loadCache()
	return c
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Geocode resolves a free-form location string to a Result, consulting
// the JSON cache first. Returns ok=false on any transport failure, empty
// response, or parse error; geocoding failures never block listing
// ingest.
func (c *Client) Geocode(ctx context.Context, query string) (Result, bool) {
	key := normalizeQuery(query)
	if key == "" {
		return Result{}, false
	}

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, true
	}
	c.mu.Unlock()

	c.waitForRateLimit()

	result, ok := c.fetch(ctx, key)
	if !ok {
		return Result{}, false
	}

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()
	c.saveCache()

	return result, true
}

// waitForRateLimit blocks until at least minPeriod has elapsed since the
// last outbound request, enforcing Nominatim's 1 req/sec policy
// client-side.
func (c *Client) waitForRateLimit() {
	c.mu.Lock()
	wait := time.Duration(0)
	if !c.lastCall.IsZero() {
		elapsed := time.Since(c.lastCall)
		if elapsed < c.minPeriod {
			wait = c.minPeriod - elapsed
		}
	}
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

type nominatimHit struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (c *Client) fetch(ctx context.Context, query string) (result Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("geocode request panicked, degrading to no result", "recovered", r)
			ok = false
		}
	}()

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, false
	}
	req.Header.Set("User-Agent", "canonengine/1.0")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("geocode request failed", "error", err)
		return Result{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Debug("geocode request returned error status", "status", resp.StatusCode)
		return Result{}, false
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil || len(hits) == 0 {
		return Result{}, false
	}

	var lat, lon float64
	if _, err := fmt.Sscanf(hits[0].Lat, "%f", &lat); err != nil {
		return Result{}, false
	}
	if _, err := fmt.Sscanf(hits[0].Lon, "%f", &lon); err != nil {
		return Result{}, false
	}

	return Result{DisplayName: hits[0].DisplayName, Point: Point{Lat: lat, Lon: lon}}, true
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in
// kilometers.
func HaversineKm(a, b Point) float64 {
	lat1, lon1 := toRadians(a.Lat), toRadians(a.Lon)
	lat2, lon2 := toRadians(b.Lat), toRadians(b.Lon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func (c *Client) loadCache() {
	raw, err := os.ReadFile(c.cachePath)
	if err != nil {
		return
	}
	var cache map[string]Result
	if err := json.Unmarshal(raw, &cache); err != nil {
		c.log.Warn("failed to parse geocoding cache, starting empty", "error", err)
		return
	}
	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()
}

func (c *Client) saveCache() {
	c.mu.Lock()
	raw, err := json.MarshalIndent(c.cache, "", " ")
	c.mu.Unlock()
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cachePath, raw, 0o644); err != nil {
		c.log.Warn("failed to persist geocoding cache", "error", err)
	}
}
