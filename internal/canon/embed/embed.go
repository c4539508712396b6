// Package embed provides the single shared text-embedding provider the
// hybrid scorer, the WordNet gloss-context reranker, and the key
// canonicalizer's cascade all call into. Embeddings are expensive and
// term/gloss pairs recur heavily across a listing, so results are cached
// by input text (surrounding whitespace ignored) for the process lifetime.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/canonengine/canonengine/internal/logger"
)

// Client is the narrow embeddings surface this package needs — satisfied
// by internal/clients/openai.Client.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Provider hands out single-vector embeddings for short strings (terms,
// glosses, listing context), caching by content hash. Never returns an
// error to callers that can tolerate degrading to empty: Encode returns
// (nil, err) only to let scorers distinguish "no vector" from "zero
// vector" — every caller in this codebase treats an error the same as a
// cache miss and proceeds without the embedding signal.
type Provider struct {
	log    *logger.Logger
	client Client

	mu    sync.RWMutex
	cache map[string][]float32
}

func NewProvider(log *logger.Logger, client Client) *Provider {
	return &Provider{
		log:    log.With("component", "embed.Provider"),
		client: client,
		cache:  make(map[string][]float32),
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Encode returns the embedding vector for text, consulting the cache
// first. Blank text or an unconfigured client yields (nil, nil); an
// error is returned only when the underlying request fails. Callers
// already expect to proceed without the signal in either case.
func (p *Provider) Encode(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	key := cacheKey(text)
	p.mu.RLock()
	if v, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return v, nil
	}
	p.mu.RUnlock()

	if p.client == nil {
		return nil, nil
	}

	vecs, err := p.client.Embed(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		p.log.Debug("embedding request failed", "error", err)
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = vecs[0]
	p.mu.Unlock()

	return vecs[0], nil
}

// EncodeBatch embeds many strings in one request, preserving the cache
// for inputs seen before and only requesting the uncached remainder. The
// return slice is always the same length as texts; entries for inputs
// that fail remain nil rather than aborting the whole batch.
func (p *Provider) EncodeBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		key := cacheKey(t)
		p.mu.RLock()
		v, ok := p.cache[key]
		p.mu.RUnlock()
		if ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 || p.client == nil {
		return out
	}

	vecs, err := p.client.Embed(ctx, missTexts)
	if err != nil {
		p.log.Debug("batch embedding request failed", "error", err, "count", len(missTexts))
		return out
	}

	p.mu.Lock()
	for i, idx := range missIdx {
		if i >= len(vecs) || vecs[i] == nil {
			continue
		}
		out[idx] = vecs[i]
		p.cache[cacheKey(missTexts[i])] = vecs[i]
	}
	p.mu.Unlock()

	return out
}
