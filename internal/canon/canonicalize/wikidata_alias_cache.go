package canonicalize

import (
	"encoding/json"
	"os"

	"github.com/canonengine/canonengine/internal/logger"
)

// OfflineWikidataAliasCache loads the "P8814" offline mapping file
// (wordnet_wikidata_map.json, built by an out-of-scope script) from
// disk once at startup: WordNet synset id -> Wikidata aliases. A
// missing or unreadable file degrades to an empty cache: enrichment
// becomes a no-op rather than an error.
type OfflineWikidataAliasCache struct {
	aliases map[string][]string
}

// LoadOfflineWikidataAliasCache reads path as a JSON object mapping
// synset id to a list of alias strings. Returns an empty (non-nil)
// cache on any read/parse failure so callers never need a nil check.
func LoadOfflineWikidataAliasCache(path string, log *logger.Logger) *OfflineWikidataAliasCache {
	cache := &OfflineWikidataAliasCache{aliases: make(map[string][]string)}
	if path == "" {
		return cache
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.Info("offline wikidata alias cache not found, enrichment disabled", "path", path)
		}
		return cache
	}
	if err := json.Unmarshal(raw, &cache.aliases); err != nil {
		if log != nil {
			log.Warn("failed to parse offline wikidata alias cache, enrichment disabled", "path", path, "error", err)
		}
		cache.aliases = make(map[string][]string)
	}
	return cache
}

// AliasesFor returns the known aliases for synsetID, if any.
func (c *OfflineWikidataAliasCache) AliasesFor(synsetID string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	aliases, ok := c.aliases[synsetID]
	return aliases, ok && len(aliases) > 0
}
