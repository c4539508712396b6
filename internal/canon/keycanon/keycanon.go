// Package keycanon implements the key canonicalizer: a
// domain-scoped resolver for attribute *keys* ("style", "variety",
// "kind") rather than values, using a layered synset/hypernym/embedding
// cascade, a per-domain similarity graph that makes the mapping
// connected-component-stable, and a human-review queue for borderline
// embedding matches.
package keycanon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/canonengine/canonengine/internal/canon/embed"
	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

// keyBlockList extends canonicalize's abstract-parent block-list with
// mid-level hypernyms that empirically produced false positives when
// unioning attribute keys.
var keyBlockList = map[string]struct{}{
	"entity": {}, "object": {}, "abstraction": {}, "thing": {}, "whole": {},
	"matter": {}, "substance": {}, "unit": {}, "artifact": {}, "science": {},
	"discipline": {}, "study": {}, "activity": {}, "work": {}, "act": {},
	"action": {}, "physical_entity": {},
	"attribute.n.02": {}, "communication.n.02": {}, "group.n.01": {},
	"relation.n.01": {}, "process.n.06": {}, "causal_agent.n.01": {},
	"matter.n.03": {},
}

// ReviewStatus is the lifecycle state of a borderline-match review entry.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewEntry is a borderline layer-4 (embedding) match awaiting an
// operator decision. The mapping itself is already live when the entry
// is flagged; rejection is what unwinds it.
type ReviewEntry struct {
	ID              string       `json:"id"`
	Domain          string       `json:"domain"`
	Key             string       `json:"key"`
	MatchedKey      string       `json:"matched_key"`
	Similarity      float64      `json:"similarity"`
	Status          ReviewStatus `json:"status"`
	HypernymToBlock string       `json:"hypernym_to_block,omitempty"`
}

// keyNode tracks what the cascade has learned about one (domain, key)
// pair: its insertion order (for "first one written" canonical choice)
// and its cached WordNet synset/hypernym labels.
type keyNode struct {
	key       string
	order     int
	synsetIDs []string
	hypernyms []string
}

// domainState holds one domain's similarity graph, canonical mapping,
// and key registry.
type domainState struct {
	nextOrder int
	nodes     map[string]*keyNode // key -> node
	adjacency map[string]map[string]struct{}
	canonical map[string]string // key -> canonical key (graph-connected-component-stable)
}

func newDomainState() *domainState {
	return &domainState{
		nodes:     make(map[string]*keyNode),
		adjacency: make(map[string]map[string]struct{}),
		canonical: make(map[string]string),
	}
}

// Canonicalizer is the key canonicalizer. One process-wide instance,
// mutex-guarded, sharded internally by domain.
type Canonicalizer struct {
	log     *logger.Logger
	wordnet *lexical.WordNetSource
	embed   *embed.Provider

	embeddingThreshold  float64
	borderlineThreshold float64
	hypernymDepth       int

	mappingPath     string
	reviewQueuePath string

	mu      sync.Mutex
	domains map[string]*domainState
	queue   []ReviewEntry
}

func New(log *logger.Logger, wordnet *lexical.WordNetSource, embedder *embed.Provider) *Canonicalizer {
	log = log.With("component", "keycanon.Canonicalizer")
	c := &Canonicalizer{
		log:                 log,
		wordnet:             wordnet,
		embed:               embedder,
		embeddingThreshold:  utils.GetEnvAsFloat("KEY_CANON_EMBEDDING_THRESHOLD", 0.80, log),
		borderlineThreshold: utils.GetEnvAsFloat("KEY_CANON_BORDERLINE_THRESHOLD", 0.85, log),
		hypernymDepth:       int(utils.GetEnvAsFloat("KEY_CANON_HYPERNYM_DEPTH", 2, log)),
		mappingPath:         utils.GetEnv("KEY_CANONICALS_PATH", "key_canonicals.json", log),
		reviewQueuePath:     utils.GetEnv("KEY_CANONICALS_REVIEW_QUEUE_PATH", "key_canonicals_review_queue.json", log),
		domains:             make(map[string]*domainState),
	}
	c.loadSidecars()
	return c
}

// Canonicalize returns the stable canonical key for (domain, key),
// running the layered cascade on a miss. Repeated calls with the same
// (domain, key) return the same canonical within a session and, via the
// JSON sidecars, across sessions too.
func (c *Canonicalizer) Canonicalize(ctx context.Context, domain, key string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return key
	}

	c.mu.Lock()
	ds := c.domainFor(domain)
	if canon, ok := ds.canonical[key]; ok {
		c.mu.Unlock()
		return canon
	}
	c.mu.Unlock()

	if matched, ok := c.cascadeMatch(ctx, domain, key); ok {
		return c.joinComponent(domain, key, matched)
	}

	// Fallback: the key canonicalizes to itself.
	c.registerNode(domain, key)
	c.mu.Lock()
	ds = c.domainFor(domain)
	ds.canonical[key] = key
	c.mu.Unlock()
	c.saveSidecars()
	return key
}

func (c *Canonicalizer) domainFor(domain string) *domainState {
	ds, ok := c.domains[domain]
	if !ok {
		ds = newDomainState()
		c.domains[domain] = ds
	}
	return ds
}

// registerNode ensures (domain, key) has a keyNode populated with its
// WordNet synset ids and hypernym labels, assigning it the next
// insertion order in the domain if it is new.
func (c *Canonicalizer) registerNode(domain, key string) *keyNode {
	c.mu.Lock()
	ds := c.domainFor(domain)
	if node, ok := ds.nodes[key]; ok {
		c.mu.Unlock()
		return node
	}
	order := ds.nextOrder
	ds.nextOrder++
	node := &keyNode{key: key, order: order}
	ds.nodes[key] = node
	c.mu.Unlock()

	if c.wordnet != nil {
		glosses := c.wordnet.GetGlossesPerSynset(context.Background(), key)
		synsetIDs := make([]string, 0, len(glosses))
		for _, g := range glosses {
			synsetIDs = append(synsetIDs, g.SynsetID)
		}
		hypernyms := c.wordnet.GetHypernyms(context.Background(), key, c.hypernymDepth)

		c.mu.Lock()
		node.synsetIDs = synsetIDs
		node.hypernyms = hypernyms
		c.mu.Unlock()
	}
	return node
}

// cascadeMatch runs layers 1 (handled by the caller's canonical-map
// check)-4 against every previously canonicalized key in the domain,
// returning the first key it matches against.
func (c *Canonicalizer) cascadeMatch(ctx context.Context, domain, key string) (string, bool) {
	node := c.registerNode(domain, key)

	c.mu.Lock()
	ds := c.domainFor(domain)
	priorKeys := make([]string, 0, len(ds.nodes))
	for k, n := range ds.nodes {
		if k != key && n.order < node.order {
			priorKeys = append(priorKeys, k)
		}
	}
	c.mu.Unlock()

	if len(priorKeys) == 0 {
		return "", false
	}

	// Layer 2: shared WordNet synset.
	if matched, ok := c.matchBySynset(domain, node, priorKeys); ok {
		return matched, true
	}

	// Layer 3: shared hypernym within depth, block-list-gated.
	if matched, ok := c.matchByHypernym(domain, node, priorKeys); ok {
		return matched, true
	}

	// Layer 4: embedding cosine similarity.
	if matched, ok := c.matchByEmbedding(ctx, domain, key, priorKeys); ok {
		return matched, true
	}

	return "", false
}

func (c *Canonicalizer) matchBySynset(domain string, node *keyNode, priorKeys []string) (string, bool) {
	if len(node.synsetIDs) == 0 {
		return "", false
	}
	own := toSet(node.synsetIDs)
	c.mu.Lock()
	ds := c.domainFor(domain)
	defer c.mu.Unlock()
	for _, pk := range priorKeys {
		other := ds.nodes[pk]
		if other == nil {
			continue
		}
		for _, sid := range other.synsetIDs {
			if _, ok := own[sid]; ok {
				return pk, true
			}
		}
	}
	return "", false
}

func (c *Canonicalizer) matchByHypernym(domain string, node *keyNode, priorKeys []string) (string, bool) {
	ownHypernyms := filterBlocked(node.hypernyms)
	if len(ownHypernyms) == 0 {
		return "", false
	}
	own := toSet(ownHypernyms)

	c.mu.Lock()
	ds := c.domainFor(domain)
	defer c.mu.Unlock()
	for _, pk := range priorKeys {
		other := ds.nodes[pk]
		if other == nil {
			continue
		}
		for _, h := range filterBlocked(other.hypernyms) {
			if _, ok := own[h]; ok {
				return pk, true
			}
		}
	}
	return "", false
}

func filterBlocked(hypernyms []string) []string {
	out := make([]string, 0, len(hypernyms))
	for _, h := range hypernyms {
		label := strings.ToLower(strings.ReplaceAll(h, " ", "_"))
		if _, blocked := keyBlockList[label]; blocked {
			continue
		}
		if _, blocked := keyBlockList[strings.ToLower(h)]; blocked {
			continue
		}
		out = append(out, strings.ToLower(h))
	}
	return out
}

// embedPhrase builds the value-contamination-free template: value
// strings are never embedded alongside the key.
func embedPhrase(domain, key string) string {
	return fmt.Sprintf("In %s products, the attribute '%s' describes", domain, key)
}

func (c *Canonicalizer) matchByEmbedding(ctx context.Context, domain, key string, priorKeys []string) (string, bool) {
	if c.embed == nil {
		return "", false
	}
	ownVec, err := c.embed.Encode(ctx, embedPhrase(domain, key))
	if err != nil || len(ownVec) == 0 {
		return "", false
	}

	bestKey := ""
	bestSim := -2.0
	for _, pk := range priorKeys {
		otherVec, err := c.embed.Encode(ctx, embedPhrase(domain, pk))
		if err != nil || len(otherVec) == 0 {
			continue
		}
		sim := cosineSimilarity(ownVec, otherVec)
		if sim > bestSim {
			bestSim = sim
			bestKey = pk
		}
	}
	if bestKey == "" {
		return "", false
	}

	if bestSim < c.embeddingThreshold {
		return "", false
	}
	// Matches in [threshold, borderline) join immediately but are
	// flagged for review; rejection unwinds the join later.
	if bestSim < c.borderlineThreshold {
		c.flagForReview(domain, key, bestKey, bestSim)
	}
	return bestKey, true
}

// flagForReview appends a pending review entry, duplicate-suppressed on
// (domain, key, matched_key).
func (c *Canonicalizer) flagForReview(domain, key, matchedKey string, similarity float64) {
	c.mu.Lock()
	for _, entry := range c.queue {
		if entry.Domain == domain && entry.Key == key && entry.MatchedKey == matchedKey && entry.Status == ReviewPending {
			c.mu.Unlock()
			return
		}
	}
	entry := ReviewEntry{
		ID:         fmt.Sprintf("%s:%s:%s", domain, key, matchedKey),
		Domain:     domain,
		Key:        key,
		MatchedKey: matchedKey,
		Similarity: similarity,
		Status:     ReviewPending,
	}
	c.queue = append(c.queue, entry)
	c.mu.Unlock()
	c.saveSidecars()
}

// joinComponent adds an edge between key and matchedKey in the domain's
// similarity graph, then recomputes the canonical for the whole
// connected component as its earliest-inserted member.
func (c *Canonicalizer) joinComponent(domain, key, matchedKey string) string {
	c.mu.Lock()
	ds := c.domainFor(domain)
	addEdge(ds.adjacency, key, matchedKey)
	component := connectedComponent(ds.adjacency, key)
	canonical := earliestInserted(ds, component)
	for _, member := range component {
		ds.canonical[member] = canonical
	}
	c.mu.Unlock()
	c.saveSidecars()
	return canonical
}

func addEdge(adj map[string]map[string]struct{}, a, b string) {
	if adj[a] == nil {
		adj[a] = make(map[string]struct{})
	}
	if adj[b] == nil {
		adj[b] = make(map[string]struct{})
	}
	adj[a][b] = struct{}{}
	adj[b][a] = struct{}{}
}

func connectedComponent(adj map[string]map[string]struct{}, start string) []string {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for neighbor := range adj[cur] {
			if _, ok := visited[neighbor]; !ok {
				visited[neighbor] = struct{}{}
				queue = append(queue, neighbor)
			}
		}
	}
	return out
}

func earliestInserted(ds *domainState, component []string) string {
	best := ""
	bestOrder := int(^uint(0) >> 1)
	for _, k := range component {
		node, ok := ds.nodes[k]
		if !ok {
			continue
		}
		if node.order < bestOrder {
			bestOrder = node.order
			best = k
		}
	}
	if best == "" && len(component) > 0 {
		best = component[0]
	}
	return best
}

// Reject handles an operator rejecting a pending review entry: it
// removes the graph edge, recomputes the canonical for what is left of
// both the rejected key's and the matched key's components, and
// optionally records a hypernym to add to the mid-level block-list. The
// rejected key is bound to itself only when no other edge still joins it
// to a component; otherwise it takes that component's canonical.
// Returns false if no matching pending entry exists. This is the only
// path that ever unbinds a canonical mapping.
func (c *Canonicalizer) Reject(entryID string, hypernymToBlock string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, e := range c.queue {
		if e.ID == entryID && e.Status == ReviewPending {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	entry := c.queue[idx]
	entry.Status = ReviewRejected
	if hypernymToBlock != "" {
		entry.HypernymToBlock = hypernymToBlock
	}
	c.queue[idx] = entry

	ds := c.domainFor(entry.Domain)
	if ds.adjacency[entry.Key] != nil {
		delete(ds.adjacency[entry.Key], entry.MatchedKey)
	}
	if ds.adjacency[entry.MatchedKey] != nil {
		delete(ds.adjacency[entry.MatchedKey], entry.Key)
	}

	// The rejected key keeps whatever component its remaining edges
	// leave it in; with no edges left that component is just itself.
	for _, start := range []string{entry.Key, entry.MatchedKey} {
		component := connectedComponent(ds.adjacency, start)
		canonical := earliestInserted(ds, component)
		for _, member := range component {
			ds.canonical[member] = canonical
		}
	}

	if hypernymToBlock != "" {
		keyBlockList[strings.ToLower(hypernymToBlock)] = struct{}{}
	}

	c.saveSidecarsLocked()
	return true
}

// Approve marks a pending review entry approved. No mapping change: the
// borderline match already joined the component when it was flagged.
func (c *Canonicalizer) Approve(entryID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.queue {
		if e.ID == entryID && e.Status == ReviewPending {
			c.queue[i].Status = ReviewApproved
			c.saveSidecarsLocked()
			return true
		}
	}
	return false
}

// PendingReviews returns all pending review entries across domains.
func (c *Canonicalizer) PendingReviews() []ReviewEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ReviewEntry, 0, len(c.queue))
	for _, e := range c.queue {
		if e.Status == ReviewPending {
			out = append(out, e)
		}
	}
	return out
}

func toSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sidecarFile is the on-disk shape for key_canonicals.json: per-domain
// canonical mappings and graph edges. Embeddings are deliberately not
// persisted.
type sidecarFile struct {
	Domains map[string]domainSidecar `json:"domains"`
}

type domainSidecar struct {
	Canonical map[string]string `json:"canonical"`
	Edges     [][2]string       `json:"edges"`
	Order     map[string]int    `json:"order"`
}

func (c *Canonicalizer) loadSidecars() {
	if raw, err := os.ReadFile(c.mappingPath); err == nil {
		var file sidecarFile
		if err := json.Unmarshal(raw, &file); err == nil {
			for domain, ds := range file.Domains {
				state := newDomainState()
				for key, order := range ds.Order {
					state.nodes[key] = &keyNode{key: key, order: order}
					if order >= state.nextOrder {
						state.nextOrder = order + 1
					}
				}
				for key, canon := range ds.Canonical {
					state.canonical[key] = canon
				}
				for _, edge := range ds.Edges {
					addEdge(state.adjacency, edge[0], edge[1])
				}
				c.domains[domain] = state
			}
		} else {
			c.log.Warn("failed to parse key canonicals sidecar, starting empty", "error", err)
		}
	}

	if raw, err := os.ReadFile(c.reviewQueuePath); err == nil {
		var queue []ReviewEntry
		if err := json.Unmarshal(raw, &queue); err == nil {
			c.queue = queue
		} else {
			c.log.Warn("failed to parse review queue sidecar, starting empty", "error", err)
		}
	}
}

func (c *Canonicalizer) saveSidecars() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveSidecarsLocked()
}

// saveSidecarsLocked writes both sidecar files; the caller must already
// hold c.mu. Failures are logged, never propagated, the in-memory state
// remains authoritative for the rest of the process lifetime.
func (c *Canonicalizer) saveSidecarsLocked() {
	file := sidecarFile{Domains: make(map[string]domainSidecar, len(c.domains))}
	for domain, ds := range c.domains {
		edges := make([][2]string, 0)
		seen := map[string]struct{}{}
		for a, neighbors := range ds.adjacency {
			for b := range neighbors {
				key := edgeKey(a, b)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				edges = append(edges, [2]string{a, b})
			}
		}
		order := make(map[string]int, len(ds.nodes))
		for k, n := range ds.nodes {
			order[k] = n.order
		}
		file.Domains[domain] = domainSidecar{
			Canonical: ds.canonical,
			Edges:     edges,
			Order:     order,
		}
	}

	if raw, err := json.MarshalIndent(file, "", " "); err == nil {
		if err := os.WriteFile(c.mappingPath, raw, 0o644); err != nil {
			c.log.Warn("failed to persist key canonicals sidecar", "error", err)
		}
	}
	if raw, err := json.MarshalIndent(c.queue, "", " "); err == nil {
		if err := os.WriteFile(c.reviewQueuePath, raw, 0o644); err != nil {
			c.log.Warn("failed to persist review queue sidecar", "error", err)
		}
	}
}

func edgeKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
