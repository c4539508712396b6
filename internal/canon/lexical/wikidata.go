package lexical

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
)

// WikidataSource queries Wikidata's wbsearchentities REST API for
// canonical labels and aliases. No API key required; rate limiting is
// courtesy-only (the breaker/TTL cache in netClient cover it).
type WikidataSource struct {
	client *netClient
}

func NewWikidataSource(log *logger.Logger) *WikidataSource {
	return &WikidataSource{client: newNetClient("wikidata", log, time.Hour, 0)}
}

func (w *WikidataSource) Tag() SourceTag { return SourceWikidata }

type wikidataSearchItem struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

type wikidataSearchResponse struct {
	Search []wikidataSearchItem `json:"search"`
}

func (w *WikidataSource) search(ctx context.Context, term string) []wikidataSearchItem {
	u := fmt.Sprintf(
		"https://www.wikidata.org/w/api.php?action=wbsearchentities&format=json&language=en&type=item&limit=5&search=%s",
		url.QueryEscape(term),
	)
	var resp wikidataSearchResponse
	if !w.client.getJSON(ctx, "search:"+strings.ToLower(term), u, nil, &resp) {
		return nil
	}
	return resp.Search
}

func (w *WikidataSource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	items := w.search(ctx, term)
	if len(items) == 0 {
		return Canonical{}, false
	}
	best := items[0]
	forms := append([]string{best.Label}, best.Aliases...)
	return Canonical{
		CanonicalID:    best.ID,
		CanonicalLabel: best.Label,
		AllForms:       forms,
		Gloss:          best.Description,
	}, true
}

func (w *WikidataSource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	return nil
}

func (w *WikidataSource) GetSynonyms(ctx context.Context, term string) []string {
	items := w.search(ctx, term)
	if len(items) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	termLower := strings.ToLower(term)
	for _, item := range items {
		candidates := append([]string{item.Label}, item.Aliases...)
		for _, c := range candidates {
			cl := strings.ToLower(c)
			if cl == termLower {
				continue
			}
			if _, ok := seen[cl]; ok {
				continue
			}
			seen[cl] = struct{}{}
			out = append(out, cl)
		}
	}
	return out
}

// GetHypernyms is not served by wbsearchentities alone (it would need a
// per-level label resolution on top of the P31/P279 claim walk that
// IsSubclassOf does); it returns nil.
func (w *WikidataSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	return nil
}

type wikidataClaimsResponse struct {
	Entities map[string]struct {
		Claims map[string][]struct {
			Mainsnak struct {
				Datavalue struct {
					Value struct {
						ID string `json:"id"`
					} `json:"value"`
				} `json:"datavalue"`
			} `json:"mainsnak"`
		} `json:"claims"`
	} `json:"entities"`
}

// parentEntityIDs returns the P31 (instance-of) and P279 (subclass-of)
// targets of qid, the two edges the class hierarchy is built from.
func (w *WikidataSource) parentEntityIDs(ctx context.Context, qid string) []string {
	u := fmt.Sprintf(
		"https://www.wikidata.org/w/api.php?action=wbgetentities&format=json&props=claims&ids=%s",
		url.QueryEscape(qid),
	)
	var resp wikidataClaimsResponse
	if !w.client.getJSON(ctx, "claims:"+qid, u, nil, &resp) {
		return nil
	}
	var out []string
	for _, entity := range resp.Entities {
		for _, prop := range []string{"P31", "P279"} {
			for _, claim := range entity.Claims[prop] {
				if id := claim.Mainsnak.Datavalue.Value.ID; id != "" {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// entityIDFor resolves a surface term (or an already-lowercased QID) to
// the entity id of its first search hit.
func (w *WikidataSource) entityIDFor(ctx context.Context, term string) (string, bool) {
	if looksLikeQID(term) {
		return strings.ToUpper(term[:1]) + term[1:], true
	}
	items := w.search(ctx, term)
	if len(items) == 0 {
		return "", false
	}
	return items[0].ID, true
}

func looksLikeQID(s string) bool {
	if len(s) < 2 || (s[0] != 'q' && s[0] != 'Q') {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsSubclassOf walks the P31/P279 class hierarchy breadth-first from
// child toward the root, reporting whether parent's entity appears
// within maxDepth edges. Every claim fetch is TTL-cached, so repeated
// ancestor checks over the same subtree cost one network call each.
func (w *WikidataSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	childID, ok := w.entityIDFor(ctx, child)
	if !ok {
		return false
	}
	parentID, ok := w.entityIDFor(ctx, parent)
	if !ok {
		return false
	}
	if childID == parentID {
		return true
	}

	type frontier struct {
		id    string
		depth int
	}
	queue := []frontier{{childID, 0}}
	visited := map[string]struct{}{childID: {}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, pid := range w.parentEntityIDs(ctx, cur.id) {
			if pid == parentID {
				return true
			}
			if _, seen := visited[pid]; seen {
				continue
			}
			visited[pid] = struct{}{}
			queue = append(queue, frontier{pid, cur.depth + 1})
		}
	}
	return false
}
