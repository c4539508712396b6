package lexical

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
)

// MerriamWebsterSource queries the Merriam-Webster Collegiate Dictionary
// API — useful for slang and recently-coined terms WordNet lacks.
type MerriamWebsterSource struct {
	client *netClient
	apiKey string
}

const merriamWebsterDailyLimit = 1000

func NewMerriamWebsterSource(log *logger.Logger, apiKey string) *MerriamWebsterSource {
	return &MerriamWebsterSource{
		client: newNetClient("merriam-webster", log, time.Hour, merriamWebsterDailyLimit),
		apiKey: apiKey,
	}
}

func (m *MerriamWebsterSource) Tag() SourceTag { return SourceMerriamWebster }

func (m *MerriamWebsterSource) available() bool { return m.apiKey != "" }

type merriamWebsterEntry struct {
	Meta struct {
		ID   string     `json:"id"`
		Syns [][]string `json:"syns"`
	} `json:"meta"`
	Fl       string   `json:"fl"` // functional label: noun, verb, adjective...
	Shortdef []string `json:"shortdef"`
}

func (m *MerriamWebsterSource) lookup(ctx context.Context, term string) []merriamWebsterEntry {
	if !m.available() {
		return nil
	}
	u := fmt.Sprintf(
		"https://www.dictionaryapi.com/api/v3/references/collegiate/json/%s?key=%s",
		url.PathEscape(term), url.QueryEscape(m.apiKey),
	)
	var entries []merriamWebsterEntry
	if !m.client.getJSON(ctx, "def:"+strings.ToLower(term), u, nil, &entries) {
		return nil
	}
	return entries
}

func (m *MerriamWebsterSource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	entries := m.lookup(ctx, term)
	if len(entries) == 0 {
		return Canonical{}, false
	}
	best := entries[0]
	gloss := ""
	if len(best.Shortdef) > 0 {
		gloss = best.Shortdef[0]
	}
	return Canonical{
		CanonicalID:    best.Meta.ID,
		CanonicalLabel: term,
		AllForms:       flattenSyns(best.Meta.Syns),
		Gloss:          gloss,
	}, true
}

func (m *MerriamWebsterSource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	entries := m.lookup(ctx, term)
	if len(entries) == 0 {
		return nil
	}
	out := make([]SynsetGloss, 0, len(entries))
	for _, e := range entries {
		gloss := ""
		if len(e.Shortdef) > 0 {
			gloss = e.Shortdef[0]
		}
		out = append(out, SynsetGloss{SynsetID: e.Meta.ID, Gloss: gloss, Lemmas: flattenSyns(e.Meta.Syns)})
	}
	return out
}

func (m *MerriamWebsterSource) GetSynonyms(ctx context.Context, term string) []string {
	entries := m.lookup(ctx, term)
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entries {
		for _, s := range flattenSyns(e.Meta.Syns) {
			sl := strings.ToLower(s)
			if _, ok := seen[sl]; ok {
				continue
			}
			seen[sl] = struct{}{}
			out = append(out, sl)
		}
	}
	return out
}

// GetHypernyms is not modeled by Merriam-Webster's schema (no type_of
// field); it returns nil.
func (m *MerriamWebsterSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	return nil
}

func (m *MerriamWebsterSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	return false
}

func flattenSyns(groups [][]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
