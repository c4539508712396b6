package lexical

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
)

// WordsAPISource queries WordsAPI (via RapidAPI) for definitions grouped
// by sense, including per-sense synonyms and type_of/has_types hierarchy
// links. Its key advantage over Datamuse/BabelNet flat synonym lists is
// that synonyms arrive already grouped by sense.
type WordsAPISource struct {
	client *netClient
	apiKey string
}

const wordsAPIDailyLimit = 2400 // buffer under the 2500/day free tier

func NewWordsAPISource(log *logger.Logger, apiKey string) *WordsAPISource {
	return &WordsAPISource{
		client: newNetClient("wordsapi", log, time.Hour, wordsAPIDailyLimit),
		apiKey: apiKey,
	}
}

func (w *WordsAPISource) Tag() SourceTag { return SourceWordsAPI }

func (w *WordsAPISource) available() bool { return w.apiKey != "" }

type wordsAPIEntry struct {
	Definition string   `json:"definition"`
	PartOfSp   string   `json:"partOfSpeech"`
	Synonyms   []string `json:"synonyms"`
	TypeOf     []string `json:"typeOf"`
	HasTypes   []string `json:"hasTypes"`
}

type wordsAPIResponse struct {
	Word    string          `json:"word"`
	Results []wordsAPIEntry `json:"results"`
}

func (w *WordsAPISource) definitions(ctx context.Context, term string) []wordsAPIEntry {
	if !w.available() {
		return nil
	}
	u := fmt.Sprintf("https://wordsapiv1.p.rapidapi.com/words/%s", url.PathEscape(term))
	headers := map[string]string{
		"X-RapidAPI-Key":  w.apiKey,
		"X-RapidAPI-Host": "wordsapiv1.p.rapidapi.com",
	}
	var resp wordsAPIResponse
	if !w.client.getJSON(ctx, "defs:"+strings.ToLower(term), u, headers, &resp) {
		return nil
	}
	return resp.Results
}

func (w *WordsAPISource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	entries := w.definitions(ctx, term)
	if len(entries) == 0 {
		return Canonical{}, false
	}
	best := entries[0]
	return Canonical{
		CanonicalID:    strings.ToLower(term) + ":0",
		CanonicalLabel: term,
		AllForms:       best.Synonyms,
		Hypernyms:      best.TypeOf,
		Gloss:          best.Definition,
	}, true
}

// GetGlossesPerSynset maps each WordsAPI sense to a SynsetGloss, reusing
// the slot-index-as-id convention GetCanonical uses.
func (w *WordsAPISource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	entries := w.definitions(ctx, term)
	if len(entries) == 0 {
		return nil
	}
	out := make([]SynsetGloss, 0, len(entries))
	for i, e := range entries {
		out = append(out, SynsetGloss{
			SynsetID:  fmt.Sprintf("%s:%d", strings.ToLower(term), i),
			Gloss:     e.Definition,
			Lemmas:    e.Synonyms,
			Hypernyms: e.TypeOf,
		})
	}
	return out
}

func (w *WordsAPISource) GetSynonyms(ctx context.Context, term string) []string {
	entries := w.definitions(ctx, term)
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entries {
		for _, s := range e.Synonyms {
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

func (w *WordsAPISource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	entries := w.definitions(ctx, term)
	if len(entries) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entries {
		for _, t := range e.TypeOf {
			tl := strings.ToLower(t)
			if _, ok := seen[tl]; ok {
				continue
			}
			seen[tl] = struct{}{}
			out = append(out, tl)
		}
	}
	return out
}

func (w *WordsAPISource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	parents := w.GetHypernyms(ctx, child, 1)
	parentLower := strings.ToLower(parent)
	for _, p := range parents {
		if p == parentLower {
			return true
		}
	}
	return false
}
