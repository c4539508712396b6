package lexical

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
)

// BabelNetSource queries the BabelNet v9 REST API for multilingual
// synsets, gated on a required API key (free tier: 1000 req/day).
type BabelNetSource struct {
	client *netClient
	apiKey string
}

const babelNetDailyLimit = 950

func NewBabelNetSource(log *logger.Logger, apiKey string) *BabelNetSource {
	return &BabelNetSource{
		client: newNetClient("babelnet", log, time.Hour, babelNetDailyLimit),
		apiKey: apiKey,
	}
}

func (b *BabelNetSource) Tag() SourceTag { return SourceBabelNet }

func (b *BabelNetSource) available() bool { return b.apiKey != "" }

type babelNetSynsetRef struct {
	ID     string `json:"id"`
	POS    string `json:"pos"`
	Source string `json:"source"`
}

func (b *BabelNetSource) synsetIDs(ctx context.Context, term string) []babelNetSynsetRef {
	if !b.available() {
		return nil
	}
	u := fmt.Sprintf(
		"https://babelnet.io/v9/getSynsetIds?lemma=%s&searchLang=EN&key=%s",
		url.QueryEscape(term), url.QueryEscape(b.apiKey),
	)
	var refs []babelNetSynsetRef
	if !b.client.getJSON(ctx, "ids:"+strings.ToLower(term), u, nil, &refs) {
		return nil
	}
	return refs
}

type babelNetSenseEntry struct {
	Properties struct {
		SimpleLemma string `json:"simpleLemma"`
	} `json:"properties"`
}

type babelNetGlossEntry struct {
	Gloss string `json:"gloss"`
}

type babelNetSynsetDetail struct {
	Senses  []babelNetSenseEntry `json:"senses"`
	Glosses []babelNetGlossEntry `json:"glosses"`
}

func (b *BabelNetSource) synsetDetail(ctx context.Context, synsetID string) (babelNetSynsetDetail, bool) {
	if !b.available() {
		return babelNetSynsetDetail{}, false
	}
	u := fmt.Sprintf(
		"https://babelnet.io/v9/getSynset?id=%s&targetLang=EN&key=%s",
		url.QueryEscape(synsetID), url.QueryEscape(b.apiKey),
	)
	var detail babelNetSynsetDetail
	if !b.client.getJSON(ctx, "detail:"+synsetID, u, nil, &detail) {
		return babelNetSynsetDetail{}, false
	}
	return detail, true
}

func (b *BabelNetSource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	refs := b.synsetIDs(ctx, term)
	if len(refs) == 0 {
		return Canonical{}, false
	}
	detail, ok := b.synsetDetail(ctx, refs[0].ID)
	if !ok {
		return Canonical{}, false
	}
	forms := make([]string, 0, len(detail.Senses))
	for _, s := range detail.Senses {
		if s.Properties.SimpleLemma != "" {
			forms = append(forms, strings.ReplaceAll(s.Properties.SimpleLemma, "_", " "))
		}
	}
	if len(forms) == 0 {
		return Canonical{}, false
	}
	gloss := ""
	if len(detail.Glosses) > 0 {
		gloss = detail.Glosses[0].Gloss
	}
	return Canonical{
		CanonicalID:    refs[0].ID,
		CanonicalLabel: forms[0],
		AllForms:       forms,
		Gloss:          gloss,
	}, true
}

func (b *BabelNetSource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	refs := b.synsetIDs(ctx, term)
	if len(refs) == 0 {
		return nil
	}
	out := make([]SynsetGloss, 0, len(refs))
	for _, ref := range refs {
		detail, ok := b.synsetDetail(ctx, ref.ID)
		if !ok {
			continue
		}
		var lemmas []string
		for _, s := range detail.Senses {
			if s.Properties.SimpleLemma != "" {
				lemmas = append(lemmas, strings.ReplaceAll(s.Properties.SimpleLemma, "_", " "))
			}
		}
		gloss := ""
		if len(detail.Glosses) > 0 {
			gloss = detail.Glosses[0].Gloss
		}
		out = append(out, SynsetGloss{SynsetID: ref.ID, Gloss: gloss, Lemmas: lemmas})
	}
	return out
}

func (b *BabelNetSource) GetSynonyms(ctx context.Context, term string) []string {
	glosses := b.GetGlossesPerSynset(ctx, term)
	seen := map[string]struct{}{}
	var out []string
	termLower := strings.ToLower(term)
	for _, g := range glosses {
		for _, l := range g.Lemmas {
			ll := strings.ToLower(l)
			if ll == termLower {
				continue
			}
			if _, ok := seen[ll]; ok {
				continue
			}
			seen[ll] = struct{}{}
			out = append(out, ll)
		}
	}
	return out
}

// GetHypernyms requires a follow-up getOutgoingEdges call this adapter
// doesn't make (BabelNet serves hypernym/hyponym data via a separate
// endpoint than synset detail); it returns nil and callers fall back to
// WordNet for hierarchy traversal.
func (b *BabelNetSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	return nil
}

func (b *BabelNetSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	return false
}
