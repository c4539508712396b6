package lexical

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canonengine/canonengine/internal/logger"
)

// DatamuseSource queries the free, keyless Datamuse word-finding API
// (https://api.datamuse.com/words) for synonym and related-word lookups.
// No API key or daily quota applies; only the TTL cache and circuit
// breaker guard it.
type DatamuseSource struct {
	client *netClient
}

func NewDatamuseSource(log *logger.Logger) *DatamuseSource {
	return &DatamuseSource{client: newNetClient("datamuse", log, time.Hour, 0)}
}

func (d *DatamuseSource) Tag() SourceTag { return SourceDatamuse }

type datamuseWord struct {
	Word  string   `json:"word"`
	Score int      `json:"score"`
	Tags  []string `json:"tags"`
}

func (d *DatamuseSource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	words := d.meansLike(ctx, term)
	if len(words) == 0 {
		return Canonical{}, false
	}
	// The first means-like result is Datamuse's highest-scored match,
	// treated as the closest canonical relative.
	top := words[0]
	forms := make([]string, 0, len(words))
	for _, w := range words {
		forms = append(forms, w.Word)
	}
	// Datamuse has no sense inventory, so the single candidate carries a
	// pseudo-gloss listing the related words.
	return Canonical{
		CanonicalID:    top.Word,
		CanonicalLabel: top.Word,
		AllForms:       forms,
		Gloss:          "synonyms: " + strings.Join(forms, ", "),
	}, true
}

func (d *DatamuseSource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	return nil
}

func (d *DatamuseSource) GetSynonyms(ctx context.Context, term string) []string {
	var out []string
	for _, w := range d.synonyms(ctx, term) {
		out = append(out, w.Word)
	}
	return out
}

// GetHypernyms is not directly exposed by Datamuse's relation set; it
// returns nil, matching other non-hierarchical sources.
func (d *DatamuseSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	return nil
}

func (d *DatamuseSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	return false
}

func (d *DatamuseSource) synonyms(ctx context.Context, term string) []datamuseWord {
	u := fmt.Sprintf("https://api.datamuse.com/words?rel_syn=%s", url.QueryEscape(term))
	var out []datamuseWord
	if !d.client.getJSON(ctx, "syn:"+strings.ToLower(term), u, nil, &out) {
		return nil
	}
	return out
}

func (d *DatamuseSource) meansLike(ctx context.Context, term string) []datamuseWord {
	u := fmt.Sprintf("https://api.datamuse.com/words?ml=%s", url.QueryEscape(term))
	var out []datamuseWord
	if !d.client.getJSON(ctx, "ml:"+strings.ToLower(term), u, nil, &out) {
		return nil
	}
	return out
}
