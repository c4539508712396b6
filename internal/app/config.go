package app

import (
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

// Config collects the environment-driven settings app.New reads at
// startup. It is not the only reader: the scorer, LLM fallback,
// disambiguator, canonicalizer, key canonicalizer and geocoder read
// their own knobs through the utils helpers (so the scorer, fallback
// and key-canonicalizer fields here are loaded but not passed on), and
// LOG_MODE, RUN_API and RUN_FLUSH_WORKER are read with os.Getenv.
type Config struct {
	// Operator surface auth (review-queue endpoints only; there is no
	// end-user session domain in this engine).
	JWTSecretKey string

	// Disambiguation pipeline toggles.
	UseHybridScorer           bool
	HybridWeights             [3]float64
	HybridConfidenceThreshold float64
	EnableLLMFallback         bool
	LLMFallbackModel          string
	EmbeddingModel            string

	// Lexical-adapter API keys; empty disables that adapter.
	BabelNetAPIKey       string
	WordsAPIKey          string
	MerriamWebsterAPIKey string

	// Offline Wikidata-alias enrichment sidecar.
	WordNetWikidataMapPath string

	// Key canonicalizer sidecars and thresholds.
	KeyCanonicalsPath            string
	KeyCanonicalsReviewQueuePath string
	KeyCanonEmbeddingThreshold   float64
	KeyCanonBorderlineThreshold  float64
	KeyCanonHypernymDepth        int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),

		UseHybridScorer:           utils.GetEnvAsBool("USE_HYBRID_SCORER", true, log),
		HybridWeights:             utils.GetEnvAsFloatTriple("HYBRID_WEIGHTS", [3]float64{0.0, 0.7, 0.3}, log),
		HybridConfidenceThreshold: utils.GetEnvAsFloat("HYBRID_CONFIDENCE_THRESHOLD", 0.10, log),
		EnableLLMFallback:         utils.GetEnvAsBool("ENABLE_LLM_FALLBACK", true, log),
		LLMFallbackModel:          utils.GetEnv("LLM_FALLBACK_MODEL", "gpt-5.2-mini", log),
		EmbeddingModel:            utils.GetEnv("EMBEDDING_MODEL", "text-embedding-3-small", log),

		BabelNetAPIKey:       utils.GetEnv("BABELNET_API_KEY", "", log),
		WordsAPIKey:          utils.GetEnv("WORDSAPI_KEY", "", log),
		MerriamWebsterAPIKey: utils.GetEnv("MERRIAM_WEBSTER_API_KEY", "", log),

		WordNetWikidataMapPath: utils.GetEnv("WORDNET_WIKIDATA_MAP_PATH", "wordnet_wikidata_map.json", log),

		KeyCanonicalsPath:            utils.GetEnv("KEY_CANONICALS_PATH", "key_canonicals.json", log),
		KeyCanonicalsReviewQueuePath: utils.GetEnv("KEY_CANONICALS_REVIEW_QUEUE_PATH", "key_canonicals_review_queue.json", log),
		KeyCanonEmbeddingThreshold:   utils.GetEnvAsFloat("KEY_CANON_EMBEDDING_THRESHOLD", 0.80, log),
		KeyCanonBorderlineThreshold:  utils.GetEnvAsFloat("KEY_CANON_BORDERLINE_THRESHOLD", 0.85, log),
		KeyCanonHypernymDepth:        int(utils.GetEnvAsFloat("KEY_CANON_HYPERNYM_DEPTH", 2, log)),
	}
}
