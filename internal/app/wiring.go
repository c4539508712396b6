package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/canonengine/canonengine/internal/canon/canonicalize"
	"github.com/canonengine/canonengine/internal/canon/disambiguate"
	"github.com/canonengine/canonengine/internal/canon/embed"
	"github.com/canonengine/canonengine/internal/canon/geocode"
	"github.com/canonengine/canonengine/internal/canon/keycanon"
	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/llmfallback"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/ontology"
	"github.com/canonengine/canonengine/internal/canon/orchestrate"
	"github.com/canonengine/canonengine/internal/canon/quantitative"
	"github.com/canonengine/canonengine/internal/canon/resolver"
	"github.com/canonengine/canonengine/internal/canon/scoring"
	"github.com/canonengine/canonengine/internal/clients/openai"
	redislexical "github.com/canonengine/canonengine/internal/clients/redis"
	"github.com/canonengine/canonengine/internal/handlers"
	keycanonhandlers "github.com/canonengine/canonengine/internal/handlers/keycanon"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/middleware"
	repocanon "github.com/canonengine/canonengine/internal/repos/canon"
)

// Repos groups the store's persistence layer, one db-backed repo per
// table even though this engine has only one durable table.
type Repos struct {
	Concept repocanon.ConceptRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Concept: repocanon.NewConceptRepo(db, log),
	}
}

// Components holds every internal/canon/* piece the three-phase pipeline
// is built from, wired once at startup and shared across every request.
type Components struct {
	Registry *model.SynonymRegistry
	Paths    *model.ConceptPaths
	Store    *ontology.Store

	WordNet *lexical.WordNetSource

	Resolver     *resolver.Resolver
	KeyCanon     *keycanon.Canonicalizer
	Orchestrator *orchestrate.Orchestrator
}

func wireComponents(log *logger.Logger, db *gorm.DB, cfg Config, repos Repos) (Components, error) {
	// Secondary cross-process cache tier for the network lexical
	// adapters, optional — degraded (in-process LRU only) when
	// REDIS_ADDR is unset.
	if redisCache, err := redislexical.NewClient(log); err != nil {
		log.Info("redis lexical cache tier disabled", "reason", err)
	} else {
		lexical.SetSharedSecondaryCache(redisCache)
	}

	// OpenAI-compatible client backs both the embedding provider and the
	// LLM fallback's text generation — the engine's only two ML-model
	// collaborators, both satisfied by the one client shape.
	oaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Info("openai client unavailable, embeddings and LLM fallback disabled", "reason", err)
		oaiClient = nil
	}

	embedder := embed.NewProvider(log, oaiClient)
	wordnet := lexical.NewWordNetSource(log, embedder)

	wordsapi := lexical.NewWordsAPISource(log, cfg.WordsAPIKey)
	datamuse := lexical.NewDatamuseSource(log)
	wikidata := lexical.NewWikidataSource(log)
	babelnet := lexical.NewBabelNetSource(log, cfg.BabelNetAPIKey)
	merriamwebster := lexical.NewMerriamWebsterSource(log, cfg.MerriamWebsterAPIKey)

	wikidataAliases := canonicalize.LoadOfflineWikidataAliasCache(cfg.WordNetWikidataMapPath, log)

	scorer := scoring.NewHybridScorer(log, nil /* transformer: no fine-tuned gloss-context model in the pack */, embedder, wordnet)
	fallback := llmfallback.NewLLMFallback(log, oaiClient)

	disambiguator := disambiguate.NewDisambiguator(log, disambiguate.Sources{
		WordNet:        wordnet,
		WordsAPI:       wordsapi,
		Datamuse:       datamuse,
		Wikidata:       wikidata,
		BabelNet:       babelnet,
		MerriamWebster: merriamwebster,
	}, scorer, fallback)

	canonicalizer := canonicalize.NewCanonicalizer(log, wikidataAliases, babelnet, wordnet)

	store := ontology.NewStore(log, db, repos.Concept)
	registry := model.NewSynonymRegistry()
	paths := model.NewConceptPaths()
	if err := store.LoadFromDB(context.Background(), registry, paths); err != nil {
		log.Warn("failed to seed synonym registry from ontology store", "error", err)
	}

	res := resolver.New(log, registry, paths, store, disambiguator, canonicalizer, wordnet, wikidata)
	keyCanon := keycanon.New(log, wordnet, embedder)

	quant := quantitative.NewResolver(log, nil /* no physical-unit converter in the pack; passes raw units through */)
	geocoder := geocode.NewClient(log)

	orch := orchestrate.New(log, res, keyCanon, quant, geocoder, store)

	return Components{
		Registry:     registry,
		Paths:        paths,
		Store:        store,
		WordNet:      wordnet,
		Resolver:     res,
		KeyCanon:     keyCanon,
		Orchestrator: orch,
	}, nil
}

// Handlers groups every gin.HandlerFunc-bearing struct the router wires
// in.
type Handlers struct {
	Canon    *handlers.CanonHandler
	KeyCanon *keycanonhandlers.Handler
}

func wireHandlers(log *logger.Logger, comps Components) Handlers {
	return Handlers{
		Canon:    handlers.NewCanonHandler(log, comps.Resolver, comps.Orchestrator, comps.Store),
		KeyCanon: keycanonhandlers.NewHandler(log, comps.KeyCanon),
	}
}

// Middleware groups every request-scoped gin.HandlerFunc provider.
type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

// flushInterval is how often the background worker durably flushes the
// ontology store's write-behind buffer, independent of any one listing
// ingest request finishing (the orchestrator still flushes at the end of
// each listing; this is the safety-net cadence for buffered concepts
// from callers that only use the resolver directly, e.g. the
// /api/resolve endpoint, which never triggers a listing-level flush).
const flushInterval = 30 * time.Second
