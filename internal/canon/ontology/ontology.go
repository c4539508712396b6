// Package ontology implements the persistent concept store: a
// write-behind buffer over the durable concept_ontology table, plus
// the bulk loader that seeds the process-wide SynonymRegistry and
// ConceptPaths from it at startup.
package ontology

import (
	"context"
	"encoding/json"
	"sync"

	"gorm.io/gorm"

	"github.com/canonengine/canonengine/internal/canon/model"
	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
	repocanon "github.com/canonengine/canonengine/internal/repos/canon"
)

const loadPageSize = 1000

// bufferedConcept is one pending write awaiting the next FlushToDB.
type bufferedConcept struct {
	conceptID   string
	conceptPath []string
	synonyms    map[string]struct{}
	source      string
	confidence  float64
}

// Stats mirrors get_stats(): counts of loaded, flushed, pending, and
// known concept ids, surfaced on an operator endpoint.
type Stats struct {
	Loaded  int `json:"loaded"`
	Flushed int `json:"flushed"`
	Pending int `json:"pending"`
	Known   int `json:"known"`
}

// Store is the process-wide ontology store: a mutex-guarded pending
// buffer in front of repocanon.ConceptRepo. Resolve-path writes go
// through BufferConcept (cheap, in-memory); FlushToDB is the only place
// that talks to Postgres, run at the end of a listing ingest so the
// resolve hot path never blocks on durable writes.
type Store struct {
	log  *logger.Logger
	db   *gorm.DB
	repo repocanon.ConceptRepo

	mu      sync.Mutex
	pending map[string]*bufferedConcept
	known   map[string]struct{} // concept ids known to exist in the DB, refreshed by Load/flush
	loaded  int
	flushed int
}

func NewStore(log *logger.Logger, db *gorm.DB, repo repocanon.ConceptRepo) *Store {
	return &Store{
		log:     log.With("component", "ontology.Store"),
		db:      db,
		repo:    repo,
		pending: make(map[string]*bufferedConcept),
		known:   make(map[string]struct{}),
	}
}

// LoadFromDB paginates through the full concept table, registering every
// synonym (lowercased-trimmed; Bind handles compound-normalization too),
// the concept_id -> itself identity mapping, and the stored path, into
// the caller-owned registry and paths index. Time complexity linear in
// the number of rows.
func (s *Store) LoadFromDB(ctx context.Context, registry *model.SynonymRegistry, paths *model.ConceptPaths) error {
	page := 0
	loaded := 0
	for {
		rows, err := s.repo.ListAll(ctx, s.db, page, loadPageSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			path := decodeStrings(row.ConceptPath)
			synonyms := decodeStrings(row.Synonyms)

			registry.Bind(row.ConceptID, row.ConceptID)
			for _, syn := range synonyms {
				registry.Bind(syn, row.ConceptID)
			}
			if len(path) > 0 {
				paths.Set(row.ConceptID, path)
			}

			s.mu.Lock()
			s.known[row.ConceptID] = struct{}{}
			s.mu.Unlock()
			loaded++
		}
		if len(rows) < loadPageSize {
			break
		}
		page++
	}

	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()
	s.log.Info("ontology store loaded", "rows", loaded)
	return nil
}

// BufferConcept mutex-guards a merge into the pending write-behind
// buffer: if conceptID is already buffered, synonyms are unioned and the
// longer of the two concept_path values is kept; else a new entry is
// created.
func (s *Store) BufferConcept(conceptID string, conceptPath []string, synonyms []string, source string, confidence float64) {
	if conceptID == "" {
		// Invariant violation (empty concept_id): dropped rather than
		// buffered, nothing durable can key off an empty id, and the
		// resolve path already guarantees this never happens.
		s.log.Warn("refusing to buffer concept with empty id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.pending[conceptID]
	if !ok {
		synSet := make(map[string]struct{}, len(synonyms))
		for _, syn := range synonyms {
			synSet[syn] = struct{}{}
		}
		s.pending[conceptID] = &bufferedConcept{
			conceptID:   conceptID,
			conceptPath: conceptPath,
			synonyms:    synSet,
			source:      source,
			confidence:  confidence,
		}
		return
	}

	for _, syn := range synonyms {
		existing.synonyms[syn] = struct{}{}
	}
	if len(conceptPath) > len(existing.conceptPath) {
		existing.conceptPath = conceptPath
	}
	if confidence > existing.confidence {
		existing.confidence = confidence
	}
}

// FlushToDB snapshots and empties the pending buffer under the lock,
// then performs the durable upsert outside it. Rows already known in
// the DB get their synonym set unioned (never shrunk)
// and the longer concept_path kept before upserting; row-level failures
// are re-buffered for the next flush (idempotent retry, re-merged under
// the lock to avoid ABA against concurrent BufferConcept calls).
func (s *Store) FlushToDB(ctx context.Context) (int, error) {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = make(map[string]*bufferedConcept)
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	existingRows, err := s.repo.GetByConceptIDs(ctx, s.db, ids)
	if err != nil {
		s.reBuffer(snapshot)
		return 0, err
	}
	existingByID := make(map[string]*domain.PersistentConcept, len(existingRows))
	for _, row := range existingRows {
		existingByID[row.ConceptID] = row
	}

	rows := make([]*domain.PersistentConcept, 0, len(snapshot))
	failed := make(map[string]*bufferedConcept)
	for id, entry := range snapshot {
		row, err := s.mergeRow(entry, existingByID[id])
		if err != nil {
			s.log.Warn("skipping malformed buffered concept", "concept_id", id, "error", err)
			failed[id] = entry
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := s.repo.UpsertMany(ctx, s.db, rows); err != nil {
			s.log.Warn("ontology flush failed, re-buffering", "error", err, "rows", len(rows))
			s.reBuffer(snapshot)
			return 0, err
		}
	}

	s.mu.Lock()
	for _, row := range rows {
		s.known[row.ConceptID] = struct{}{}
	}
	s.flushed += len(rows)
	s.mu.Unlock()

	if len(failed) > 0 {
		s.reBuffer(failed)
	}

	return len(rows), nil
}

func (s *Store) reBuffer(entries map[string]*bufferedConcept) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range entries {
		if existing, ok := s.pending[id]; ok {
			for syn := range entry.synonyms {
				existing.synonyms[syn] = struct{}{}
			}
			if len(entry.conceptPath) > len(existing.conceptPath) {
				existing.conceptPath = entry.conceptPath
			}
			continue
		}
		s.pending[id] = entry
	}
}

func (s *Store) mergeRow(entry *bufferedConcept, existing *domain.PersistentConcept) (*domain.PersistentConcept, error) {
	path := entry.conceptPath
	synonyms := make(map[string]struct{}, len(entry.synonyms))
	for syn := range entry.synonyms {
		synonyms[syn] = struct{}{}
	}
	confidence := entry.confidence
	source := entry.source

	if existing != nil {
		existingPath := decodeStrings(existing.ConceptPath)
		if len(existingPath) > len(path) {
			path = existingPath
		}
		for _, syn := range decodeStrings(existing.Synonyms) {
			synonyms[syn] = struct{}{}
		}
		if existing.Confidence > confidence {
			confidence = existing.Confidence
		}
		if source == "" {
			source = existing.Source
		}
	}

	pathJSON, err := encodeStrings(path)
	if err != nil {
		return nil, err
	}
	synJSON, err := encodeStrings(setToSlice(synonyms))
	if err != nil {
		return nil, err
	}

	return &domain.PersistentConcept{
		ConceptID:   entry.conceptID,
		ConceptPath: pathJSON,
		Synonyms:    synJSON,
		Source:      source,
		Confidence:  confidence,
	}, nil
}

// GetStats reports loaded/flushed/pending/known counts.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Loaded:  s.loaded,
		Flushed: s.flushed,
		Pending: len(s.pending),
		Known:   len(s.known),
	}
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func encodeStrings(v []string) (jsonBytes, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return jsonBytes(b), err
}

func decodeStrings(raw jsonBytes) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// jsonBytes aliases datatypes.JSON's underlying []byte so this file does
// not need to import gorm.io/datatypes directly; domain.PersistentConcept
// already carries that type, so this just needs assignment compatibility.
type jsonBytes = []byte
