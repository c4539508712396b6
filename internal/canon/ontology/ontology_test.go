package ontology

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canonengine/canonengine/internal/canon/model"
	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
	repocanon "github.com/canonengine/canonengine/internal/repos/canon"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

// fakeRepo is an in-memory stand-in for repocanon.ConceptRepo, letting
// Store's buffering/merge/retry logic be exercised without a real
// Postgres instance.
type fakeRepo struct {
	rows           map[string]*domain.PersistentConcept
	failNextUpsert bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*domain.PersistentConcept)}
}

func (f *fakeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) ([]*domain.PersistentConcept, error) {
	for _, r := range rows {
		f.rows[r.ConceptID] = r
	}
	return rows, nil
}

func (f *fakeRepo) GetByConceptIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.PersistentConcept, error) {
	out := make([]*domain.PersistentConcept, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByConceptID(ctx context.Context, tx *gorm.DB, id string) (*domain.PersistentConcept, error) {
	if r, ok := f.rows[id]; ok {
		return r, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListAll(ctx context.Context, tx *gorm.DB, page, pageSize int) ([]*domain.PersistentConcept, error) {
	if page > 0 {
		return nil, nil
	}
	out := make([]*domain.PersistentConcept, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) UpsertByConceptID(ctx context.Context, tx *gorm.DB, row *domain.PersistentConcept) error {
	f.rows[row.ConceptID] = row
	return nil
}

func (f *fakeRepo) UpsertMany(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) error {
	if f.failNextUpsert {
		f.failNextUpsert = false
		return assertError
	}
	for _, r := range rows {
		f.rows[r.ConceptID] = r
	}
	return nil
}

var assertError = &fakeUpsertError{}

type fakeUpsertError struct{}

func (e *fakeUpsertError) Error() string { return "simulated upsert failure" }

var _ repocanon.ConceptRepo = (*fakeRepo)(nil)

func jsonStrings(t *testing.T, vals []string) []byte {
	t.Helper()
	b, err := json.Marshal(vals)
	require.NoError(t, err)
	return b
}

func TestStore_BufferConcept_MergesSynonymsAndKeepsLongerPath(t *testing.T) {
	s := NewStore(testLogger(t), nil, newFakeRepo())

	s.BufferConcept("used", []string{"condition", "used"}, []string{"used"}, "wordnet", 0.7)
	s.BufferConcept("used", []string{"condition", "used", "very_good"}, []string{"second-hand"}, "wordnet", 0.9)

	stats := s.GetStats()
	require.Equal(t, 1, stats.Pending)

	entry := s.pending["used"]
	require.Len(t, entry.conceptPath, 3)
	require.Contains(t, entry.synonyms, "used")
	require.Contains(t, entry.synonyms, "second-hand")
	require.Equal(t, 0.9, entry.confidence)
}

func TestStore_BufferConcept_RefusesEmptyID(t *testing.T) {
	s := NewStore(testLogger(t), nil, newFakeRepo())
	s.BufferConcept("", []string{"x"}, nil, "wordnet", 0.5)
	require.Equal(t, 0, s.GetStats().Pending)
}

func TestStore_FlushToDB_UpsertsAndClearsPending(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(testLogger(t), nil, repo)
	s.BufferConcept("dog", []string{"dog"}, []string{"dog", "canine"}, "wordnet", 0.8)

	n, err := s.FlushToDB(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, s.GetStats().Pending)
	require.Equal(t, 1, s.GetStats().Known)

	row, ok := repo.rows["dog"]
	require.True(t, ok)
	var syns []string
	require.NoError(t, json.Unmarshal(row.Synonyms, &syns))
	require.ElementsMatch(t, []string{"dog", "canine"}, syns)
}

func TestStore_FlushToDB_UnionsSynonymsAgainstExistingRow(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["dog"] = &domain.PersistentConcept{
		ConceptID:   "dog",
		ConceptPath: jsonStrings(t, []string{"dog"}),
		Synonyms:    jsonStrings(t, []string{"canine"}),
		Confidence:  0.5,
	}
	s := NewStore(testLogger(t), nil, repo)
	s.BufferConcept("dog", []string{"animal", "dog"}, []string{"doggy"}, "wordnet", 0.9)

	n, err := s.FlushToDB(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	row := repo.rows["dog"]
	var syns []string
	require.NoError(t, json.Unmarshal(row.Synonyms, &syns))
	require.ElementsMatch(t, []string{"canine", "doggy"}, syns)

	var path []string
	require.NoError(t, json.Unmarshal(row.ConceptPath, &path))
	require.Equal(t, []string{"animal", "dog"}, path, "the longer path wins")
}

func TestStore_FlushToDB_ReBuffersOnFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failNextUpsert = true
	s := NewStore(testLogger(t), nil, repo)
	s.BufferConcept("widget", []string{"widget"}, []string{"widget"}, "fallback", 0.3)

	n, err := s.FlushToDB(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, s.GetStats().Pending, "failed rows must be re-buffered for the next flush")

	repo.failNextUpsert = false
	n, err = s.FlushToDB(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, s.GetStats().Pending)
}

func TestStore_LoadFromDB_SeedsRegistryAndPaths(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["used"] = &domain.PersistentConcept{
		ConceptID:   "used",
		ConceptPath: jsonStrings(t, []string{"condition", "used"}),
		Synonyms:    jsonStrings(t, []string{"pre-owned", "second-hand"}),
	}
	s := NewStore(testLogger(t), nil, repo)

	registry := model.NewSynonymRegistry()
	paths := model.NewConceptPaths()
	require.NoError(t, s.LoadFromDB(context.Background(), registry, paths))

	id, ok := registry.Lookup("second-hand")
	require.True(t, ok)
	require.Equal(t, "used", id)

	id, ok = registry.Lookup("used")
	require.True(t, ok)
	require.Equal(t, "used", id)

	path, ok := paths.Get("used")
	require.True(t, ok)
	require.Equal(t, []string{"condition", "used"}, path)

	require.Equal(t, 1, s.GetStats().Loaded)
	require.Equal(t, 1, s.GetStats().Known)
}
