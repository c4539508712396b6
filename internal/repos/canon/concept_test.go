package canon

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/repos/canon/testutil"
)

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return datatypes.JSON(b)
}

func TestConceptRepo_CreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewConceptRepo(db, log)
	ctx := context.Background()

	row := &domain.PersistentConcept{
		ConceptID:   "electronics.laptop",
		ConceptPath: mustJSON(t, []string{"electronics", "computer", "laptop"}),
		Synonyms:    mustJSON(t, []string{"laptop", "notebook computer"}),
		Source:      "wordnet",
		Confidence:  0.82,
	}

	created, err := repo.Create(ctx, tx, []*domain.PersistentConcept{row})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created row, got %d", len(created))
	}

	got, err := repo.GetByConceptID(ctx, tx, "electronics.laptop")
	if err != nil {
		t.Fatalf("get by concept id: %v", err)
	}
	if got == nil {
		t.Fatalf("expected row, got nil")
	}
	if got.Source != "wordnet" {
		t.Fatalf("expected source wordnet, got %q", got.Source)
	}
}

func TestConceptRepo_UpsertByConceptID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewConceptRepo(db, log)
	ctx := context.Background()

	row := &domain.PersistentConcept{
		ConceptID:   "furniture.chair",
		ConceptPath: mustJSON(t, []string{"furniture", "chair"}),
		Synonyms:    mustJSON(t, []string{"chair"}),
		Source:      "babelnet",
		Confidence:  0.5,
	}
	if err := repo.UpsertByConceptID(ctx, tx, row); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	row.Confidence = 0.91
	row.Synonyms = mustJSON(t, []string{"chair", "seat"})
	if err := repo.UpsertByConceptID(ctx, tx, row); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.GetByConceptID(ctx, tx, "furniture.chair")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Confidence != 0.91 {
		t.Fatalf("expected confidence 0.91, got %v", got.Confidence)
	}
}

func TestConceptRepo_UpsertMany(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := NewConceptRepo(db, log)
	ctx := context.Background()

	rows := []*domain.PersistentConcept{
		{ConceptID: "a.one", ConceptPath: mustJSON(t, []string{"a", "one"}), Synonyms: mustJSON(t, []string{"one"}), Source: "wikidata", Confidence: 0.6},
		{ConceptID: "a.two", ConceptPath: mustJSON(t, []string{"a", "two"}), Synonyms: mustJSON(t, []string{"two"}), Source: "wikidata", Confidence: 0.7},
	}
	if err := repo.UpsertMany(ctx, tx, rows); err != nil {
		t.Fatalf("upsert many: %v", err)
	}

	got, err := repo.GetByConceptIDs(ctx, tx, []string{"a.one", "a.two"})
	if err != nil {
		t.Fatalf("get by concept ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
}
