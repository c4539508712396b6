package canon

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
)

// ConceptRepo persists the durable half of the ontology: the rows
// backing SynonymRegistry/ConceptPaths once Store.FlushToDB runs.
type ConceptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) ([]*domain.PersistentConcept, error)
	GetByConceptIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.PersistentConcept, error)
	GetByConceptID(ctx context.Context, tx *gorm.DB, id string) (*domain.PersistentConcept, error)
	ListAll(ctx context.Context, tx *gorm.DB, page, pageSize int) ([]*domain.PersistentConcept, error)
	UpsertByConceptID(ctx context.Context, tx *gorm.DB, row *domain.PersistentConcept) error
	UpsertMany(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) error
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{db: db, log: baseLog.With("repo", "ConceptRepo")}
}

func (r *conceptRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *conceptRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) ([]*domain.PersistentConcept, error) {
	if len(rows) == 0 {
		return []*domain.PersistentConcept{}, nil
	}
	if err := r.tx(tx).WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conceptRepo) GetByConceptIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.PersistentConcept, error) {
	var out []*domain.PersistentConcept
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(tx).WithContext(ctx).Where("concept_id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) GetByConceptID(ctx context.Context, tx *gorm.DB, id string) (*domain.PersistentConcept, error) {
	if id == "" {
		return nil, nil
	}
	rows, err := r.GetByConceptIDs(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListAll pages through the full concept table (page size is the
// caller's choice, ontology.Store uses 1000).
func (r *conceptRepo) ListAll(ctx context.Context, tx *gorm.DB, page, pageSize int) ([]*domain.PersistentConcept, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	var out []*domain.PersistentConcept
	if err := r.tx(tx).WithContext(ctx).
		Order("concept_id ASC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) UpsertByConceptID(ctx context.Context, tx *gorm.DB, row *domain.PersistentConcept) error {
	if row == nil || row.ConceptID == "" {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return r.tx(tx).WithContext(ctx).
		Where("concept_id = ?", row.ConceptID).
		Assign(row).
		FirstOrCreate(row).Error
}

// UpsertMany flushes a batch with one round trip, used by
// ontology.Store.FlushToDB so the write-behind buffer doesn't pay a
// query per concept.
func (r *conceptRepo) UpsertMany(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		row.UpdatedAt = now
	}
	return r.tx(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "concept_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"concept_path", "synonyms", "source", "confidence", "updated_at"}),
	}).Create(&rows).Error
}
