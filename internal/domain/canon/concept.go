package canon

import (
	"time"

	"gorm.io/datatypes"
)

// PersistentConcept is the durable row behind the in-memory
// SynonymRegistry and ConceptPaths maps kept by internal/canon/ontology.
// ConceptID is a stable string (e.g. "electronics.laptop"), not a
// generated UUID, since concept identifiers are shared across
// canonicalization tiers and must remain stable across process restarts.
type PersistentConcept struct {
	ConceptID   string         `gorm:"column:concept_id;type:text;primaryKey" json:"concept_id"`
	ConceptPath datatypes.JSON `gorm:"column:concept_path;type:jsonb;not null;default:'[]'" json:"concept_path"` // []string, root-first
	Synonyms    datatypes.JSON `gorm:"column:synonyms;type:jsonb;not null;default:'[]'" json:"synonyms"`         // []string
	Source      string         `gorm:"column:source;type:text;index:idx_concept_ontology_source" json:"source"`
	Confidence  float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (PersistentConcept) TableName() string { return "concept_ontology" }
