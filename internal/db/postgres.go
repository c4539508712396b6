package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	logg.Info("Loading environment variables...")
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", logg)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", logg)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", logg)
	postgresName := utils.GetEnv("POSTGRES_NAME", "canonengine", logg)
	logg.Debug("Environment variables loaded")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser,
		postgresPassword,
		postgresHost,
		postgresPort,
		postgresName,
	)

	// GORM logger: ignore "record not found" spam (critical for the
	// ontology store's flush loop, which is a polling writer).
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	logg.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		logg.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")

	if err := s.db.AutoMigrate(&domain.PersistentConcept{}); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// GIN/ordered indexes and the updated_at trigger are beyond what
	// AutoMigrate can express, so they are created by hand.
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_concept_ontology_path_gin ON concept_ontology USING GIN (concept_path)`,
		`CREATE INDEX IF NOT EXISTS idx_concept_ontology_synonyms_gin ON concept_ontology USING GIN (synonyms)`,
		`CREATE INDEX IF NOT EXISTS idx_concept_ontology_updated_at ON concept_ontology (updated_at DESC)`,
		`CREATE OR REPLACE FUNCTION concept_ontology_set_updated_at() RETURNS trigger AS $$
BEGIN
    NEW.updated_at = now();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS trg_concept_ontology_updated_at ON concept_ontology`,
		`CREATE TRIGGER trg_concept_ontology_updated_at
BEFORE UPDATE ON concept_ontology
FOR EACH ROW EXECUTE FUNCTION concept_ontology_set_updated_at()`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			s.log.Error("Failed to run concept_ontology migration statement", "error", err)
			return err
		}
	}

	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
