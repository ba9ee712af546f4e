package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&types.Worker{},
		&types.Parameter{},
		&types.Enrichment{},
		&types.EnrichmentVersion{},
		&types.MultipleChoiceQuestion{},
		&types.Choice{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// Selector index: stage status lookups ordered by priority.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_enrichment_status_priority ON enrichment (status, priority, latest_enrichment_requested_at)`).Error; err != nil {
		return fmt.Errorf("create selector index: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto migrations", "driver", s.driver)
	return AutoMigrateAll(s.db)
}
