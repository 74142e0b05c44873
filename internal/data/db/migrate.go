package db

import (
	"fmt"

	"github.com/yungbote/mediahub-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

// EnsureMediaIndexes adds indexes gorm tags cannot express.
// idx_media_fingerprint is the authoritative dedup constraint and is re-asserted here
// in case the table predates the tag.
func EnsureMediaIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_media_fingerprint ON media(fingerprint);`).Error; err != nil {
		return fmt.Errorf("create idx_media_fingerprint: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_media_degraded
		ON media(created_at)
		WHERE vector_state <> 'ok' OR blob_state <> 'ok';
	`).Error; err != nil {
		return fmt.Errorf("create idx_media_degraded: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_collection_media_media ON collection_media(media_id, collection_id);`).Error; err != nil {
		return fmt.Errorf("create idx_collection_media_media: %w", err)
	}
	return nil
}
