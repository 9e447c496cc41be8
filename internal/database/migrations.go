package database

import (
	"fmt"

	"gorm.io/gorm"

	"rentou/server/internal/models"
)

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}

func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Imovel{}, &models.Condominio{}, &models.Perfil{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Listings already carrying coordinates never need a geocoding pass
	err := db.Model(&models.Imovel{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL AND geocoding_attempted = ?", false).
		Update("geocoding_attempted", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark existing coordinates as attempted: %w", err)
	}

	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_imoveis_coordinates
		ON imoveis(latitude, longitude);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}
