package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rentou/server/internal/models"
)

func (d *Database) ListCondominios(ctx context.Context, ownerID string) ([]models.Condominio, error) {
	condominios := []models.Condominio{}
	err := d.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("nome").Find(&condominios).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list condominios: %w", err)
	}
	return condominios, nil
}

func (d *Database) GetCondominio(ctx context.Context, id int64) (*models.Condominio, error) {
	var condominio models.Condominio
	if err := d.db.WithContext(ctx).First(&condominio, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &condominio, nil
}

func (d *Database) SaveCondominio(ctx context.Context, condominio *models.Condominio) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if condominio.ID == 0 {
			return tx.Create(condominio).Error
		}

		var existing models.Condominio
		err := tx.Where("id = ? AND owner_id = ?", condominio.ID, condominio.OwnerID).First(&existing).Error
		if err != nil {
			return notFound(err)
		}
		condominio.CreatedAt = existing.CreatedAt
		return tx.Save(condominio).Error
	})
}

// DeleteCondominio removes the record and detaches the owner's listings from it.
func (d *Database) DeleteCondominio(ctx context.Context, ownerID string, id int64) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Condominio{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete condominio: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		err := tx.Model(&models.Imovel{}).
			Where("owner_id = ? AND condominio_id = ?", ownerID, id).
			Update("condominio_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to detach imoveis: %w", err)
		}
		return nil
	})
}
