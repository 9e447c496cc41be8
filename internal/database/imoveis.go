package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"rentou/server/internal/models"
)

func (d *Database) ListImoveis(ctx context.Context, filter models.ImovelFilter) ([]models.Imovel, error) {
	query := d.db.WithContext(ctx).Model(&models.Imovel{})

	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Publicados {
		query = query.Where("publicado = ?", true)
	}
	if filter.Cidade != "" {
		query = query.Where("LOWER(cidade) = LOWER(?)", strings.TrimSpace(filter.Cidade))
	}
	if filter.Bairro != "" {
		query = query.Where("LOWER(bairro) = LOWER(?)", strings.TrimSpace(filter.Bairro))
	}
	if filter.Tipo != "" {
		query = query.Where("tipo = ?", filter.Tipo)
	}
	if filter.Finalidade != "" {
		query = query.Where("finalidade = ?", filter.Finalidade)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	imoveis := []models.Imovel{}
	if err := query.Order("updated_at DESC, id DESC").Find(&imoveis).Error; err != nil {
		return nil, fmt.Errorf("failed to list imoveis: %w", err)
	}
	return imoveis, nil
}

func (d *Database) GetImovel(ctx context.Context, id int64) (*models.Imovel, error) {
	var imovel models.Imovel
	if err := d.db.WithContext(ctx).First(&imovel, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &imovel, nil
}

// SaveImovel creates the listing when ID is zero and otherwise replaces the
// owner's existing record.
func (d *Database) SaveImovel(ctx context.Context, imovel *models.Imovel) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if imovel.ID == 0 {
			return tx.Create(imovel).Error
		}

		var existing models.Imovel
		err := tx.Where("id = ? AND owner_id = ?", imovel.ID, imovel.OwnerID).First(&existing).Error
		if err != nil {
			return notFound(err)
		}
		imovel.CreatedAt = existing.CreatedAt
		return tx.Save(imovel).Error
	})
}

func (d *Database) DeleteImovel(ctx context.Context, ownerID string, id int64) error {
	result := d.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Imovel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete imovel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListImoveisSemCoordenadas returns the owner's listings that have an address
// but no coordinates and have not been geocoded before.
func (d *Database) ListImoveisSemCoordenadas(ctx context.Context, ownerID string) ([]models.Imovel, error) {
	imoveis := []models.Imovel{}
	err := pendingGeocoding(d.db.WithContext(ctx).Where("owner_id = ?", ownerID)).
		Order("id").
		Find(&imoveis).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query imoveis without coordinates: %w", err)
	}
	return imoveis, nil
}

// ListOwnersSemCoordenadas returns the owners with at least one listing
// waiting for geocoding.
func (d *Database) ListOwnersSemCoordenadas(ctx context.Context) ([]string, error) {
	owners := []string{}
	err := pendingGeocoding(d.db.WithContext(ctx).Model(&models.Imovel{})).
		Distinct("owner_id").
		Order("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query owners pending geocoding: %w", err)
	}
	return owners, nil
}

func pendingGeocoding(query *gorm.DB) *gorm.DB {
	return query.
		Where("(latitude IS NULL OR longitude IS NULL)").
		Where("geocoding_attempted = ?", false).
		Where("logradouro <> '' AND cidade <> ''")
}

// UpdateCoordenadas stores the result of a geocoding attempt. Nil coordinates
// record a failed attempt.
func (d *Database) UpdateCoordenadas(ctx context.Context, id int64, lat, lon *float64) error {
	result := d.db.WithContext(ctx).Model(&models.Imovel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":            lat,
		"longitude":           lon,
		"geocoding_attempted": true,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update coordinates: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
