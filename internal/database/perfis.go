package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"rentou/server/internal/models"
)

func (d *Database) GetPerfil(ctx context.Context, uid string) (*models.Perfil, error) {
	var perfil models.Perfil
	if err := d.db.WithContext(ctx).Where("uid = ?", uid).First(&perfil).Error; err != nil {
		return nil, notFound(err)
	}
	return &perfil, nil
}

// SavePerfil inserts or replaces the profile keyed by UID.
func (d *Database) SavePerfil(ctx context.Context, perfil *models.Perfil) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Perfil
		err := tx.Where("uid = ?", perfil.UID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(perfil).Error
		case err != nil:
			return err
		}
		perfil.CreatedAt = existing.CreatedAt
		return tx.Save(perfil).Error
	})
}
