package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) All(ctx context.Context) ([]models.CompanySetting, error) {
	var rows []models.CompanySetting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error
	return rows, err
}

// Upsert writes the row, replacing value, visibility and description on conflict.
func (r *Repository) Upsert(ctx context.Context, row *models.CompanySetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "is_public", "description", "updated_at"}),
		}).
		Create(row).Error
}

func (r *Repository) Find(ctx context.Context, key string) (*models.CompanySetting, error) {
	var row models.CompanySetting
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
