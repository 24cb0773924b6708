package maintenance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SuspectItems returns order items whose snapshot was never resolved.
func (r *Repository) SuspectItems(ctx context.Context) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("type = ? OR TRIM(name) = '' OR LOWER(TRIM(name)) = ?", enums.OrderItemTypeUnknown, "unknown").
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindSystem(ctx context.Context, id uuid.UUID) (*models.SolarSystem, error) {
	var s models.SolarSystem
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("id = ?", id).Updates(updates).Error
}
