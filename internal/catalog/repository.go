package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

// Repository reads and writes catalog rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListProducts(ctx context.Context, filters ProductFilters, params pagination.Params) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if !filters.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", like, like)
	}
	query, err := applyCursor(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) ListSystems(ctx context.Context, filters SystemFilters, params pagination.Params) ([]models.SolarSystem, error) {
	query := r.db.WithContext(ctx).Model(&models.SolarSystem{})
	if !filters.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	query, err := applyCursor(query, params)
	if err != nil {
		return nil, err
	}

	var rows []models.SolarSystem
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindSystem(ctx context.Context, id uuid.UUID) (*models.SolarSystem, error) {
	var system models.SolarSystem
	if err := r.db.WithContext(ctx).First(&system, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &system, nil
}

func (r *Repository) CreateSystem(ctx context.Context, system *models.SolarSystem) error {
	return r.db.WithContext(ctx).Create(system).Error
}

func (r *Repository) SaveSystem(ctx context.Context, system *models.SolarSystem) error {
	return r.db.WithContext(ctx).Save(system).Error
}

func applyCursor(query *gorm.DB, params pagination.Params) (*gorm.DB, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor == nil {
		return query, nil
	}
	return query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID), nil
}
