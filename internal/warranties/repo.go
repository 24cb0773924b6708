package warranties

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

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

func withClaims(db *gorm.DB) *gorm.DB {
	return db.Preload("Claims", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") })
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Warranty, error) {
	var w models.Warranty
	if err := r.db.WithContext(ctx).Scopes(withClaims).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Warranty, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Scopes(withClaims).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Warranty
	err = query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateClaim(ctx context.Context, claim *models.WarrantyClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *Repository) FindClaimForUpdate(ctx context.Context, id uuid.UUID) (*models.WarrantyClaim, error) {
	var c models.WarrantyClaim
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) FindClaim(ctx context.Context, id uuid.UUID) (*models.WarrantyClaim, error) {
	var c models.WarrantyClaim
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) UpdateClaim(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.WarrantyClaim{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) ListClaims(ctx context.Context, filters ClaimFilters, params pagination.Params) ([]models.WarrantyClaim, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Model(&models.WarrantyClaim{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.WarrantyClaim
	err = query.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error
	return rows, err
}

// ExpireBefore flips active warranties whose end date has passed.
func (r *Repository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Warranty{}).
		Where("status = ? AND end_date < ?", enums.WarrantyStatusActive, now).
		Updates(map[string]any{"status": enums.WarrantyStatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
