package installments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
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

func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) Create(ctx context.Context, plan *models.InstallmentPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&plan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&plan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.InstallmentPlan, error) {
	var rows []models.InstallmentPlan
	err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) AddPayment(ctx context.Context, payment *models.InstallmentPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// SumPayments totals what has been paid against a plan.
func (r *Repository) SumPayments(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.InstallmentPayment{}).
		Where("plan_id = ?", planID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.InstallmentPlan{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InstallmentPlan{}).
		Where("status = ? AND next_due_date < ?", enums.InstallmentStatusActive, now).
		Updates(map[string]any{"status": enums.InstallmentStatusOverdue, "updated_at": now})
	return res.RowsAffected, res.Error
}
