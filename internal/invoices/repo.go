package invoices

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

func withOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("Order").Preload("Order.Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).Scopes(withOrder).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.WithContext(ctx).Scopes(withOrder).First(&inv, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) Create(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Order").Create(inv).Error
}

// SetPDF records where the rendered PDF lives and which payment status it shows.
func (r *Repository) SetPDF(ctx context.Context, id uuid.UUID, objectPath string, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{"pdf_path": objectPath, "pdf_payment_status": status}).Error
}

func (r *Repository) SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}

// OrderIDsWithoutInvoice returns up to limit order ids with no invoice, oldest first.
func (r *Repository) OrderIDsWithoutInvoice(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("NOT EXISTS (SELECT 1 FROM invoices WHERE invoices.order_id = orders.id)").
		Order("orders.created_at ASC").
		Limit(limit).
		Pluck("orders.id", &ids).Error
	return ids, err
}
