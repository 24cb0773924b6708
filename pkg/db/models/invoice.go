package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// Invoice is the billing document derived from an order. One per order.
type Invoice struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:invoices_order_id_key"`
	InvoiceNumber    string               `gorm:"column:invoice_number;not null;uniqueIndex:invoices_invoice_number_key"`
	Subtotal         decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxRate          decimal.Decimal      `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	Tax              decimal.Decimal      `gorm:"column:tax;type:numeric(12,2);not null"`
	Total            decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Currency         string               `gorm:"column:currency;not null;default:'USD'"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;not null"`
	PDFPath          *string              `gorm:"column:pdf_path"`
	// PDFPaymentStatus is the payment status stamped on the stored PDF.
	PDFPaymentStatus *enums.PaymentStatus `gorm:"column:pdf_payment_status"`
	IssuedAt         time.Time            `gorm:"column:issued_at;not null"`
	Order            *Order               `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
