package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// Order is a customer purchase with its fulfilment and payment lifecycle.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID              *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	CustomerName        string               `gorm:"column:customer_name;not null"`
	CustomerEmail       string               `gorm:"column:customer_email;not null"`
	CustomerPhone       string               `gorm:"column:customer_phone;not null;default:''"`
	InstallationAddress string               `gorm:"column:installation_address;not null;default:''"`
	Notes               *string              `gorm:"column:notes"`
	Status              enums.OrderStatus    `gorm:"column:status;not null;default:'pending';index"`
	PaymentStatus       enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentMethod       *enums.PaymentMethod `gorm:"column:payment_method"`
	PaymentReference    *string              `gorm:"column:payment_reference"`
	PaidAt              *time.Time           `gorm:"column:paid_at"`
	TotalAmount         decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency            string               `gorm:"column:currency;not null;default:'USD'"`
	TrackingNumber      *string              `gorm:"column:tracking_number"`
	InstallationDate    *time.Time           `gorm:"column:installation_date"`
	InstalledAt         *time.Time           `gorm:"column:installed_at"`
	CancelledAt         *time.Time           `gorm:"column:cancelled_at"`
	CancellationReason  *string              `gorm:"column:cancellation_reason"`
	Items               []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is a denormalized snapshot of what was bought.
type OrderItem struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	SolarSystemID *uuid.UUID          `gorm:"column:solar_system_id;type:uuid"`
	Type          enums.OrderItemType `gorm:"column:type;not null"`
	Name          string              `gorm:"column:name;not null"`
	Description   string              `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal returns price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
