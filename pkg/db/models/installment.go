package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// InstallmentPlan spreads the unpaid balance of an order over monthly payments.
type InstallmentPlan struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Months           int                     `gorm:"column:months;not null"`
	DownPayment      decimal.Decimal         `gorm:"column:down_payment;type:numeric(12,2);not null"`
	FinancedAmount   decimal.Decimal         `gorm:"column:financed_amount;type:numeric(12,2);not null"`
	MonthlyAmount    decimal.Decimal         `gorm:"column:monthly_amount;type:numeric(12,2);not null"`
	PaidInstallments int                     `gorm:"column:paid_installments;not null;default:0"`
	NextDueDate      time.Time               `gorm:"column:next_due_date;not null;index"`
	Status           enums.InstallmentStatus `gorm:"column:status;not null;default:'active'"`
	Payments         []InstallmentPayment    `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *InstallmentPlan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// InstallmentPayment records one monthly payment against a plan.
type InstallmentPayment struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PlanID    uuid.UUID       `gorm:"column:plan_id;type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Reference *string         `gorm:"column:reference"`
	PaidAt    time.Time       `gorm:"column:paid_at;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *InstallmentPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
