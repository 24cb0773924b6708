package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// Warranty covers one installed order item for a fixed period.
type Warranty struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	WarrantyNumber string               `gorm:"column:warranty_number;not null;uniqueIndex"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID    *uuid.UUID           `gorm:"column:order_item_id;type:uuid"`
	UserID         *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	ProductID      *uuid.UUID           `gorm:"column:product_id;type:uuid"`
	SolarSystemID  *uuid.UUID           `gorm:"column:solar_system_id;type:uuid"`
	ItemName       string               `gorm:"column:item_name;not null"`
	StartDate      time.Time            `gorm:"column:start_date;not null"`
	EndDate        time.Time            `gorm:"column:end_date;not null"`
	Status         enums.WarrantyStatus `gorm:"column:status;not null;default:'active';index"`
	Claims         []WarrantyClaim      `gorm:"foreignKey:WarrantyID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Warranty) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WarrantyClaim is a customer request against an active warranty.
type WarrantyClaim struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ClaimNumber         string            `gorm:"column:claim_number;not null;uniqueIndex"`
	WarrantyID          uuid.UUID         `gorm:"column:warranty_id;type:uuid;not null;index"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Description         string            `gorm:"column:description;not null"`
	Status              enums.ClaimStatus `gorm:"column:status;not null;default:'submitted';index"`
	AdminNotes          *string           `gorm:"column:admin_notes"`
	EstimatedRepairDate *time.Time        `gorm:"column:estimated_repair_date"`
	ResolvedAt          *time.Time        `gorm:"column:resolved_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *WarrantyClaim) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
