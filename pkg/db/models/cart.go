package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart belongs to exactly one of a user or an anonymous session.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionID *string    `gorm:"column:session_id;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem references either a product or a solar system.
type CartItem struct {
	ID            uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID    `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID     *uuid.UUID   `gorm:"column:product_id;type:uuid"`
	SolarSystemID *uuid.UUID   `gorm:"column:solar_system_id;type:uuid"`
	Quantity      int          `gorm:"column:quantity;not null"`
	Product       *Product     `gorm:"foreignKey:ProductID"`
	SolarSystem   *SolarSystem `gorm:"foreignKey:SolarSystemID"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
