package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/enums"
)

// Product is a single catalog component (panel, inverter, battery...).
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string                `gorm:"column:sku;not null;uniqueIndex"`
	Name           string                `gorm:"column:name;not null"`
	Description    string                `gorm:"column:description;not null;default:''"`
	Category       enums.ProductCategory `gorm:"column:category;not null"`
	Brand          *string               `gorm:"column:brand"`
	Price          decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Stock          int                   `gorm:"column:stock;not null;default:0"`
	WarrantyMonths int                   `gorm:"column:warranty_months;not null;default:0"`
	Specifications map[string]string     `gorm:"column:specifications;type:jsonb;serializer:json"`
	ImageURL       *string               `gorm:"column:image_url"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// SolarSystem is a pre-configured bundle sold as one item.
type SolarSystem struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Slug                 string            `gorm:"column:slug;not null;uniqueIndex"`
	Name                 string            `gorm:"column:name;not null"`
	Description          string            `gorm:"column:description;not null;default:''"`
	CapacityKW           decimal.Decimal   `gorm:"column:capacity_kw;type:numeric(8,2);not null"`
	Price                decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	WarrantyMonths       int               `gorm:"column:warranty_months;not null;default:0"`
	Features             []string          `gorm:"column:features;type:jsonb;serializer:json"`
	Specifications       map[string]string `gorm:"column:specifications;type:jsonb;serializer:json"`
	InstallationIncluded bool              `gorm:"column:installation_included;not null;default:true"`
	IsActive             bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SolarSystem) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
