package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

type ProductDTO struct {
	ID             uuid.UUID             `json:"id"`
	SKU            string                `json:"sku"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Category       enums.ProductCategory `json:"category"`
	Brand          *string               `json:"brand,omitempty"`
	Price          decimal.Decimal       `json:"price"`
	Stock          int                   `json:"stock"`
	WarrantyMonths int                   `json:"warranty_months"`
	Specifications map[string]string     `json:"specifications"`
	ImageURL       *string               `json:"image_url,omitempty"`
	IsActive       bool                  `json:"is_active"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type SolarSystemDTO struct {
	ID                   uuid.UUID         `json:"id"`
	Slug                 string            `json:"slug"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	CapacityKW           decimal.Decimal   `json:"capacity_kw"`
	Price                decimal.Decimal   `json:"price"`
	WarrantyMonths       int               `json:"warranty_months"`
	Features             []string          `json:"features"`
	Specifications       map[string]string `json:"specifications"`
	InstallationIncluded bool              `json:"installation_included"`
	IsActive             bool              `json:"is_active"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	Category        *enums.ProductCategory
	Search          string
	IncludeInactive bool
}

// SystemFilters narrows solar system listings.
type SystemFilters struct {
	Search          string
	IncludeInactive bool
}

type ProductInput struct {
	SKU            string                `json:"sku" validate:"required,max=64"`
	Name           string                `json:"name" validate:"required,max=200"`
	Description    string                `json:"description" validate:"max=5000"`
	Category       enums.ProductCategory `json:"category" validate:"required"`
	Brand          *string               `json:"brand,omitempty"`
	Price          decimal.Decimal       `json:"price"`
	Stock          int                   `json:"stock" validate:"gte=0"`
	WarrantyMonths int                   `json:"warranty_months" validate:"gte=0,lte=600"`
	Specifications map[string]string     `json:"specifications,omitempty"`
	ImageURL       *string               `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool                 `json:"is_active,omitempty"`
}

type ProductUpdate struct {
	Name           *string                `json:"name,omitempty" validate:"omitempty,max=200"`
	Description    *string                `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category       *enums.ProductCategory `json:"category,omitempty"`
	Brand          *string                `json:"brand,omitempty"`
	Price          *decimal.Decimal       `json:"price,omitempty"`
	Stock          *int                   `json:"stock,omitempty" validate:"omitempty,gte=0"`
	WarrantyMonths *int                   `json:"warranty_months,omitempty" validate:"omitempty,gte=0,lte=600"`
	Specifications map[string]string      `json:"specifications,omitempty"`
	ImageURL       *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive       *bool                  `json:"is_active,omitempty"`
}

type SystemInput struct {
	Slug                 string            `json:"slug" validate:"required,max=120"`
	Name                 string            `json:"name" validate:"required,max=200"`
	Description          string            `json:"description" validate:"max=5000"`
	CapacityKW           decimal.Decimal   `json:"capacity_kw"`
	Price                decimal.Decimal   `json:"price"`
	WarrantyMonths       int               `json:"warranty_months" validate:"gte=0,lte=600"`
	Features             []string          `json:"features,omitempty"`
	Specifications       map[string]string `json:"specifications,omitempty"`
	InstallationIncluded *bool             `json:"installation_included,omitempty"`
	IsActive             *bool             `json:"is_active,omitempty"`
}

type SystemUpdate struct {
	Name                 *string           `json:"name,omitempty" validate:"omitempty,max=200"`
	Description          *string           `json:"description,omitempty"`
	CapacityKW           *decimal.Decimal  `json:"capacity_kw,omitempty"`
	Price                *decimal.Decimal  `json:"price,omitempty"`
	WarrantyMonths       *int              `json:"warranty_months,omitempty" validate:"omitempty,gte=0,lte=600"`
	Features             []string          `json:"features,omitempty"`
	Specifications       map[string]string `json:"specifications,omitempty"`
	InstallationIncluded *bool             `json:"installation_included,omitempty"`
	IsActive             *bool             `json:"is_active,omitempty"`
}

func ProductFromModel(p models.Product) ProductDTO {
	specs := p.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	return ProductDTO{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		Category:       p.Category,
		Brand:          p.Brand,
		Price:          p.Price,
		Stock:          p.Stock,
		WarrantyMonths: p.WarrantyMonths,
		Specifications: specs,
		ImageURL:       p.ImageURL,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func SystemFromModel(s models.SolarSystem) SolarSystemDTO {
	features := s.Features
	if features == nil {
		features = []string{}
	}
	specs := s.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	return SolarSystemDTO{
		ID:                   s.ID,
		Slug:                 s.Slug,
		Name:                 s.Name,
		Description:          s.Description,
		CapacityKW:           s.CapacityKW,
		Price:                s.Price,
		WarrantyMonths:       s.WarrantyMonths,
		Features:             features,
		Specifications:       specs,
		InstallationIncluded: s.InstallationIncluded,
		IsActive:             s.IsActive,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func productCursor(p models.Product) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func systemCursor(s models.SolarSystem) pagination.Cursor {
	return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
}
