package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

// Service exposes catalog reads for the storefront and writes for admins.
type Service interface {
	ListProducts(ctx context.Context, filters ProductFilters, params pagination.Params) (*pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductUpdate) (*ProductDTO, error)

	ListSystems(ctx context.Context, filters SystemFilters, params pagination.Params) (*pagination.Page[SolarSystemDTO], error)
	GetSystem(ctx context.Context, id uuid.UUID) (*SolarSystemDTO, error)
	CreateSystem(ctx context.Context, input SystemInput) (*SolarSystemDTO, error)
	UpdateSystem(ctx context.Context, id uuid.UUID, input SystemUpdate) (*SolarSystemDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, filters ProductFilters, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	rows, err := s.repo.ListProducts(ctx, filters, params)
	if err != nil {
		return nil, listError(err, "list products")
	}
	page := pagination.BuildPage(rows, params.Limit, productCursor)
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, p := range page.Items {
		out.Items = append(out.Items, ProductFromModel(p))
	}
	return &out, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, findError(err, "product")
	}
	dto := ProductFromModel(*product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	product := &models.Product{
		SKU:            strings.TrimSpace(input.SKU),
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Category:       input.Category,
		Brand:          input.Brand,
		Price:          input.Price.Round(2),
		Stock:          input.Stock,
		WarrantyMonths: input.WarrantyMonths,
		Specifications: input.Specifications,
		ImageURL:       input.ImageURL,
		IsActive:       input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := ProductFromModel(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductUpdate) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, findError(err, "product")
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		product.Category = *input.Category
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = input.Price.Round(2)
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.WarrantyMonths != nil {
		product.WarrantyMonths = *input.WarrantyMonths
	}
	if input.Specifications != nil {
		product.Specifications = input.Specifications
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := ProductFromModel(*product)
	return &dto, nil
}

func (s *service) ListSystems(ctx context.Context, filters SystemFilters, params pagination.Params) (*pagination.Page[SolarSystemDTO], error) {
	rows, err := s.repo.ListSystems(ctx, filters, params)
	if err != nil {
		return nil, listError(err, "list solar systems")
	}
	page := pagination.BuildPage(rows, params.Limit, systemCursor)
	out := pagination.Page[SolarSystemDTO]{Items: make([]SolarSystemDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, sys := range page.Items {
		out.Items = append(out.Items, SystemFromModel(sys))
	}
	return &out, nil
}

func (s *service) GetSystem(ctx context.Context, id uuid.UUID) (*SolarSystemDTO, error) {
	system, err := s.repo.FindSystem(ctx, id)
	if err != nil {
		return nil, findError(err, "solar system")
	}
	dto := SystemFromModel(*system)
	return &dto, nil
}

func (s *service) CreateSystem(ctx context.Context, input SystemInput) (*SolarSystemDTO, error) {
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if !input.CapacityKW.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity_kw must be positive")
	}
	system := &models.SolarSystem{
		Slug:                 strings.ToLower(strings.TrimSpace(input.Slug)),
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		CapacityKW:           input.CapacityKW,
		Price:                input.Price.Round(2),
		WarrantyMonths:       input.WarrantyMonths,
		Features:             input.Features,
		Specifications:       input.Specifications,
		InstallationIncluded: input.InstallationIncluded == nil || *input.InstallationIncluded,
		IsActive:             input.IsActive == nil || *input.IsActive,
	}
	if err := s.repo.CreateSystem(ctx, system); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create solar system")
	}
	dto := SystemFromModel(*system)
	return &dto, nil
}

func (s *service) UpdateSystem(ctx context.Context, id uuid.UUID, input SystemUpdate) (*SolarSystemDTO, error) {
	system, err := s.repo.FindSystem(ctx, id)
	if err != nil {
		return nil, findError(err, "solar system")
	}
	if input.Name != nil {
		system.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		system.Description = *input.Description
	}
	if input.CapacityKW != nil {
		if !input.CapacityKW.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity_kw must be positive")
		}
		system.CapacityKW = *input.CapacityKW
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		system.Price = input.Price.Round(2)
	}
	if input.WarrantyMonths != nil {
		system.WarrantyMonths = *input.WarrantyMonths
	}
	if input.Features != nil {
		system.Features = input.Features
	}
	if input.Specifications != nil {
		system.Specifications = input.Specifications
	}
	if input.InstallationIncluded != nil {
		system.InstallationIncluded = *input.InstallationIncluded
	}
	if input.IsActive != nil {
		system.IsActive = *input.IsActive
	}
	if err := s.repo.SaveSystem(ctx, system); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update solar system")
	}
	dto := SystemFromModel(*system)
	return &dto, nil
}

func findError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func listError(err error, msg string) error {
	if strings.Contains(err.Error(), "cursor") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
