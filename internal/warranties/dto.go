package warranties

import (
	"time"

	"github.com/google/uuid"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
)

type FileClaimRequest struct {
	Description string `json:"description" validate:"required,min=10,max=4000"`
}

type UpdateClaimRequest struct {
	Status              enums.ClaimStatus `json:"status" validate:"required"`
	AdminNotes          *string           `json:"admin_notes,omitempty" validate:"omitempty,max=4000"`
	EstimatedRepairDate *time.Time        `json:"estimated_repair_date,omitempty"`
}

type ClaimFilters struct {
	Status *enums.ClaimStatus
}

type ClaimDTO struct {
	ID                  uuid.UUID         `json:"id"`
	ClaimNumber         string            `json:"claim_number"`
	WarrantyID          uuid.UUID         `json:"warranty_id"`
	UserID              uuid.UUID         `json:"user_id"`
	Description         string            `json:"description"`
	Status              enums.ClaimStatus `json:"status"`
	AdminNotes          *string           `json:"admin_notes,omitempty"`
	EstimatedRepairDate *time.Time        `json:"estimated_repair_date,omitempty"`
	ResolvedAt          *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

type WarrantyDTO struct {
	ID             uuid.UUID            `json:"id"`
	WarrantyNumber string               `json:"warranty_number"`
	OrderID        uuid.UUID            `json:"order_id"`
	ProductID      *uuid.UUID           `json:"product_id,omitempty"`
	SolarSystemID  *uuid.UUID           `json:"solar_system_id,omitempty"`
	ItemName       string               `json:"item_name"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        time.Time            `json:"end_date"`
	Status         enums.WarrantyStatus `json:"status"`
	Claims         []ClaimDTO           `json:"claims"`
}

func claimDTO(c models.WarrantyClaim) ClaimDTO {
	return ClaimDTO{
		ID:                  c.ID,
		ClaimNumber:         c.ClaimNumber,
		WarrantyID:          c.WarrantyID,
		UserID:              c.UserID,
		Description:         c.Description,
		Status:              c.Status,
		AdminNotes:          c.AdminNotes,
		EstimatedRepairDate: c.EstimatedRepairDate,
		ResolvedAt:          c.ResolvedAt,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func warrantyDTO(w models.Warranty) WarrantyDTO {
	dto := WarrantyDTO{
		ID:             w.ID,
		WarrantyNumber: w.WarrantyNumber,
		OrderID:        w.OrderID,
		ProductID:      w.ProductID,
		SolarSystemID:  w.SolarSystemID,
		ItemName:       w.ItemName,
		StartDate:      w.StartDate,
		EndDate:        w.EndDate,
		Status:         w.Status,
		Claims:         make([]ClaimDTO, 0, len(w.Claims)),
	}
	for _, c := range w.Claims {
		dto.Claims = append(dto.Claims, claimDTO(c))
	}
	return dto
}
