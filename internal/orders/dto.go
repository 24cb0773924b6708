package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

// CustomerInput is the contact block captured at checkout.
type CustomerInput struct {
	Name                string  `json:"customer_name" validate:"required,max=200"`
	Email               string  `json:"customer_email" validate:"required,email"`
	Phone               string  `json:"customer_phone" validate:"required,max=32"`
	InstallationAddress string  `json:"installation_address" validate:"required,max=500"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ItemInput is a fully priced line handed to Create.
type ItemInput struct {
	Type          enums.OrderItemType
	ProductID     *uuid.UUID
	SolarSystemID *uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	Quantity      int
}

// CreateInput carries everything needed to place an order.
type CreateInput struct {
	UserID   *uuid.UUID
	Customer CustomerInput
	Items    []ItemInput
}

// CustomComponent is one catalog product picked in the custom builder.
type CustomComponent struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=1000"`
}

type CustomBuildRequest struct {
	CustomerInput
	Components []CustomComponent `json:"components" validate:"required,min=1,dive"`
}

type ConfirmPaymentRequest struct {
	Method    enums.PaymentMethod `json:"payment_method" validate:"required"`
	Reference string              `json:"payment_reference" validate:"max=120"`
}

type ScheduleRequest struct {
	InstallationDate time.Time `json:"installation_date" validate:"required,future"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type TrackingRequest struct {
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=64"`
}

type OrderItemDTO struct {
	ID            uuid.UUID           `json:"id"`
	Type          enums.OrderItemType `json:"type"`
	ProductID     *uuid.UUID          `json:"product_id,omitempty"`
	SolarSystemID *uuid.UUID          `json:"solar_system_id,omitempty"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	Quantity      int                 `json:"quantity"`
	LineTotal     decimal.Decimal     `json:"line_total"`
}

type OrderDTO struct {
	ID                  uuid.UUID            `json:"id"`
	OrderNumber         string               `json:"order_number"`
	UserID              *uuid.UUID           `json:"user_id,omitempty"`
	CustomerName        string               `json:"customer_name"`
	CustomerEmail       string               `json:"customer_email"`
	CustomerPhone       string               `json:"customer_phone"`
	InstallationAddress string               `json:"installation_address"`
	Notes               *string              `json:"notes,omitempty"`
	Status              enums.OrderStatus    `json:"status"`
	PaymentStatus       enums.PaymentStatus  `json:"payment_status"`
	PaymentMethod       *enums.PaymentMethod `json:"payment_method,omitempty"`
	PaymentReference    *string              `json:"payment_reference,omitempty"`
	PaidAt              *time.Time           `json:"paid_at,omitempty"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	Currency            string               `json:"currency"`
	TrackingNumber      *string              `json:"tracking_number,omitempty"`
	InstallationDate    *time.Time           `json:"installation_date,omitempty"`
	InstalledAt         *time.Time           `json:"installed_at,omitempty"`
	CancelledAt         *time.Time           `json:"cancelled_at,omitempty"`
	CancellationReason  *string              `json:"cancellation_reason,omitempty"`
	Items               []OrderItemDTO       `json:"items"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ListFilters narrows admin listings.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		UserID:              o.UserID,
		CustomerName:        o.CustomerName,
		CustomerEmail:       o.CustomerEmail,
		CustomerPhone:       o.CustomerPhone,
		InstallationAddress: o.InstallationAddress,
		Notes:               o.Notes,
		Status:              o.Status,
		PaymentStatus:       o.PaymentStatus,
		PaymentMethod:       o.PaymentMethod,
		PaymentReference:    o.PaymentReference,
		PaidAt:              o.PaidAt,
		TotalAmount:         o.TotalAmount,
		Currency:            o.Currency,
		TrackingNumber:      o.TrackingNumber,
		InstallationDate:    o.InstallationDate,
		InstalledAt:         o.InstalledAt,
		CancelledAt:         o.CancelledAt,
		CancellationReason:  o.CancellationReason,
		Items:               make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:            item.ID,
			Type:          item.Type,
			ProductID:     item.ProductID,
			SolarSystemID: item.SolarSystemID,
			Name:          item.Name,
			Description:   item.Description,
			Price:         item.Price,
			Quantity:      item.Quantity,
			LineTotal:     item.LineTotal(),
		})
	}
	return dto
}

func toPage(rows []models.Order, limit int) pagination.Page[OrderDTO] {
	page := pagination.BuildPage(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return out
}
